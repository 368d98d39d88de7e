package expressions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/flowmon/pkg/schema"
)

// ExprEngine implements the Engine interface using expr-lang/expr. It backs
// node highlight predicates such as `status == "failed"` or
// `kind == "substage" && stageId == "2"`.
// Thread-safe: compiled *vm.Program objects are cached and reused across goroutines.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new Expr expression engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate compiles (or retrieves from cache) an Expr expression and evaluates it
// against the provided data. All keys of data are top-level variables.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}

	prg, err := e.getOrCompile(expression, data)
	if err != nil {
		return nil, err
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return out, nil
}

// Highlight evaluates a boolean predicate against every node of g and
// returns the ids it matches. An empty expression matches nothing.
func (e *ExprEngine) Highlight(ctx context.Context, expression string, g *schema.Graph) (map[string]bool, error) {
	matched := make(map[string]bool)
	if expression == "" || g == nil {
		return matched, nil
	}
	for i := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := &g.Nodes[i]
		out, err := e.Evaluate(ctx, expression, NodeEnv(n))
		if err != nil {
			return nil, err
		}
		ok, isBool := out.(bool)
		if !isBool {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"highlight expression %q must return a boolean, got %T", expression, out).
				WithNode(n.ID)
		}
		if ok {
			matched[n.ID] = true
		}
	}
	return matched, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
// The data map is used to infer the environment type for compilation.
func (e *ExprEngine) getOrCompile(expression string, data map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	prg, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)

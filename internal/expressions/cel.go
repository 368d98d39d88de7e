package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rendis/flowmon/pkg/schema"
)

// CELEngine implements the Engine interface using Google's Common Expression
// Language. It evaluates admission rules that a graph must satisfy before a
// layout is started, e.g. `size(nodes) <= 200`.
// Thread-safe: compiled programs are cached and reused across goroutines.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine creates a CEL engine whose environment exposes:
//   - nodes:    list(map(string, dyn)), one NodeEnv per node
//   - edges:    list(map(string, dyn)) with id, source, target, label, type
//   - workflow: map(string, dyn) with id and title
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	env, err := cel.NewEnv(
		cel.Variable("nodes", cel.ListType(mapType)),
		cel.Variable("edges", cel.ListType(mapType)),
		cel.Variable("workflow", mapType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Evaluate compiles (or retrieves from cache) a CEL expression and evaluates it
// against data. Missing variables default to empty values.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty CEL expression")
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, buildActivation(data))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return out.Value(), nil
}

// Admit checks g against every rule and returns a VALIDATION_ERROR naming the
// first rule that does not hold.
func (e *CELEngine) Admit(ctx context.Context, rules []string, g *schema.Graph) error {
	if len(rules) == 0 {
		return nil
	}
	data := GraphEnv(g)
	for _, rule := range rules {
		out, err := e.Evaluate(ctx, rule, data)
		if err != nil {
			return err
		}
		ok, isBool := out.(bool)
		if !isBool {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"admission rule %q must return a boolean, got %T", rule, out)
		}
		if !ok {
			return schema.NewErrorf(schema.ErrCodeValidation, "graph rejected by rule %q", rule).
				WithDetails(map[string]any{"rule": rule, "workflow_id": g.WorkflowID})
		}
	}
	return nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *CELEngine) getOrCompile(expression string) (cel.Program, error) {
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

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}

	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = prg
	return prg, nil
}

// buildActivation fills in defaults for missing variables to avoid CEL
// runtime errors.
func buildActivation(data map[string]any) map[string]any {
	activation := map[string]any{
		"nodes":    []any{},
		"edges":    []any{},
		"workflow": map[string]any{},
	}
	for key := range activation {
		if v, ok := data[key]; ok && v != nil {
			activation[key] = v
		}
	}
	return activation
}

var _ Engine = (*CELEngine)(nil)

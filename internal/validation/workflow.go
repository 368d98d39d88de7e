package validation

import (
	"context"
	"errors"

	"github.com/rendis/flowmon/internal/expressions"
	"github.com/rendis/flowmon/pkg/schema"
)

// Admitter evaluates admission rules against a graph.
type Admitter interface {
	Admit(ctx context.Context, rules []string, g *schema.Graph) error
}

// GraphValidator orchestrates the validation pipeline:
//  1. Structural (JSON Schema)
//  2. Semantic (duplicate ids, dangling edges, dependency references)
//  3. DAG (substage dependency cycles, definitions only)
//  4. Admission (CEL rules, graphs only)
type GraphValidator struct {
	jsonSchema *JSONSchemaValidator
	admitter   Admitter
	rules      []string
}

// Option configures a GraphValidator.
type Option func(*GraphValidator)

// WithAdmissionRules sets the CEL rules every graph must satisfy.
func WithAdmissionRules(admitter Admitter, rules ...string) Option {
	return func(v *GraphValidator) {
		v.admitter = admitter
		v.rules = append(v.rules, rules...)
	}
}

// NewGraphValidator creates a GraphValidator. Without WithAdmissionRules the
// admission stage is skipped.
func NewGraphValidator(opts ...Option) (*GraphValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	v := &GraphValidator{jsonSchema: jsv}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// NewDefaultGraphValidator wires a CEL engine for the given rules.
func NewDefaultGraphValidator(rules []string) (*GraphValidator, error) {
	if len(rules) == 0 {
		return NewGraphValidator()
	}
	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return NewGraphValidator(WithAdmissionRules(celEngine, rules...))
}

// CheckGraph runs the structural and semantic stages and returns every issue.
// Structural errors short-circuit the semantic stage.
func (v *GraphValidator) CheckGraph(g *schema.Graph) *schema.ValidationResult {
	result := structural(v.jsonSchema.ValidateGraphStructure(g))
	if !result.Valid() {
		return result
	}
	result.Merge(validateGraphSemantic(g))
	return result
}

// CheckDefinition runs the structural, semantic and DAG stages on a
// workflow definition.
func (v *GraphValidator) CheckDefinition(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := structural(v.jsonSchema.ValidateDefinitionStructure(def))
	if !result.Valid() {
		return result
	}
	result.Merge(validateDefinitionSemantic(def))
	if result.Valid() {
		result.Merge(validateDAG(def))
	}
	return result
}

// ValidateGraph returns the first error-level problem of g, including
// admission rule failures. Warnings never fail validation.
func (v *GraphValidator) ValidateGraph(ctx context.Context, g *schema.Graph) error {
	if err := v.CheckGraph(g).ToError(); err != nil {
		return err
	}
	if v.admitter == nil || len(v.rules) == 0 {
		return nil
	}
	return v.admitter.Admit(ctx, v.rules, g)
}

// ValidateGraphJSON validates and decodes a raw graph document.
func (v *GraphValidator) ValidateGraphJSON(ctx context.Context, raw []byte) (*schema.Graph, error) {
	g, err := v.jsonSchema.ValidateGraphDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateGraph(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ValidateDefinition satisfies the Validator interface.
func (v *GraphValidator) ValidateDefinition(def *schema.WorkflowDefinition) error {
	return v.CheckDefinition(def).ToError()
}

// structural converts a JSON Schema error into a ValidationResult.
func structural(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if err == nil {
		return result
	}

	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	if violations, ok := fe.Details["violations"].([]string); ok {
		for _, msg := range violations {
			result.AddError("/", schema.ErrCodeValidation, msg)
		}
		return result
	}
	result.AddError("/", schema.ErrCodeValidation, fe.Message)
	return result
}

var _ Validator = (*GraphValidator)(nil)

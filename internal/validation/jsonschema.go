package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/flowmon/pkg/schema"
)

const (
	graphSchemaURL      = "https://flowmon.dev/schemas/graph.json"
	definitionSchemaURL = "https://flowmon.dev/schemas/definition.json"
)

// graphSchemaJSON describes the node and edge lists accepted by the layout engine.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowmon.dev/schemas/graph.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "workflow_id": { "type": "string" },
    "workflow_title": { "type": "string" },
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": ["array", "null"],
      "items": { "$ref": "#/$defs/edge" }
    }
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": {
          "type": "string",
          "enum": ["task", "choice", "parallel", "map", "wait", "pass", "fail", "succeed"]
        },
        "label": { "type": "string" },
        "status": {
          "type": "string",
          "enum": ["completed", "in-progress", "pending", "failed"]
        },
        "data": { "type": ["object", "null"] }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["source", "target"],
      "properties": {
        "id": { "type": "string" },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 },
        "label": { "type": "string" },
        "type": {
          "type": "string",
          "enum": ["default", "success", "failure", "condition"]
        }
      },
      "additionalProperties": false
    }
  }
}`

// definitionSchemaJSON describes a stored workflow definition.
const definitionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowmon.dev/schemas/definition.json",
  "type": "object",
  "required": ["stages"],
  "properties": {
    "process_id": { "type": "string" },
    "stages": {
      "type": "array",
      "items": { "$ref": "#/$defs/stage" }
    },
    "metadata": { "type": ["object", "null"] }
  },
  "additionalProperties": false,
  "$defs": {
    "nodeType": {
      "type": "string",
      "enum": ["task", "choice", "parallel", "map", "wait", "pass", "fail", "succeed"]
    },
    "stage": {
      "type": "object",
      "required": ["id", "name"],
      "properties": {
        "id": { "type": "integer", "minimum": 0 },
        "name": { "type": "string" },
        "type": { "$ref": "#/$defs/nodeType" },
        "substages": {
          "type": ["array", "null"],
          "items": { "$ref": "#/$defs/substage" }
        }
      },
      "additionalProperties": false
    },
    "substage": {
      "type": "object",
      "required": ["id", "name"],
      "properties": {
        "id": { "type": "integer", "minimum": 0 },
        "name": { "type": "string" },
        "type": { "$ref": "#/$defs/nodeType" },
        "depends_on": {
          "type": ["array", "null"],
          "items": { "type": "integer" }
        }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates graphs and definitions against the embedded
// schemas. It is safe for concurrent use.
type JSONSchemaValidator struct {
	graphSchema      *jsonschema.Schema
	definitionSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles both schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, src := range map[string]string{
		graphSchemaURL:      graphSchemaJSON,
		definitionSchemaURL: definitionSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	graphSchema, err := c.Compile(graphSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile graph schema: %w", err)
	}
	defSchema, err := c.Compile(definitionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}

	return &JSONSchemaValidator{graphSchema: graphSchema, definitionSchema: defSchema}, nil
}

// ValidateGraphDocument validates raw graph JSON and decodes it on success.
func (v *JSONSchemaValidator) ValidateGraphDocument(raw []byte) (*schema.Graph, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph document is empty")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph document is not valid JSON").WithCause(err)
	}
	if err := v.graphSchema.Validate(doc); err != nil {
		return nil, toFlowError(err)
	}

	var g schema.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "failed to decode graph").WithCause(err)
	}
	return &g, nil
}

// ValidateGraphStructure validates an in-memory graph against the graph schema.
func (v *JSONSchemaValidator) ValidateGraphStructure(g *schema.Graph) error {
	if g == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph is nil")
	}
	doc, err := toJSONValue(g)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize graph").WithCause(err)
	}
	if err := v.graphSchema.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

// ValidateDefinitionStructure validates a workflow definition against the
// definition schema.
func (v *JSONSchemaValidator) ValidateDefinitionStructure(def *schema.WorkflowDefinition) error {
	if def == nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow definition is nil")
	}
	doc, err := toJSONValue(def)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize workflow definition").WithCause(err)
	}
	if err := v.definitionSchema.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON so that numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// toFlowError converts a jsonschema.ValidationError into a FlowError listing
// every leaf violation with its instance location.
func toFlowError(err error) *schema.FlowError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

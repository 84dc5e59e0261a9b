package structured

import (
	"encoding/json"
	"fmt"

	"github.com/llmgate/llmgate/types"
)

// Contract binds a caller-supplied JSON Schema to its enforcement machinery.
// Raw is the document as received; Payload is the normalized copy sent to
// providers, with additionalProperties pinned to false on every object node
// that did not set it. The typed schema drives the local validator.
type Contract struct {
	Raw     map[string]any
	Payload map[string]any

	schema    *JSONSchema
	validator *Validator
}

// BuildContract normalizes a raw JSON Schema document into a Contract.
// The root must describe an object; the input map is never mutated.
func BuildContract(raw map[string]any) (*Contract, error) {
	if raw == nil {
		return nil, types.NewError(types.ErrSchema, "schema document is nil")
	}
	if t, ok := raw["type"].(string); ok && t != string(TypeObject) {
		return nil, types.NewError(types.ErrSchema,
			fmt.Sprintf("root schema must have type object, got %q", t))
	}

	payload, ok := cloneValue(raw).(map[string]any)
	if !ok {
		return nil, types.NewError(types.ErrSchema, "schema document is not an object")
	}
	normalizeNode(payload)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewError(types.ErrSchema, "schema document is not serializable").WithCause(err)
	}
	schema, err := FromJSON(payloadJSON)
	if err != nil {
		return nil, types.NewError(types.ErrSchema, "schema document could not be parsed").WithCause(err)
	}
	if schema.Type == "" {
		schema.Type = TypeObject
	}

	return &Contract{
		Raw:       raw,
		Payload:   payload,
		schema:    schema,
		validator: NewValidator(),
	}, nil
}

// Schema returns the typed view of the normalized schema.
func (c *Contract) Schema() *JSONSchema {
	return c.schema
}

// PayloadJSON serializes the normalized provider payload.
func (c *Contract) PayloadJSON() ([]byte, error) {
	return json.Marshal(c.Payload)
}

// Decode parses model output and validates it against the contract, returning
// the decoded value on success. Parse and validation failures are both
// reported as retryable validation errors: generation is stochastic, so
// another attempt against the same backend may succeed.
func (c *Contract) Decode(content string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return nil, types.NewError(types.ErrValidation, "output is not valid JSON").
			WithRetryable(true).WithCause(err)
	}
	if err := c.validator.ValidateValue(value, c.schema); err != nil {
		return nil, types.NewError(types.ErrValidation, "output does not satisfy schema").
			WithRetryable(true).WithCause(err)
	}
	return value, nil
}

// normalizeNode walks a schema node in place, setting additionalProperties to
// false on object nodes that leave it unspecified. Nodes that set it, to any
// value, are left alone, which makes the walk idempotent.
func normalizeNode(node map[string]any) {
	if isObjectNode(node) {
		if _, set := node["additionalProperties"]; !set {
			node["additionalProperties"] = false
		}
	}

	for _, key := range []string{"properties", "patternProperties", "$defs", "definitions"} {
		if m, ok := node[key].(map[string]any); ok {
			for _, sub := range m {
				if subNode, ok := sub.(map[string]any); ok {
					normalizeNode(subNode)
				}
			}
		}
	}

	for _, key := range []string{"items", "additionalProperties", "contains"} {
		if subNode, ok := node[key].(map[string]any); ok {
			normalizeNode(subNode)
		}
	}

	for _, key := range []string{"allOf", "anyOf", "oneOf", "prefixItems", "items"} {
		if list, ok := node[key].([]any); ok {
			for _, sub := range list {
				if subNode, ok := sub.(map[string]any); ok {
					normalizeNode(subNode)
				}
			}
		}
	}
}

// isObjectNode reports whether a schema node describes an object. A node with
// no type but a properties map is treated as an object, matching common
// shorthand in hand-written schemas.
func isObjectNode(node map[string]any) bool {
	if t, ok := node["type"].(string); ok {
		return t == string(TypeObject)
	}
	_, hasProps := node["properties"]
	return hasProps
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = cloneValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = cloneValue(sub)
		}
		return out
	default:
		return val
	}
}

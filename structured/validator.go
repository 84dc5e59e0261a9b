package structured

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ParseError represents a validation error with field path.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors struct {
	Errors []ParseError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validator validates decoded JSON values against a JSONSchema.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateValue validates an already-decoded value against a schema.
func (v *Validator) ValidateValue(value any, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}
	var errs []ParseError
	v.validateValue(value, schema, "", &errs)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func (v *Validator) validateValue(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	if schema == nil {
		return
	}

	// Const wins over everything else
	if schema.Const != nil {
		if !v.equalValues(value, schema.Const) {
			*errs = append(*errs, ParseError{
				Path:    path,
				Message: fmt.Sprintf("value must be %v", schema.Const),
			})
		}
		return
	}

	if len(schema.Enum) > 0 {
		found := false
		for _, enumVal := range schema.Enum {
			if v.equalValues(value, enumVal) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, ParseError{
				Path:    path,
				Message: fmt.Sprintf("value must be one of: %v", schema.Enum),
			})
		}
	}

	switch schema.Type {
	case TypeString:
		v.validateString(value, schema, path, errs)
	case TypeNumber:
		v.validateNumber(value, schema, path, errs)
	case TypeInteger:
		v.validateInteger(value, schema, path, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected boolean, got %T", value)})
		}
	case TypeNull:
		if value != nil {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected null, got %T", value)})
		}
	case TypeObject:
		v.validateObject(value, schema, path, errs)
	case TypeArray:
		v.validateArray(value, schema, path, errs)
	}
}

func (v *Validator) validateString(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected string, got %T", value)})
		return
	}

	if schema.MinLength != nil && len(str) < *schema.MinLength {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("string length %d is less than minimum %d", len(str), *schema.MinLength),
		})
	}
	if schema.MaxLength != nil && len(str) > *schema.MaxLength {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("string length %d exceeds maximum %d", len(str), *schema.MaxLength),
		})
	}
	if schema.Pattern != "" {
		matched, err := regexp.MatchString(schema.Pattern, str)
		if err != nil {
			*errs = append(*errs, ParseError{
				Path:    path,
				Message: fmt.Sprintf("invalid pattern %q: %v", schema.Pattern, err),
			})
		} else if !matched {
			*errs = append(*errs, ParseError{
				Path:    path,
				Message: fmt.Sprintf("string does not match pattern %q", schema.Pattern),
			})
		}
	}
}

func (v *Validator) validateNumber(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected number, got %T", value)})
		return
	}
	v.validateNumericBounds(num, schema, path, errs)
}

func (v *Validator) validateInteger(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	num, ok := toFloat64(value)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected integer, got %T", value)})
		return
	}
	if num != math.Trunc(num) {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected integer, got %v", num)})
		return
	}
	v.validateNumericBounds(num, schema, path, errs)
}

func (v *Validator) validateNumericBounds(num float64, schema *JSONSchema, path string, errs *[]ParseError) {
	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum),
		})
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum),
		})
	}
	if schema.ExclusiveMinimum != nil && num <= *schema.ExclusiveMinimum {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("value %v must be greater than %v", num, *schema.ExclusiveMinimum),
		})
	}
	if schema.ExclusiveMaximum != nil && num >= *schema.ExclusiveMaximum {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("value %v must be less than %v", num, *schema.ExclusiveMaximum),
		})
	}
}

func (v *Validator) validateObject(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected object, got %T", value)})
		return
	}

	for _, req := range schema.Required {
		val, exists := obj[req]
		if !exists {
			*errs = append(*errs, ParseError{Path: joinPath(path, req), Message: "required field is missing"})
		} else if val == nil {
			*errs = append(*errs, ParseError{Path: joinPath(path, req), Message: "required field must not be null"})
		}
	}

	for propName, propValue := range obj {
		propPath := joinPath(path, propName)

		if propSchema, ok := schema.Properties[propName]; ok {
			v.validateValue(propValue, propSchema, propPath, errs)
			continue
		}
		if schema.AdditionalProperties != nil {
			if !schema.AdditionalProperties.Allowed && schema.AdditionalProperties.Schema == nil {
				*errs = append(*errs, ParseError{Path: propPath, Message: "additional property not allowed"})
			} else if schema.AdditionalProperties.Schema != nil {
				v.validateValue(propValue, schema.AdditionalProperties.Schema, propPath, errs)
			}
		}
	}
}

func (v *Validator) validateArray(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected array, got %T", value)})
		return
	}

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems),
		})
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		*errs = append(*errs, ParseError{
			Path:    path,
			Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *schema.MaxItems),
		})
	}

	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (v *Validator) equalValues(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return aBool == bBool
	}

	if a == nil && b == nil {
		return true
	}

	// JSON serialization for composite types
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

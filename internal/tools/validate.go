package tools

import (
	"fmt"
	"math"
)

// ValidateArgs checks args against a JSON Schema parameters block of the
// shape the registry's tools declare: an object schema with "properties",
// "required", and per-property "type" plus numeric bounds. It covers the
// subset the built-in tools actually use rather than full JSON Schema.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}

	required := stringSlice(schema["required"])
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for name, raw := range args {
		propSchema, ok := props[name].(map[string]any)
		if !ok {
			// Unknown arguments are tolerated; models add extras.
			continue
		}
		if err := validateValue(name, propSchema, raw); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(name string, schema map[string]any, value any) error {
	typ, _ := schema["type"].(string)

	switch typ {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
		return nil

	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
		return nil

	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
		return nil

	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
		return nil

	case "integer":
		n, ok := asNumber(value)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("argument %q must be an integer", name)
		}
		return checkBounds(name, schema, n)

	case "number":
		n, ok := asNumber(value)
		if !ok {
			return fmt.Errorf("argument %q must be a number", name)
		}
		return checkBounds(name, schema, n)

	default:
		return nil
	}
}

func checkBounds(name string, schema map[string]any, n float64) error {
	if min, ok := asNumber(schema["minimum"]); ok && n < min {
		return fmt.Errorf("argument %q must be >= %v", name, min)
	}
	if min, ok := asNumber(schema["exclusiveMinimum"]); ok && n <= min {
		return fmt.Errorf("argument %q must be > %v", name, min)
	}
	if max, ok := asNumber(schema["maximum"]); ok && n > max {
		return fmt.Errorf("argument %q must be <= %v", name, max)
	}
	if max, ok := asNumber(schema["exclusiveMaximum"]); ok && n >= max {
		return fmt.Errorf("argument %q must be < %v", name, max)
	}
	return nil
}

// asNumber accepts the numeric types JSON decoding and hand-built
// schemas produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// stringSlice accepts both []string (hand-built schemas) and []any
// (schemas that round-tripped through JSON).
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

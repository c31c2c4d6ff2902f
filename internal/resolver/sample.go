package resolver

import "github.com/yourorg/apiscout/internal/openapi"

// maxSampleDepth bounds recursion so that pathological nesting can never
// overflow the stack.
const maxSampleDepth = 32

// SampleFromSchema converts a schema fragment into a representative example
// value. The mapping is fixed and total: identical input always yields
// identical output, and malformed or unknown shapes yield nil. Nested refs
// are not dereferenced; a ref-only property samples to nil.
func SampleFromSchema(schema *openapi.Schema) any {
	return sampleValue(schema, 0)
}

func sampleValue(schema *openapi.Schema, depth int) any {
	if schema == nil || depth > maxSampleDepth {
		return nil
	}
	switch {
	case schema.Type == "object" || (schema.Type == "" && len(schema.Properties) > 0):
		out := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			out[name] = sampleValue(prop, depth+1)
		}
		return out
	case schema.Type == "array":
		return []any{sampleValue(schema.Items, depth+1)}
	case schema.Type == "string":
		if schema.Format == "date-time" {
			return "2024-01-01T00:00:00Z"
		}
		return "string_example"
	case schema.Type == "integer":
		return 0
	case schema.Type == "number":
		return 0.0
	case schema.Type == "boolean":
		return false
	}
	return nil
}

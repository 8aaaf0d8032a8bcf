package toolconv

import "google.golang.org/genai"

// ToGeminiSchema converts a decoded JSON-schema map into Gemini's Schema
// type, built on WalkSchema's traversal rules. Grounded on
// internal/agent/toolconv/gemini.go's ToGeminiSchema.
func ToGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}
	schema := &genai.Schema{}
	if t := SchemaType(schemaMap); t != "" {
		schema.Type = genai.Type(t)
	}
	schema.Description = Description(schemaMap)
	schema.Enum = StringEnum(schemaMap)
	schema.Required = RequiredFields(schemaMap)

	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = ToGeminiSchema(propMap)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = ToGeminiSchema(items)
	}
	return schema
}

// Package toolconv holds schema-shape conversions shared across provider
// adapters and the JSON/Schema Subsystem (C5): a single recursive walk of a
// decoded JSON-schema map, generalized from
// internal/agent/toolconv/gemini.go's ToGeminiSchema so every caller that
// needs to re-express a tool's or function's parameter schema in a
// provider-specific shape uses the same traversal rules instead of each
// reinventing one.
package toolconv

import "strings"

// WalkSchema recursively visits a decoded JSON-schema map, calling emit at
// each node (including the root) before descending into "properties" and
// "items". emit receives the node's map and the accumulated property path
// ("" for the root, then dot-separated names); its return value is ignored
// by the walk itself — callers that build a converted tree (e.g. a
// provider-specific Schema type) should close over an accumulator instead of
// relying on a return value, since shapes differ per destination type.
func WalkSchema(schemaMap map[string]any, emit func(path string, node map[string]any)) {
	walkSchema("", schemaMap, emit)
}

func walkSchema(path string, node map[string]any, emit func(string, map[string]any)) {
	if node == nil {
		return
	}
	emit(path, node)

	if props, ok := node["properties"].(map[string]any); ok {
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				childPath := name
				if path != "" {
					childPath = path + "." + name
				}
				walkSchema(childPath, propMap, emit)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		walkSchema(path, items, emit)
	}
}

// SchemaType returns a node's "type" keyword upper-cased, the shape Gemini
// and some other provider schema types expect for their Type enums. Returns
// "" when the node has no "type" string.
func SchemaType(node map[string]any) string {
	t, ok := node["type"].(string)
	if !ok {
		return ""
	}
	return strings.ToUpper(t)
}

// StringEnum returns a node's "enum" keyword as a []string, skipping any
// non-string entries (JSON schema permits mixed-type enums; providers that
// accept only string enums get the string subset).
func StringEnum(node map[string]any) []string {
	raw, ok := node["enum"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// RequiredFields returns a node's "required" keyword as a []string.
func RequiredFields(node map[string]any) []string {
	raw, ok := node["required"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Description returns a node's "description" keyword, or "".
func Description(node map[string]any) string {
	d, _ := node["description"].(string)
	return d
}

package toolconv

import (
	"reflect"
	"sort"
	"testing"
)

func TestWalkSchema_VisitsNestedProperties(t *testing.T) {
	schemaMap := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"address": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			},
		},
	}

	var visited []string
	WalkSchema(schemaMap, func(path string, node map[string]any) {
		visited = append(visited, path)
	})
	sort.Strings(visited)

	want := []string{"", "address", "address.city", "name"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}

func TestWalkSchema_DescendsIntoItems(t *testing.T) {
	schemaMap := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "description": "an item"},
	}

	var descriptions []string
	WalkSchema(schemaMap, func(path string, node map[string]any) {
		if d := Description(node); d != "" {
			descriptions = append(descriptions, d)
		}
	})
	if len(descriptions) != 1 || descriptions[0] != "an item" {
		t.Errorf("descriptions = %v, want [\"an item\"]", descriptions)
	}
}

func TestSchemaType(t *testing.T) {
	if got := SchemaType(map[string]any{"type": "string"}); got != "STRING" {
		t.Errorf("SchemaType() = %q, want STRING", got)
	}
	if got := SchemaType(map[string]any{}); got != "" {
		t.Errorf("SchemaType() = %q, want empty", got)
	}
}

func TestStringEnum(t *testing.T) {
	node := map[string]any{"enum": []any{"a", "b", 3}}
	got := StringEnum(node)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StringEnum() = %v, want %v", got, want)
	}
}

func TestRequiredFields(t *testing.T) {
	node := map[string]any{"required": []any{"name", "age"}}
	got := RequiredFields(node)
	want := []string{"name", "age"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RequiredFields() = %v, want %v", got, want)
	}
}

func TestDescription(t *testing.T) {
	if got := Description(map[string]any{"description": "hi"}); got != "hi" {
		t.Errorf("Description() = %q, want hi", got)
	}
	if got := Description(map[string]any{}); got != "" {
		t.Errorf("Description() = %q, want empty", got)
	}
}

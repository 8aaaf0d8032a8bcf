package config

import (
	"encoding/json"
	"testing"
)

func TestFunctionsJSONSchema_DefinesFunctionAndVariantSpecs(t *testing.T) {
	raw, err := FunctionsJSONSchema()
	if err != nil {
		t.Fatalf("FunctionsJSONSchema() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}

	defs, ok := doc["$defs"].(map[string]any)
	if !ok {
		t.Fatalf("schema missing $defs: %v", doc)
	}
	if _, ok := defs["VariantSpec"]; !ok {
		t.Errorf("$defs missing VariantSpec; got keys %v", keysOf(defs))
	}
	if _, ok := defs["FunctionSpec"]; !ok {
		t.Errorf("$defs missing FunctionSpec; got keys %v", keysOf(defs))
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

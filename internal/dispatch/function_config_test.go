package dispatch

import (
	"testing"

	"github.com/vectorcast/gateway/internal/config"
	"github.com/vectorcast/gateway/internal/variant"
)

func TestNewFunctionConfig_CarriesWeightThreeWayDistinction(t *testing.T) {
	a := &fakeVariant{name: "a"}
	b := &fakeVariant{name: "b"}
	c := &fakeVariant{name: "c"}

	spec := config.FunctionSpec{
		Type: "chat",
		Variants: map[string]config.VariantSpec{
			"a": {Type: "chat_completion", Weight: weight(0.5)},
			"b": {Type: "chat_completion", Weight: weight(0)},
			"c": {Type: "chat_completion"}, // omitted
		},
	}
	built := map[string]variant.Variant{"a": a, "b": b, "c": c}

	fc, err := NewFunctionConfig("greet", spec, built)
	if err != nil {
		t.Fatalf("NewFunctionConfig() error = %v", err)
	}
	if fc.Name != "greet" {
		t.Errorf("Name = %q, want greet", fc.Name)
	}
	if len(fc.Variants) != 3 {
		t.Fatalf("len(Variants) = %d, want 3", len(fc.Variants))
	}

	byName := make(map[string]VariantEntry, len(fc.Variants))
	for _, ve := range fc.Variants {
		byName[ve.Name] = ve
	}

	if w := byName["a"].Weight; w == nil || *w != 0.5 {
		t.Errorf("a.Weight = %v, want 0.5", w)
	}
	if w := byName["b"].Weight; w == nil || *w != 0 {
		t.Errorf("b.Weight = %v, want non-nil 0", w)
	}
	if w := byName["c"].Weight; w != nil {
		t.Errorf("c.Weight = %v, want nil (omitted)", w)
	}
}

func TestNewFunctionConfig_MissingBuiltVariantErrors(t *testing.T) {
	spec := config.FunctionSpec{
		Variants: map[string]config.VariantSpec{
			"a": {Type: "chat_completion", Weight: weight(1)},
		},
	}
	_, err := NewFunctionConfig("greet", spec, map[string]variant.Variant{})
	if err == nil {
		t.Fatal("NewFunctionConfig() error = nil, want error for unresolved variant")
	}
}

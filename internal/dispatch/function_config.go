package dispatch

import (
	"fmt"

	"github.com/vectorcast/gateway/internal/config"
	"github.com/vectorcast/gateway/internal/variant"
)

// NewFunctionConfig resolves a declarative config.FunctionSpec into the
// runtime FunctionConfig the Function Dispatcher dispatches against.
// variants supplies the already-built variant.Variant for every name the
// spec references — constructing a live Variant (wiring its model,
// templates, and credentials) is the out-of-scope application layer's job;
// this function only carries the spec's weight declarations across into
// VariantEntry.Weight, preserving the omitted/zero/positive distinction
// (§4.5.4) exactly as written in config_functions.go's VariantSpec.
func NewFunctionConfig(name string, spec config.FunctionSpec, variants map[string]variant.Variant) (FunctionConfig, error) {
	entries := make([]VariantEntry, 0, len(spec.Variants))
	for variantName, vs := range spec.Variants {
		v, ok := variants[variantName]
		if !ok {
			return FunctionConfig{}, fmt.Errorf("function %q: no built variant for %q", name, variantName)
		}
		entries = append(entries, VariantEntry{
			Name:    variantName,
			Variant: v,
			Weight:  vs.Weight,
		})
	}
	return FunctionConfig{Name: name, Variants: entries}, nil
}

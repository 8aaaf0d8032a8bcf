package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderEntry is one (provider_name, provider_config) pair in a Model's
// ordered provider list (§4.2).
type ProviderEntry struct {
	ProviderName string
	Credential   CredentialStrategy
}

// Model is a named, ordered list of providers used for failover (§3, §4.2).
type Model struct {
	Name      string
	Providers []ProviderEntry
}

// Attempt records one provider's outcome for the composite error and for
// observability (§4.2, §7 "Composite errors preserve each attempt's
// provider/variant name and message").
type Attempt struct {
	Provider string
	Err      error
}

// RunFunc performs one provider call and returns its result.
type RunFunc[T any] func(ctx context.Context, provider ProviderEntry) (T, error)

// OnAttempt is invoked after every failed attempt, before deciding whether
// to continue. It mirrors the teacher's OnErrorFunc callback in
// internal/models/fallback.go, used there to drive observability/metrics.
type OnAttempt func(attempt Attempt, attemptIndex, total int)

// Result is the outcome of RunWithFallback: the winning provider plus the
// full attempt history (including failed attempts before the winner).
type Result[T any] struct {
	Value    T
	Provider string
	Attempts []Attempt
}

// AllFailedError is the composite error produced when every provider in a
// Model's list has failed (§4.2 step 4, §8 property 6).
type AllFailedError struct {
	Model    string
	Attempts []Attempt
}

func (e *AllFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all providers failed for model %q:", e.Model)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", a.Provider, a.Err.Error())
	}
	return b.String()
}

// RunWithFallback implements the Model Router algorithm of §4.2:
//  1. Try providers in declaration order.
//  2. On InferenceClient with a 4xx status (except 429) → stop, surface
//     that error immediately (not wrapped in AllFailedError).
//  3. On any other adapter error (including 429) → record the attempt,
//     continue to the next provider.
//  4. If every provider fails → return *AllFailedError listing every
//     attempt's provider and message.
//
// This generalizes internal/models/fallback.go's RunWithModelFallback[T]
// (which continues-on-any-failover-class-error) to the exact stop/continue
// split spec.md requires.
func RunWithFallback[T any](ctx context.Context, model Model, run RunFunc[T], onAttempt OnAttempt) (*Result[T], error) {
	var attempts []Attempt

	for i, provider := range model.Providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, err := run(ctx, provider)
		if err == nil {
			return &Result[T]{Value: value, Provider: provider.ProviderName, Attempts: attempts}, nil
		}

		attempt := Attempt{Provider: provider.ProviderName, Err: err}
		attempts = append(attempts, attempt)
		if onAttempt != nil {
			onAttempt(attempt, i, len(model.Providers))
		}

		if ShouldStopRouting(err) {
			return nil, err
		}
		// InferenceServer (covers 429) and any other error: continue.
	}

	return nil, &AllFailedError{Model: model.Name, Attempts: attempts}
}

// Logger is the package-level structured logger, grounded on
// internal/observability/logging.go's pattern of a single package logger
// with request-scoped attributes attached via With(...) at call sites.
var Logger = slog.Default()

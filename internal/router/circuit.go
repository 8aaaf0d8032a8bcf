package router

import (
	"sync"
	"time"
)

// CircuitConfig tunes the per-provider circuit breaker, grounded on
// internal/agent/failover.go's FailoverConfig.
type CircuitConfig struct {
	FailureThreshold int
	OpenDuration     time.Duration
}

func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{FailureThreshold: 5, OpenDuration: 30 * time.Second}
}

type providerState struct {
	failures    int
	openedAt    time.Time
	circuitOpen bool
}

// CircuitBreaker tracks consecutive-failure state per provider name and
// opens a circuit after FailureThreshold consecutive failures, closing it
// again after OpenDuration elapses. Grounded on
// internal/agent/failover.go's ProviderState/IsAvailable. This is an
// optional wrapper composed around RunWithFallback by callers that want
// circuit-breaking in addition to per-request failover; it is not required
// by §4.2 itself.
type CircuitBreaker struct {
	mu     sync.Mutex
	config CircuitConfig
	states map[string]*providerState
}

func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultCircuitConfig().FailureThreshold
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = DefaultCircuitConfig().OpenDuration
	}
	return &CircuitBreaker{config: config, states: make(map[string]*providerState)}
}

// Available reports whether provider may currently be tried.
func (cb *CircuitBreaker) Available(provider string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[provider]
	if !ok || !st.circuitOpen {
		return true
	}
	if time.Since(st.openedAt) >= cb.config.OpenDuration {
		// half-open: allow a probe attempt.
		st.circuitOpen = false
		st.failures = 0
		return true
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if st, ok := cb.states[provider]; ok {
		st.failures = 0
		st.circuitOpen = false
	}
}

func (cb *CircuitBreaker) RecordFailure(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st, ok := cb.states[provider]
	if !ok {
		st = &providerState{}
		cb.states[provider] = st
	}
	st.failures++
	if st.failures >= cb.config.FailureThreshold {
		st.circuitOpen = true
		st.openedAt = time.Now()
	}
}

// Reset clears the breaker state for one provider, or all providers if name
// is empty.
func (cb *CircuitBreaker) Reset(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if provider == "" {
		cb.states = make(map[string]*providerState)
		return
	}
	delete(cb.states, provider)
}

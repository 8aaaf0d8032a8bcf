// Package canon defines the provider-neutral request, message, response, and
// chunk types shared by every adapter, variant, and router in the gateway.
package canon

import "github.com/google/uuid"

// NewID mints a time-ordered identifier (UUIDv7) suitable for inference_id,
// episode_id, and batch_id. Time ordering keeps log queries monotone even
// when ids are generated across multiple goroutines.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the global RNG cannot be read; fall back to a
		// random v4 rather than panicking on a hot path.
		return uuid.New().String()
	}
	return id.String()
}

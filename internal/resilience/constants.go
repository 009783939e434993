package resilience

import "time"

// Breaker defaults tuned for a recognizer called a few times per second.
const (
	DefaultThreshold         = 5
	DefaultCooldown          = 10 * time.Second
	DefaultHalfOpenSuccesses = 2
)

// Retry defaults.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 100 * time.Millisecond
	DefaultMaxDelay   = time.Second
	DefaultJitter     = 0.2
)

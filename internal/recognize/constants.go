package recognize

import "time"

const (
	// DefaultTimeout bounds one recognition call.
	DefaultTimeout = 2 * time.Second

	// gRPC keepalive for the remote recognizer connection.
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// HealthCheckTimeout bounds the startup probe.
	HealthCheckTimeout = 2 * time.Second

	// MaxMessageSize allows full-screen PNG frames.
	MaxMessageSize = 32 << 20
)

// DefaultTargets are the button labels watched for when none are configured.
var DefaultTargets = []string{"Confirm", "Continue", "Approve"}

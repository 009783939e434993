// Package server exposes the monitor over HTTP and a websocket stream.
package server

import "time"

const (
	// DefaultRateLimit commands per DefaultRateWindow per websocket connection.
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Second

	// clientBuffer is the per-connection outbound queue; a full queue drops.
	clientBuffer = 64

	// helloActivity is how many activity lines a new client receives.
	helloActivity = 20

	// DefaultActivityLimit bounds GET /api/activity without ?n=.
	DefaultActivityLimit = 50

	writeTimeout = 5 * time.Second
	maxBodyBytes = 1 << 16
)

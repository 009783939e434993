package monitor

import "time"

const (
	// EventBuffer is the capacity of the event channel; overflow is dropped.
	EventBuffer = 64

	// ActivityCapacity is the number of activity lines retained.
	ActivityCapacity = 200

	// stopTimeout bounds how long Stop waits for the frame loop.
	stopTimeout = 5 * time.Second
)

package screen

import "time"

const (
	// DefaultFPS is the capture rate when none is configured.
	DefaultFPS = 2

	// MaxFPS bounds the capture rate; OCR cannot keep up beyond this.
	MaxFPS = 30

	// DefaultHashDistance is the pHash Hamming distance at or below which two
	// frames count as unchanged. Zero means identical hashes only.
	DefaultHashDistance = 0

	// execTimeout bounds a single screenshot tool invocation.
	execTimeout = 5 * time.Second
)

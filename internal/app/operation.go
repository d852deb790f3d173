package app

import "github.com/google/uuid"

// Run identifies a single CLI invocation. The ID tags every log line the
// invocation produces, so interleaved runs can be separated in forg.log.
type Run struct {
	ID      string
	Command string
}

// NewRun creates a Run for the named command with a fresh random ID.
func NewRun(command string) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Command: command,
	}
}

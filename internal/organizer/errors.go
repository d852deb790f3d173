package organizer

import "errors"

// Sentinel errors for the failure classes the pipeline distinguishes.
// Per-file read failures are ordinary wrapped I/O errors: they are logged,
// the file is skipped, and the batch continues.
var (
	// ErrInvalidArgument reports a caller mistake (unknown retention strategy,
	// threshold outside [0,1]). Fatal to the call, never to the run.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorage reports that the audit store is unavailable. The caller
	// decides whether to continue without persistence or abort.
	ErrStorage = errors.New("audit storage unavailable")

	// ErrModelUnavailable reports a missing embedding or classification model.
	// It triggers the fallback path (binary-hash signatures, heuristic
	// classification) rather than a failure.
	ErrModelUnavailable = errors.New("model unavailable")
)

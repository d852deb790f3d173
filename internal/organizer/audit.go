package organizer

import (
	"time"

	"forg/internal/model"
)

// AuditLog is the append-only record of every operation plus the latest
// metadata snapshot per file path. It is the single shared mutable resource
// of a run: implementations must serialize writes, and readers observe a
// consistent snapshot as of query time.
//
// The log is injected into every component that performs side-effecting or
// fallible work; there is no process-global logger.
type AuditLog interface {
	// Append writes one operation entry. It never fails silently: if the
	// underlying store is unavailable the returned error wraps ErrStorage
	// and the caller decides whether to continue without persistence.
	Append(entry model.OperationLogEntry) error

	// RecordMetadata upserts the snapshot for its path; the latest snapshot
	// replaces any prior one.
	RecordMetadata(snapshot model.FileMetadataSnapshot) error

	// LatestMetadata returns the current snapshot for a path, or nil if the
	// path has never been recorded.
	LatestMetadata(path string) (*model.FileMetadataSnapshot, error)

	// History returns the most recent entries, newest first, bounded by limit.
	History(limit int) ([]model.OperationLogEntry, error)

	// Report aggregates operations by (type, status) within the optional
	// time window. Nil bounds mean unbounded on that side.
	Report(start, end *time.Time) (*model.Report, error)

	// Close flushes and closes the underlying store.
	Close() error
}

// AppendOperation is a convenience for building and appending an entry.
func AppendOperation(log AuditLog, clock Clock, opType model.OperationType, source, destination string, status model.OperationStatus, details string) error {
	return log.Append(model.OperationLogEntry{
		Timestamp:       clock.Now(),
		Type:            opType,
		SourcePath:      source,
		DestinationPath: destination,
		Status:          status,
		Details:         details,
	})
}

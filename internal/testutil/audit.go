package testutil

import (
	"testing"

	"forg/internal/audit"
	"forg/internal/organizer"
)

// NewTestAuditLog creates an in-memory SQLite audit log with migrations
// applied. The log is automatically closed when the test completes.
func NewTestAuditLog(t *testing.T) organizer.AuditLog {
	t.Helper()

	log, err := audit.NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}

	t.Cleanup(func() {
		log.Close()
	})

	return log
}

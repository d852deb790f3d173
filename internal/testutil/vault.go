package testutil

import (
	"forg/internal/organizer"
	"forg/internal/vault"
)

// NewTestVault creates a new in-memory archive vault for testing.
func NewTestVault() organizer.ArchiveVault {
	return vault.NewMemoryVault("test-vault")
}

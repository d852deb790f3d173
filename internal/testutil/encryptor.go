package testutil

import (
	"forg/internal/encryption"
	"forg/internal/organizer"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() organizer.Encryptor {
	return encryption.NewTestEncryptor()
}

package encryption

import (
	"fmt"

	"forg/internal/config"
	"forg/internal/organizer"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (and the empty default) disables encryption: archived content is
// stored as-is, and nil is returned.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (organizer.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

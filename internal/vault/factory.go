package vault

import (
	"fmt"

	"forg/internal/config"
	"forg/internal/organizer"
)

// NewVaultFromConfig creates an ArchiveVault implementation based on the
// archive config type. Type "none" (and the empty default) disables archival:
// removed duplicates are deleted without a recoverable copy, and nil is
// returned for the vault.
func NewVaultFromConfig(cfg config.ArchiveConfig) (organizer.ArchiveVault, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		v, err := NewS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown archive vault type: %s", cfg.Type)
	}
}

package audit

import (
	"fmt"
	"path/filepath"

	"forg/internal/config"
	"forg/internal/organizer"
)

// NewLogFromConfig creates an AuditLog implementation based on the audit config type.
func NewLogFromConfig(cfg config.AuditConfig) (organizer.AuditLog, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite audit log")
		}
		return NewSQLiteLog(filepath.Join(cfg.DataDir, "forg.db"))
	case "memory":
		return NewSQLiteLog(":memory:")
	default:
		return nil, fmt.Errorf("unknown audit log type: %s", cfg.Type)
	}
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for forg.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Audit      AuditConfig      `toml:"audit"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Organize   OrganizeConfig   `toml:"organize"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Classifier ClassifierConfig `toml:"classifier"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// AuditConfig represents configuration for the audit log store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type AuditConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EmbeddingConfig selects the embedding capability used for text similarity.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EmbeddingConfig struct {
	Type string `toml:"type"` // "openai", "hashing", or "none"

	// OpenAI-specific fields (only used when Type == "openai").
	// The API key is read from the environment variable named by APIKeyEnv,
	// never from the config file itself.
	BaseURL   string `toml:"base_url,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"`

	// Dimensions of the produced vectors (only used when Type == "hashing").
	Dimensions int `toml:"dimensions,omitempty"`
}

// OrganizeConfig holds defaults for organization runs.
type OrganizeConfig struct {
	Recursive           bool    `toml:"recursive"`
	DetectDuplicates    bool    `toml:"detect_duplicates"`
	SimilarityThreshold float64 `toml:"similarity_threshold"` // in [0,1]
	Strategy            string  `toml:"strategy"`             // newest, oldest, largest, smallest
	Workers             int     `toml:"workers"`              // hashing/scoring parallelism; 0 = single-threaded
}

// ArchiveConfig represents configuration for the removal archive vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem", or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt archived content.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test", or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ClassifierConfig holds settings for the trainable text classifier.
type ClassifierConfig struct {
	ModelPath string `toml:"model_path,omitempty"` // trained model location; empty = heuristic only
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config with the provided values and sensible defaults.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Audit: AuditConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Embedding: EmbeddingConfig{
			Type:       "hashing",
			Dimensions: 256,
		},
		Organize: OrganizeConfig{
			Recursive:           true,
			DetectDuplicates:    true,
			SimilarityThreshold: 0.95,
			Strategy:            "newest",
			Workers:             4,
		},
		Archive: ArchiveConfig{
			Type: "none",
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "forg.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "forg.key"),
		},
		Classifier: ClassifierConfig{
			ModelPath: filepath.Join(baseDir, "data", "text_classifier.json"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

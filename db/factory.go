package db

import (
	"fmt"
	"path/filepath"
)

// BackendType represents the type of storage backend
type BackendType string

const (
	// LevelDBBackend uses the LevelDB implementation
	LevelDBBackend BackendType = "leveldb"

	// BoltBackend uses the single-file bbolt implementation
	BoltBackend BackendType = "bolt"

	// MemoryBackend keeps everything in-process; nothing survives a restart
	MemoryBackend BackendType = "memory"
)

// ProviderConfig holds configuration for creating a database provider
type ProviderConfig struct {
	// Type specifies which backend to use
	Type BackendType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based backends)
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the provider configuration
func (pc *ProviderConfig) Validate() error {
	if pc.Type == "" {
		return fmt.Errorf("backend type cannot be empty")
	}

	switch pc.Type {
	case MemoryBackend:
		return nil
	case LevelDBBackend, BoltBackend:
		if pc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for backend %s", pc.Type)
		}
		return nil
	default:
		return fmt.Errorf("unsupported backend type: %s", pc.Type)
	}
}

// NewProvider creates a database provider based on the configuration
func NewProvider(config *ProviderConfig) (DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBBackend:
		return NewLevelDBProvider(config.Directory)

	case BoltBackend:
		return NewBoltProvider(filepath.Join(config.Directory, "wallet.db"))

	case MemoryBackend:
		return NewMemoryProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

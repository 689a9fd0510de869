package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"meshwallet/db"
	"meshwallet/logx"
)

const (
	DefaultPageSize      = 100
	DefaultQueryRetries  = 5
	DefaultRetryDelaySec = 1
	DefaultDebounceMs    = 100
	DefaultDialTimeout   = 10
)

// LoadWalletConfig reads and parses the wallet.yml file
func LoadWalletConfig(path string) (*WalletConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		logx.Error("CONFIG", fmt.Sprintf("Failed to open config file %s: %v", path, err))
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		logx.Error("CONFIG", fmt.Sprintf("Failed to decode YAML: %v", err))
		return nil, err
	}

	cfg := cfgFile.Config
	applyDefaults(&cfg)

	if cfg.Node.Endpoint == "" {
		return nil, fmt.Errorf("node.endpoint is required")
	}

	logx.Info("CONFIG", fmt.Sprintf("Loaded config: endpoint=%s backend=%s page_size=%d", cfg.Node.Endpoint, cfg.Storage.Backend, cfg.Sync.PageSize))
	return &cfg, nil
}

func applyDefaults(cfg *WalletConfig) {
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = DefaultPageSize
	}
	if cfg.Sync.QueryRetries == 0 {
		cfg.Sync.QueryRetries = DefaultQueryRetries
	}
	if cfg.Sync.RetryDelaySec == 0 {
		cfg.Sync.RetryDelaySec = DefaultRetryDelaySec
	}
	if cfg.Sync.DebounceMs == 0 {
		cfg.Sync.DebounceMs = DefaultDebounceMs
	}
	if cfg.Node.DialTimeoutSec == 0 {
		cfg.Node.DialTimeoutSec = DefaultDialTimeout
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = db.LevelDBBackend
	}
	if cfg.Storage.Directory == "" {
		cfg.Storage.Directory = "./data"
	}
}

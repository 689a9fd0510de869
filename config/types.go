package config

import "meshwallet/db"

// NodeConfig points the wallet at one remote node
type NodeConfig struct {
	Endpoint       string `yaml:"endpoint"`
	DialTimeoutSec int    `yaml:"dial_timeout_sec"`
}

// SyncConfig tunes backfill and live-subscription behavior
type SyncConfig struct {
	PageSize      uint64 `yaml:"page_size"`
	QueryRetries  int    `yaml:"query_retries"`
	RetryDelaySec int    `yaml:"retry_delay_sec"`
	DebounceMs    int    `yaml:"debounce_ms"`
}

// StorageConfig selects the durable storage backend
type StorageConfig struct {
	Backend   db.BackendType `yaml:"backend"`
	Directory string         `yaml:"directory"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// WalletConfig holds the configuration from wallet.yml
type WalletConfig struct {
	Node    NodeConfig    `yaml:"node"`
	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ConfigFile is the top-level structure for wallet.yml
type ConfigFile struct {
	Config WalletConfig `yaml:"config"`
}

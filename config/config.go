// Package config handles node configuration.
//
// Settings are resolved in order of increasing precedence: built-in
// defaults, the ledgerd.conf file, LEDGERD_* environment variables
// (optionally loaded from a .env file) and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the node configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	Ledger    LedgerConfig
	Genesis   GenesisConfig
	Mempool   MempoolConfig
	Assembler AssemblerConfig
	Storage   StorageConfig
	RPC       RPCConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

// LedgerConfig holds branching ledger settings.
type LedgerConfig struct {
	CutOffAge      int     `conf:"ledger.cutoff_age"`
	CoinbaseReward float64 `conf:"ledger.coinbase_reward"`
	VerifyWorkers  int     `conf:"ledger.verify_workers"` // 0 = sequential signature checks
}

// GenesisConfig describes the genesis block. Every node of a network must
// use the same values.
type GenesisConfig struct {
	Owner      string  `conf:"genesis.owner"` // hex compressed key or PEM
	Allocation float64 `conf:"genesis.allocation"`
}

// MempoolConfig holds mempool settings.
type MempoolConfig struct {
	MaxSize    int           `conf:"mempool.max_size"`
	MaxTxSize  int           `conf:"mempool.max_tx_size"`
	MaxInputs  int           `conf:"mempool.max_inputs"`
	MaxOutputs int           `conf:"mempool.max_outputs"`
	Expiry     time.Duration `conf:"mempool.expiry"` // 0 = never expire
}

// AssemblerConfig holds block assembly settings.
type AssemblerConfig struct {
	Enabled     bool          `conf:"assembler.enabled"`
	Interval    time.Duration `conf:"assembler.interval"`
	RewardOwner string        `conf:"assembler.reward_owner"` // hex compressed key or PEM
	MaxBlockTxs int           `conf:"assembler.max_block_txs"`
}

// StorageConfig holds archive storage settings.
type StorageConfig struct {
	Backend string `conf:"storage.backend"` // memory or badger
	Archive bool   `conf:"storage.archive"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig controls the Prometheus endpoint on the RPC server.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ledgerd
//	macOS:   ~/Library/Application Support/Ledgerd
//	Windows: %APPDATA%\Ledgerd
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ledgerd"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Ledgerd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Ledgerd")
		}
		return filepath.Join(home, "AppData", "Roaming", "Ledgerd")
	default:
		return filepath.Join(home, ".ledgerd")
	}
}

// ArchiveDir returns the block archive directory.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "archive")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ledgerd.conf")
}

// EnvFile returns the .env file path.
func (c *Config) EnvFile() string {
	return filepath.Join(c.DataDir, ".env")
}

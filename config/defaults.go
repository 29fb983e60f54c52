package config

import (
	"time"

	"github.com/Klingon-tech/ledgernode/internal/assembler"
	"github.com/Klingon-tech/ledgernode/internal/chain"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/storage"
)

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Ledger: LedgerConfig{
			CutOffAge:      chain.DefaultCutOffAge,
			CoinbaseReward: assembler.DefaultReward,
			VerifyWorkers:  4,
		},
		Genesis: GenesisConfig{
			Allocation: assembler.DefaultReward,
		},
		Mempool: MempoolConfig{
			MaxSize:    mempool.DefaultMaxSize,
			MaxTxSize:  mempool.DefaultMaxTxSize,
			MaxInputs:  mempool.DefaultMaxInputs,
			MaxOutputs: mempool.DefaultMaxOutputs,
			Expiry:     time.Hour,
		},
		Assembler: AssemblerConfig{
			Enabled:     false,
			Interval:    10 * time.Second,
			MaxBlockTxs: 0,
		},
		Storage: StorageConfig{
			Backend: storage.BackendMemory,
			Archive: true,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8645,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

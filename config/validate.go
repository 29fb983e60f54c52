package config

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/storage"
)

// Validate checks the node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must be set")
	}

	if cfg.Ledger.CutOffAge < 1 {
		return fmt.Errorf("ledger.cutoff_age must be at least 1")
	}
	if !validAmount(cfg.Ledger.CoinbaseReward) {
		return fmt.Errorf("ledger.coinbase_reward must be a finite non-negative amount")
	}
	if cfg.Ledger.VerifyWorkers < 0 {
		return fmt.Errorf("ledger.verify_workers must not be negative")
	}

	if !validAmount(cfg.Genesis.Allocation) {
		return fmt.Errorf("genesis.allocation must be a finite non-negative amount")
	}
	if cfg.Genesis.Owner != "" {
		if _, err := ParseOwner(cfg.Genesis.Owner); err != nil {
			return fmt.Errorf("genesis.owner: %w", err)
		}
	}

	if cfg.Mempool.MaxSize < 0 || cfg.Mempool.MaxTxSize < 0 ||
		cfg.Mempool.MaxInputs < 0 || cfg.Mempool.MaxOutputs < 0 {
		return fmt.Errorf("mempool limits must not be negative")
	}
	if cfg.Mempool.Expiry < 0 {
		return fmt.Errorf("mempool.expiry must not be negative")
	}

	if cfg.Assembler.MaxBlockTxs < 0 {
		return fmt.Errorf("assembler.max_block_txs must not be negative")
	}
	if cfg.Assembler.Enabled {
		if cfg.Assembler.Interval <= 0 {
			return fmt.Errorf("assembler.interval must be positive")
		}
		if cfg.Assembler.RewardOwner == "" {
			return fmt.Errorf("assembler.reward_owner is required when assembly is enabled")
		}
	}
	if cfg.Assembler.RewardOwner != "" {
		if _, err := ParseOwner(cfg.Assembler.RewardOwner); err != nil {
			return fmt.Errorf("assembler.reward_owner: %w", err)
		}
	}

	switch cfg.Storage.Backend {
	case storage.BackendMemory, storage.BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be %q or %q", storage.BackendMemory, storage.BackendBadger)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

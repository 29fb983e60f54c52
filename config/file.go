package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads key = value pairs from a .conf file. Lines starting with
// # are comments. A missing file yields no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// Keys lists every recognized configuration key.
var Keys = []string{
	"datadir",
	"ledger.cutoff_age", "ledger.coinbase_reward", "ledger.verify_workers",
	"genesis.owner", "genesis.allocation",
	"mempool.max_size", "mempool.max_tx_size", "mempool.max_inputs", "mempool.max_outputs", "mempool.expiry",
	"assembler.enabled", "assembler.interval", "assembler.reward_owner", "assembler.max_block_txs",
	"storage.backend", "storage.archive",
	"rpc.enabled", "rpc.addr", "rpc.port", "rpc.allowed", "rpc.cors",
	"metrics.enabled",
	"log.level", "log.file", "log.json",
}

// setConfigValue sets a config value by key. Unknown keys are ignored.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "datadir":
		cfg.DataDir = value

	// Ledger
	case "ledger.cutoff_age":
		cfg.Ledger.CutOffAge, err = strconv.Atoi(value)
	case "ledger.coinbase_reward":
		cfg.Ledger.CoinbaseReward, err = strconv.ParseFloat(value, 64)
	case "ledger.verify_workers":
		cfg.Ledger.VerifyWorkers, err = strconv.Atoi(value)

	// Genesis
	case "genesis.owner":
		cfg.Genesis.Owner = value
	case "genesis.allocation":
		cfg.Genesis.Allocation, err = strconv.ParseFloat(value, 64)

	// Mempool
	case "mempool.max_size":
		cfg.Mempool.MaxSize, err = strconv.Atoi(value)
	case "mempool.max_tx_size":
		cfg.Mempool.MaxTxSize, err = strconv.Atoi(value)
	case "mempool.max_inputs":
		cfg.Mempool.MaxInputs, err = strconv.Atoi(value)
	case "mempool.max_outputs":
		cfg.Mempool.MaxOutputs, err = strconv.Atoi(value)
	case "mempool.expiry":
		cfg.Mempool.Expiry, err = time.ParseDuration(value)

	// Assembler
	case "assembler.enabled", "assemble":
		cfg.Assembler.Enabled = parseBool(value)
	case "assembler.interval":
		cfg.Assembler.Interval, err = time.ParseDuration(value)
	case "assembler.reward_owner":
		cfg.Assembler.RewardOwner = value
	case "assembler.max_block_txs":
		cfg.Assembler.MaxBlockTxs, err = strconv.Atoi(value)

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = strings.ToLower(value)
	case "storage.archive":
		cfg.Storage.Archive = parseBool(value)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		cfg.RPC.Port, err = strconv.Atoi(value)
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a commented default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# ledgerd node configuration
#
# Values set here are overridden by LEDGERD_* environment variables
# (also read from <datadir>/.env) and by command-line flags.

# Data directory (default: ~/.ledgerd)
# datadir = ~/.ledgerd

# ============================================================================
# Ledger
# ============================================================================

# Branches this many blocks behind the tallest one are discarded.
ledger.cutoff_age = 10
ledger.coinbase_reward = 25.0
# Goroutines used to pre-verify signatures (0 = sequential)
ledger.verify_workers = 4

# ============================================================================
# Genesis (must match across nodes)
# ============================================================================

# genesis.owner = <hex compressed public key>
genesis.allocation = 25.0

# ============================================================================
# Mempool
# ============================================================================

mempool.max_size = 5000
mempool.max_tx_size = 100000
mempool.max_inputs = 1000
mempool.max_outputs = 1000
mempool.expiry = 1h

# ============================================================================
# Block Assembly
# ============================================================================

assembler.enabled = false
assembler.interval = 10s
# assembler.reward_owner = <hex compressed public key>
# Cap on mempool transactions per block (0 = unlimited)
assembler.max_block_txs = 0

# ============================================================================
# Storage
# ============================================================================

# memory or badger
storage.backend = memory
# Keep blocks that leave the retained window
storage.archive = true

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = 8645
rpc.allowed = 127.0.0.1
# rpc.cors = http://localhost:3000

# Serve Prometheus metrics on /metrics
metrics.enabled = true

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

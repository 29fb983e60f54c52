package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrHelp is returned by ParseFlags when usage was requested.
var ErrHelp = flag.ErrHelp

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string

	// Ledger
	CutOffAge     int
	VerifyWorkers int

	// Genesis
	GenesisOwner string

	// Assembler
	Assemble         bool
	AssembleInterval time.Duration
	RewardOwner      string

	// Storage
	Backend string

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero-value overrides).
	SetAssemble      bool
	SetRPC           bool
	SetLogJSON       bool
	SetVerifyWorkers bool
}

// ParseFlags parses command-line arguments, excluding the program name.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Ledger
	fs.IntVar(&f.CutOffAge, "cutoff-age", 0, "Height deficit at which branches are discarded")
	fs.IntVar(&f.VerifyWorkers, "verify-workers", 0, "Signature verification goroutines (0 = sequential)")
	fs.StringVar(&f.GenesisOwner, "genesis-owner", "", "Owner key of the genesis allocation")

	// Assembler
	fs.BoolVar(&f.Assemble, "assemble", false, "Enable periodic block assembly")
	fs.DurationVar(&f.AssembleInterval, "assemble-interval", 0, "Block assembly interval")
	fs.StringVar(&f.RewardOwner, "reward-owner", "", "Owner key receiving block rewards")

	// Storage
	fs.StringVar(&f.Backend, "storage", "", "Archive storage backend (memory or badger)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetAssemble = isFlagSet(fs, "assemble")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetVerifyWorkers = isFlagSet(fs, "verify-workers")

	f.Args = fs.Args()
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Ledger
	if f.CutOffAge != 0 {
		cfg.Ledger.CutOffAge = f.CutOffAge
	}
	if f.SetVerifyWorkers {
		cfg.Ledger.VerifyWorkers = f.VerifyWorkers
	}
	if f.GenesisOwner != "" {
		cfg.Genesis.Owner = f.GenesisOwner
	}

	// Assembler
	if f.SetAssemble {
		cfg.Assembler.Enabled = f.Assemble
	}
	if f.AssembleInterval != 0 {
		cfg.Assembler.Interval = f.AssembleInterval
	}
	if f.RewardOwner != "" {
		cfg.Assembler.RewardOwner = f.RewardOwner
	}

	// Storage
	if f.Backend != "" {
		cfg.Storage.Backend = strings.ToLower(f.Backend)
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the command-line help.
func PrintUsage(w io.Writer) {
	usage := `ledgerd - branching UTXO ledger node

Usage:
  ledgerd [options]
  ledgerd --help

Commands:
  --help, -h          Show this help message
  --version, -v       Show version information

Core Options:
  --datadir           Data directory (default: ~/.ledgerd)
  --config, -c        Config file path (default: <datadir>/ledgerd.conf)

Ledger Options:
  --cutoff-age        Height deficit at which branches are discarded (default: 10)
  --verify-workers    Signature verification goroutines, 0 = sequential (default: 4)
  --genesis-owner     Owner key of the genesis allocation (hex or PEM)

Assembly Options:
  --assemble          Enable periodic block assembly
  --assemble-interval Block assembly interval (default: 10s)
  --reward-owner      Owner key receiving block rewards (hex or PEM)

Storage Options:
  --storage           Archive backend: memory (default) or badger

RPC Options:
  --rpc               Enable RPC server (default: true)
  --rpc-addr          RPC listen address (default: 127.0.0.1)
  --rpc-port          RPC port (default: 8645)
  --rpc-allowed       Allowed IPs for RPC (comma-separated)
  --rpc-cors          Allowed CORS origins for RPC (comma-separated)

Logging Options:
  --log-level         Log level: debug, info, warn, error (default: info)
  --log-file          Log file path (default: stdout)
  --log-json          Output logs as JSON

Environment:
  Every config key can be overridden with LEDGERD_<KEY>, dots replaced by
  underscores, e.g. LEDGERD_LEDGER_CUTOFF_AGE=20. Variables are also read
  from <datadir>/.env.
`
	fmt.Fprint(w, usage)
}

// Load resolves configuration with the following precedence:
// 1. Default values
// 2. Config file (created with defaults on first start)
// 3. Environment variables and <datadir>/.env
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help {
		return nil, flags, ErrHelp
	}

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	if err := LoadEnv(cfg.EnvFile()); err != nil {
		return nil, nil, fmt.Errorf("loading env file: %w", err)
	}
	if err := ApplyFileConfig(cfg, EnvValues()); err != nil {
		return nil, nil, fmt.Errorf("applying environment: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

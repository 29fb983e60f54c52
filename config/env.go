package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEDGERD_"

// EnvName returns the environment variable overriding key, for example
// LEDGERD_LEDGER_CUTOFF_AGE for ledger.cutoff_age.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnvValues collects the LEDGERD_* overrides present in the environment,
// keyed by config key.
func EnvValues() map[string]string {
	values := make(map[string]string)
	for _, key := range Keys {
		if v, ok := os.LookupEnv(EnvName(key)); ok {
			values[key] = v
		}
	}
	return values
}

package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/ledgernode/config"
	"github.com/Klingon-tech/ledgernode/internal/chain"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/pkg/block"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// genesisBlock builds the network's genesis block. An empty owner yields an
// unspendable allocation.
func genesisBlock(gc config.GenesisConfig) (*block.Block, error) {
	var owner []byte
	if gc.Owner != "" {
		var err error
		if owner, err = config.ParseOwner(gc.Owner); err != nil {
			return nil, fmt.Errorf("genesis owner: %w", err)
		}
	}
	return chain.NewGenesisBlock(owner, gc.Allocation), nil
}

// resolveRewardOwner decodes the configured reward owner. It returns nil
// when none is set.
func resolveRewardOwner(ac config.AssemblerConfig) ([]byte, error) {
	if ac.RewardOwner == "" {
		return nil, nil
	}
	owner, err := config.ParseOwner(ac.RewardOwner)
	if err != nil {
		return nil, fmt.Errorf("invalid reward owner: %w", err)
	}
	return owner, nil
}

// mempoolPolicy converts the mempool config into a policy.
func mempoolPolicy(mc config.MempoolConfig) *mempool.Policy {
	return &mempool.Policy{
		MaxTxSize:  mc.MaxTxSize,
		MaxInputs:  mc.MaxInputs,
		MaxOutputs: mc.MaxOutputs,
	}
}

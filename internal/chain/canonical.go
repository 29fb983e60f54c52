package chain

import (
	"fmt"

	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
)

// Canonical is a handle on the canonical branch, valid only inside the
// WithCanonical callback that received it.
type Canonical struct {
	l  *Ledger
	br *branch
}

// WithCanonical runs fn with exclusive access to the canonical branch.
// No other ledger operation runs until fn returns.
func (l *Ledger) WithCanonical(fn func(c *Canonical) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := &Canonical{l: l, br: l.branches[l.canonical]}
	defer func() { c.br = nil }()
	return fn(c)
}

func (c *Canonical) branch() *branch {
	if c.br == nil {
		panic("chain: Canonical used outside WithCanonical")
	}
	return c.br
}

// Tip returns the canonical tip block.
func (c *Canonical) Tip() *block.Block {
	return c.branch().tip().blk
}

// Height returns the canonical tip height.
func (c *Canonical) Height() uint64 {
	return c.branch().height()
}

// UTXOPool returns the live pool of the canonical branch. Mutations made
// through it must either be followed by Extend or be reverted before the
// callback returns.
func (c *Canonical) UTXOPool() *utxo.Pool {
	return c.branch().pool
}

// Extend appends blk, whose effects including the coinbase have already
// been applied to UTXOPool, as the new canonical tip. undo must revert
// exactly those effects.
func (c *Canonical) Extend(blk *block.Block, undo *utxo.Undo) error {
	br := c.branch()
	l := c.l
	if blk == nil {
		return ErrNilBlock
	}
	hash := blk.Finalize()
	if blk.PrevHash != br.tip().blk.Hash() {
		return fmt.Errorf("%w: prev %s, tip %s", ErrNotTip, blk.PrevHash.Short(), br.tip().blk.Hash().Short())
	}
	if l.containsLocked(hash) {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, hash.Short())
	}

	l.appendEntry(br, entry{blk: blk, height: br.height() + 1, undo: undo})
	l.reselectLocked()
	metrics.BlocksAccepted.Inc()

	l.logger.Debug().
		Str("hash", hash.Short()).
		Uint64("height", br.height()).
		Int("txs", len(blk.Transactions)).
		Msg("Extended canonical branch")

	// Extending the canonical tip keeps the branch canonical.
	c.br = l.branches[l.canonical]
	return nil
}

package txhandler

import (
	"fmt"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
)

// CheckCoinbase verifies the coinbase layout: flagged, no inputs, exactly
// one output worth at most the configured reward.
func (h *Handler) CheckCoinbase(cb *tx.Transaction) error {
	if cb == nil {
		return fmt.Errorf("%w: missing", ErrBadCoinbase)
	}
	if !cb.Coinbase {
		return fmt.Errorf("%w: not flagged as coinbase", ErrBadCoinbase)
	}
	if len(cb.Inputs) != 0 {
		return fmt.Errorf("%w: has %d inputs", ErrBadCoinbase, len(cb.Inputs))
	}
	if len(cb.Outputs) != 1 {
		return fmt.Errorf("%w: has %d outputs, want 1", ErrBadCoinbase, len(cb.Outputs))
	}
	v := cb.Outputs[0].Value
	if !validValue(v) {
		return fmt.Errorf("%w: value %v", ErrBadCoinbase, v)
	}
	if v > h.maxReward {
		return fmt.Errorf("%w: value %v exceeds reward %v", ErrBadCoinbase, v, h.maxReward)
	}
	return nil
}

// ApplyBlock validates every transaction of blk in block order against
// pool, applying each before checking the next, then credits the coinbase.
// On the first rejection pool is restored and the error returned.
func (h *Handler) ApplyBlock(blk *block.Block, pool *utxo.Pool) (*utxo.Undo, error) {
	if err := h.CheckCoinbase(blk.Coinbase); err != nil {
		return nil, err
	}
	for i, t := range blk.Transactions {
		if t != nil && t.Coinbase {
			return nil, fmt.Errorf("tx %d: %w: coinbase in block body", i, ErrBadCoinbase)
		}
	}

	undo := &utxo.Undo{}
	pre := h.preverify(blk.Transactions, pool)
	for i, t := range blk.Transactions {
		if err := h.check(t, pool, pre[i]); err != nil {
			pool.Revert(undo)
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		t.Finalize()
		apply(t, pool, undo)
	}
	CreditCoinbase(blk.Coinbase, pool, undo)
	return undo, nil
}

// ApplyTrusted applies blk to pool without validation.
func ApplyTrusted(blk *block.Block, pool *utxo.Pool) *utxo.Undo {
	undo := &utxo.Undo{}
	for _, t := range blk.Transactions {
		t.Finalize()
		apply(t, pool, undo)
	}
	if blk.Coinbase != nil {
		CreditCoinbase(blk.Coinbase, pool, undo)
	}
	return undo
}

// CreditCoinbase adds the coinbase outputs to pool.
func CreditCoinbase(cb *tx.Transaction, pool *utxo.Pool, undo *utxo.Undo) {
	cb.Finalize()
	for j, out := range cb.Outputs {
		pool.Create(cb.OutputOutpoint(j), out, undo)
	}
}

package chain

import (
	"sort"
	"time"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// TipSnapshot is an immutable copy of the canonical tip state.
type TipSnapshot struct {
	Hash       types.Hash `json:"hash"`
	PrevHash   types.Hash `json:"prev_hash"`
	Height     uint64     `json:"height"`
	Branch     BranchID   `json:"branch"`
	TxCount    int        `json:"tx_count"`
	UTXOCount  int        `json:"utxo_count"`
	AppendedAt time.Time  `json:"appended_at"`
}

// BranchInfo describes one retained branch.
type BranchInfo struct {
	ID           BranchID   `json:"id"`
	Parent       BranchID   `json:"parent"`
	TipHash      types.Hash `json:"tip_hash"`
	Height       uint64     `json:"height"`
	OldestHeight uint64     `json:"oldest_height"`
	Blocks       int        `json:"blocks"`
	UTXOCount    int        `json:"utxo_count"`
	Canonical    bool       `json:"canonical"`
	AppendedAt   time.Time  `json:"appended_at"`
}

// Tip returns a snapshot of the canonical tip.
func (l *Ledger) Tip() TipSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	br := l.branches[l.canonical]
	tip := br.tip()
	return TipSnapshot{
		Hash:       tip.blk.Hash(),
		PrevHash:   tip.blk.PrevHash,
		Height:     tip.height,
		Branch:     br.id,
		TxCount:    len(tip.blk.Transactions),
		UTXOCount:  br.pool.Count(),
		AppendedAt: br.appendedAt,
	}
}

// Height returns the canonical tip height.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branches[l.canonical].height()
}

// Branches describes every retained branch, canonical first, then by
// descending height and ascending ID.
func (l *Ledger) Branches() []BranchInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	infos := make([]BranchInfo, 0, len(l.branches))
	for _, br := range l.branches {
		infos = append(infos, BranchInfo{
			ID:           br.id,
			Parent:       br.parent,
			TipHash:      br.tip().blk.Hash(),
			Height:       br.height(),
			OldestHeight: br.entries[0].height,
			Blocks:       len(br.entries),
			UTXOCount:    br.pool.Count(),
			Canonical:    br.id == l.canonical,
			AppendedAt:   br.appendedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if a.Canonical != b.Canonical {
			return a.Canonical
		}
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.ID < b.ID
	})
	return infos
}

// Balance sums the canonical outputs owned by owner.
func (l *Ledger) Balance(owner []byte) (total float64, count int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branches[l.canonical].pool.Balance(owner)
}

// UTXO looks up an unspent output on the canonical branch.
func (l *Ledger) UTXO(op types.Outpoint) (tx.Output, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branches[l.canonical].pool.Get(op)
}

// OwnedUTXOs returns the canonical outputs owned by owner.
func (l *Ledger) OwnedUTXOs(owner []byte) []utxo.UTXO {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branches[l.canonical].pool.Owned(owner)
}

// Commitment returns the UTXO commitment of the canonical branch.
func (l *Ledger) Commitment() types.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branches[l.canonical].pool.Commitment()
}

// Block looks up a block and its height in the retained branches, then
// in the archive.
func (l *Ledger) Block(hash types.Hash) (*block.Block, uint64, error) {
	l.mu.RLock()
	for _, br := range l.branches {
		if idx := br.indexOf(hash); idx >= 0 {
			e := br.entries[idx]
			l.mu.RUnlock()
			return e.blk, e.height, nil
		}
	}
	l.mu.RUnlock()

	if l.archive != nil {
		if blk, height, err := l.archive.GetBlock(hash); err == nil {
			return blk, height, nil
		}
	}
	return nil, 0, ErrBlockNotFound
}

// BlockByHeight returns the canonical block at height, from the retained
// window or, for older heights, from the archive.
func (l *Ledger) BlockByHeight(height uint64) (*block.Block, error) {
	l.mu.RLock()
	br := l.branches[l.canonical]
	for _, e := range br.entries {
		if e.height == height {
			l.mu.RUnlock()
			return e.blk, nil
		}
	}
	l.mu.RUnlock()

	if l.archive != nil {
		if blk, err := l.archive.GetBlockByHeight(height); err == nil {
			return blk, nil
		}
	}
	return nil, ErrBlockNotFound
}

// CheckTx validates t against the canonical pool without modifying it.
func (l *Ledger) CheckTx(t *tx.Transaction) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handler.Check(t, l.branches[l.canonical].pool)
}

package chain

import (
	"errors"
	"fmt"

	klog "github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// AddBlock validates blk against the branch it extends and inserts it.
//
// A block extending a branch tip is appended to that branch. A block
// extending an older retained block forks a new branch whose pool is the
// ancestor's pool as of that block. Afterwards the canonical branch is
// reselected and every branch CutOffAge or more behind the tallest one
// is discarded. Blocks are always fully re-validated.
func (l *Ledger) AddBlock(blk *block.Block) error {
	err := l.addBlock(blk)
	if err != nil {
		metrics.BlocksRejected.WithLabelValues(RejectReason(err)).Inc()
		return err
	}
	metrics.BlocksAccepted.Inc()
	if l.mempool != nil {
		l.mempool.RemoveConfirmed(blk.Transactions)
	}
	return nil
}

func (l *Ledger) addBlock(blk *block.Block) error {
	if blk == nil {
		return ErrNilBlock
	}
	hash := blk.Finalize()
	if blk.PrevHash.IsZero() {
		return ErrZeroPrevHash
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.containsLocked(hash) {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, hash.Short())
	}

	src, idx := l.findParentLocked(blk.PrevHash)
	if src == nil {
		return fmt.Errorf("%w: prev %s", ErrOrphanBlock, blk.PrevHash.Short())
	}
	height := src.entries[idx].height + 1
	if maxHeight := l.maxHeightLocked(); maxHeight >= height && maxHeight-height >= uint64(l.cutOffAge) {
		return fmt.Errorf("%w: height %d is %d behind the tallest branch", ErrOrphanBlock, height, maxHeight-height)
	}

	logger := l.logger.With().
		Str("hash", hash.Short()).
		Uint64("height", height).
		Int("txs", len(blk.Transactions)).
		Logger()

	if idx == len(src.entries)-1 {
		undo, err := l.handler.ApplyBlock(blk, src.pool)
		if err != nil {
			logger.Debug().Err(err).Msg("Block rejected")
			return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
		}
		l.appendEntry(src, entry{blk: blk, height: height, undo: undo})
		bl := klog.WithBranch(logger, uint64(src.id))
		bl.Debug().Msg("Extended branch")
	} else {
		pool := src.pool.Clone()
		for k := len(src.entries) - 1; k > idx; k-- {
			pool.Revert(src.entries[k].undo)
		}
		undo, err := l.handler.ApplyBlock(blk, pool)
		if err != nil {
			logger.Debug().Err(err).Msg("Fork block rejected")
			return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
		}
		br := l.newBranch(src.entries[:idx+1], src.id, pool)
		l.appendEntry(br, entry{blk: blk, height: height, undo: undo})
		metrics.Forks.Inc()
		bl := klog.WithBranch(logger, uint64(br.id))
		bl.Info().
			Uint64("forked_from", uint64(src.id)).
			Uint64("fork_height", height-1).
			Msg("Created fork branch")
	}

	l.reselectLocked()
	return nil
}

// AddTx inserts t into the mempool. It is not validated against any branch.
func (l *Ledger) AddTx(t *tx.Transaction) (types.Hash, error) {
	if l.mempool == nil {
		return types.Hash{}, ErrNoMempool
	}
	return l.mempool.Add(t)
}

// reselectLocked picks the canonical branch and discards branches that
// fell CutOffAge or more behind the tallest one.
func (l *Ledger) reselectLocked() {
	prev := l.canonical

	var best *branch
	for _, br := range l.branches {
		if best == nil || br.preferred(best) {
			best = br
		}
	}
	l.canonical = best.id

	maxHeight := best.height()
	for id, br := range l.branches {
		if maxHeight-br.height() >= uint64(l.cutOffAge) {
			delete(l.branches, id)
			metrics.BranchesPruned.Inc()
			l.logger.Debug().
				Uint64("branch", uint64(id)).
				Uint64("height", br.height()).
				Msg("Pruned stale branch")
		}
	}

	if prev != l.canonical {
		l.logger.Info().
			Uint64("branch", uint64(best.id)).
			Uint64("height", maxHeight).
			Str("tip", best.tip().blk.Hash().Short()).
			Msg("Canonical branch switched")
	}
	l.updateGauges()
}

// containsLocked reports whether hash is retained by any branch.
func (l *Ledger) containsLocked(hash types.Hash) bool {
	for _, br := range l.branches {
		if br.indexOf(hash) >= 0 {
			return true
		}
	}
	return false
}

// findParentLocked returns the branch retaining hash and its position,
// preferring a branch whose tip is hash. Among several branches retaining
// hash as a non-tip block the lowest ID wins.
func (l *Ledger) findParentLocked(hash types.Hash) (*branch, int) {
	var found *branch
	foundIdx := -1
	for _, br := range l.branches {
		idx := br.indexOf(hash)
		if idx < 0 {
			continue
		}
		if idx == len(br.entries)-1 {
			return br, idx
		}
		if found == nil || br.id < found.id {
			found, foundIdx = br, idx
		}
	}
	return found, foundIdx
}

func (l *Ledger) maxHeightLocked() uint64 {
	var maxHeight uint64
	for _, br := range l.branches {
		if h := br.height(); h > maxHeight {
			maxHeight = h
		}
	}
	return maxHeight
}

// RejectReason returns a short label classifying an AddBlock error.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNilBlock):
		return "nil_block"
	case errors.Is(err, ErrZeroPrevHash):
		return "zero_prev_hash"
	case errors.Is(err, ErrDuplicateBlock):
		return "duplicate"
	case errors.Is(err, ErrOrphanBlock):
		return "orphan"
	case errors.Is(err, ErrNotTip):
		return "not_tip"
	case errors.Is(err, ErrInvalidBlock):
		return txhandler.Reason(err)
	default:
		return "other"
	}
}

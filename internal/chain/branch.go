package chain

import (
	"time"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// BranchID identifies a branch. IDs are never reused.
type BranchID uint64

// entry is one retained block of a branch.
type entry struct {
	blk    *block.Block
	height uint64
	undo   *utxo.Undo
}

// branch is a bounded sequence of linked blocks with its own UTXO pool.
// The pool reflects every block ever applied to the branch, including
// blocks that no longer fit the retained window.
type branch struct {
	id         BranchID
	parent     BranchID
	entries    []entry // oldest first
	pool       *utxo.Pool
	seq        uint64 // arrival order of the last appended block
	appendedAt time.Time
}

func (b *branch) tip() entry {
	return b.entries[len(b.entries)-1]
}

func (b *branch) height() uint64 {
	return b.tip().height
}

// indexOf returns the position of hash among the retained entries or -1.
func (b *branch) indexOf(hash types.Hash) int {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].blk.Hash() == hash {
			return i
		}
	}
	return -1
}

// preferred reports whether b ranks above other for canonical selection:
// greater height first, then the earlier last append.
func (b *branch) preferred(other *branch) bool {
	if b.height() != other.height() {
		return b.height() > other.height()
	}
	return b.seq < other.seq
}

// newBranch allocates a branch with a copy of the given entries.
func (l *Ledger) newBranch(prefix []entry, parent BranchID, pool *utxo.Pool) *branch {
	br := &branch{
		id:      l.nextID,
		parent:  parent,
		entries: append(make([]entry, 0, l.cutOffAge+1), prefix...),
		pool:    pool,
	}
	l.nextID++
	l.branches[br.id] = br
	return br
}

// appendEntry adds e at the tip of br, drops the oldest entry once the
// window exceeds cutOffAge+1 and stamps the arrival order.
func (l *Ledger) appendEntry(br *branch, e entry) {
	br.entries = append(br.entries, e)
	if len(br.entries) > l.cutOffAge+1 {
		dropped := br.entries[0]
		br.entries = append(br.entries[:0], br.entries[1:]...)
		if br.id == l.canonical {
			l.archiveEntry(dropped)
		}
	}
	br.seq = l.nextSeq
	l.nextSeq++
	br.appendedAt = l.now()
}

func (l *Ledger) archiveEntry(e entry) {
	if l.archive == nil {
		return
	}
	if err := l.archive.PutBlock(e.blk, e.height); err != nil {
		l.logger.Warn().Err(err).
			Str("hash", e.blk.Hash().Short()).
			Uint64("height", e.height).
			Msg("Failed to archive block")
	}
}

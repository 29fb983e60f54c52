// Package chain implements the branching ledger: competing branches of
// blocks, canonical branch selection and pruning of stale branches.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	klog "github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
)

// DefaultCutOffAge is the height deficit at which a branch is discarded.
const DefaultCutOffAge = 10

// Ledger errors.
var (
	ErrNilBlock       = errors.New("nil block")
	ErrZeroPrevHash   = errors.New("only genesis may have a zero prev_hash")
	ErrOrphanBlock    = errors.New("parent block not found in any retained branch")
	ErrDuplicateBlock = errors.New("block already known")
	ErrInvalidBlock   = errors.New("block failed validation")
	ErrNotTip         = errors.New("block does not extend the canonical tip")
	ErrBlockNotFound  = errors.New("block not found")
	ErrNoMempool      = errors.New("ledger has no mempool")
)

// Ledger owns the retained branches and selects the canonical one.
// All mutations run under a single lock spanning the whole operation.
type Ledger struct {
	mu sync.RWMutex

	cutOffAge int
	branches  map[BranchID]*branch
	canonical BranchID
	nextID    BranchID
	nextSeq   uint64

	handler *txhandler.Handler
	mempool *mempool.Pool
	archive *BlockStore
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCutOffAge sets the height deficit at which branches are discarded.
func WithCutOffAge(n int) Option {
	return func(l *Ledger) { l.cutOffAge = n }
}

// WithMempool sets the mempool fed by AddTx and cleared by accepted blocks.
func WithMempool(p *mempool.Pool) Option {
	return func(l *Ledger) { l.mempool = p }
}

// WithArchive stores blocks that leave the canonical retained window.
func WithArchive(bs *BlockStore) Option {
	return func(l *Ledger) { l.archive = bs }
}

// WithLogger replaces the ledger logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a ledger with a single branch holding genesis. The genesis
// block is applied without validation.
func New(genesis *block.Block, handler *txhandler.Handler, opts ...Option) (*Ledger, error) {
	if genesis == nil {
		return nil, fmt.Errorf("genesis: %w", ErrNilBlock)
	}
	if handler == nil {
		return nil, fmt.Errorf("tx handler is nil")
	}

	l := &Ledger{
		cutOffAge: DefaultCutOffAge,
		branches:  make(map[BranchID]*branch),
		handler:   handler,
		logger:    klog.Ledger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cutOffAge < 1 {
		return nil, fmt.Errorf("cut-off age must be at least 1, got %d", l.cutOffAge)
	}

	genesis.Finalize()
	pool := utxo.NewPool()
	undo := txhandler.ApplyTrusted(genesis, pool)

	br := l.newBranch(nil, 0, pool)
	l.appendEntry(br, entry{blk: genesis, height: 0, undo: undo})
	l.canonical = br.id
	l.updateGauges()

	l.logger.Info().
		Str("genesis", genesis.Hash().Short()).
		Int("cutoff_age", l.cutOffAge).
		Msg("Ledger initialized")
	return l, nil
}

// CutOffAge returns the configured cut-off age.
func (l *Ledger) CutOffAge() int {
	return l.cutOffAge
}

func (l *Ledger) updateGauges() {
	metrics.Branches.Set(float64(len(l.branches)))
	metrics.CanonicalHeight.Set(float64(l.branches[l.canonical].height()))
}

// Package assembler builds blocks on the canonical tip from mempool
// transactions.
package assembler

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/ledgernode/internal/chain"
	klog "github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
)

// DefaultReward is the coinbase value paid to the assembler of a block.
const DefaultReward = 25.0

// ErrNoRewardOwner is returned when CreateBlock is given an empty owner.
var ErrNoRewardOwner = errors.New("reward owner is empty")

// Assembler produces blocks.
type Assembler struct {
	ledger      *chain.Ledger
	pool        *mempool.Pool
	handler     *txhandler.Handler
	reward      float64
	maxBlockTxs int // 0 = unlimited
	logger      zerolog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithMaxBlockTxs caps the number of mempool transactions considered for
// one block. Zero means no cap.
func WithMaxBlockTxs(n int) Option {
	return func(a *Assembler) {
		if n < 0 {
			n = 0
		}
		a.maxBlockTxs = n
	}
}

// WithLogger replaces the assembler logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// New creates a block assembler paying reward to the coinbase owner.
func New(ledger *chain.Ledger, pool *mempool.Pool, handler *txhandler.Handler, reward float64, opts ...Option) *Assembler {
	a := &Assembler{
		ledger:  ledger,
		pool:    pool,
		handler: handler,
		reward:  reward,
		logger:  klog.Assembler,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reward returns the coinbase value of assembled blocks.
func (a *Assembler) Reward() float64 {
	return a.reward
}

// CreateBlock builds a block on the canonical tip and appends it.
//
// The mempool is drained oldest first and run through the validator
// against the live canonical pool. Rejected candidates are evicted from
// the mempool, admitted ones once the block is on the ledger. The block is
// returned for broadcast.
func (a *Assembler) CreateBlock(rewardOwner []byte) (*block.Block, error) {
	if len(rewardOwner) == 0 {
		return nil, ErrNoRewardOwner
	}

	var (
		blk    *block.Block
		res    txhandler.Result
		height uint64
	)
	err := a.ledger.WithCanonical(func(c *chain.Canonical) error {
		pool := c.UTXOPool()
		candidates := a.pool.SelectForBlock(a.maxBlockTxs)
		res = a.handler.HandleTxs(candidates, pool)
		for _, r := range res.Rejected {
			a.pool.Remove(r.Tx.Hash())
			a.logger.Debug().Err(r.Err).
				Str("tx", r.Tx.Hash().Short()).
				Msg("Dropped invalid mempool transaction")
		}

		undo := res.Undo
		if undo == nil {
			undo = &utxo.Undo{}
		}
		coinbase := tx.NewCoinbase(a.reward, rewardOwner)
		txhandler.CreditCoinbase(coinbase, pool, undo)

		blk = block.NewBlock(c.Tip().Hash(), coinbase, res.Accepted)
		blk.Finalize()
		if err := c.Extend(blk, undo); err != nil {
			pool.Revert(undo)
			return err
		}
		height = c.Height()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}

	a.pool.RemoveConfirmed(res.Accepted)
	metrics.BlocksAssembled.Inc()

	a.logger.Info().
		Str("hash", blk.Hash().Short()).
		Uint64("height", height).
		Int("txs", len(res.Accepted)).
		Int("dropped", len(res.Rejected)).
		Float64("reward", a.reward).
		Msg("Assembled block")
	return blk, nil
}

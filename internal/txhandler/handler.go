// Package txhandler validates transactions against a UTXO pool and applies
// admitted transactions to it.
package txhandler

import (
	"fmt"
	"math"
	"time"

	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Handler checks transactions and applies them to UTXO pools.
// It holds no pool state of its own and is safe for concurrent use.
type Handler struct {
	verifier  crypto.Verifier
	workers   int
	maxReward float64
}

// Option configures a Handler.
type Option func(*Handler)

// WithVerifier replaces the Schnorr signature verifier.
func WithVerifier(v crypto.Verifier) Option {
	return func(h *Handler) { h.verifier = v }
}

// WithWorkers sets the number of goroutines used to pre-verify signatures
// of a batch. Zero verifies sequentially.
func WithWorkers(n int) Option {
	return func(h *Handler) {
		if n < 0 {
			n = 0
		}
		h.workers = n
	}
}

// New creates a Handler. maxReward bounds the coinbase value accepted by
// ApplyBlock.
func New(maxReward float64, opts ...Option) *Handler {
	h := &Handler{
		verifier:  crypto.SchnorrVerifier{},
		maxReward: maxReward,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Rejection pairs a dropped candidate with the reason it was dropped.
type Rejection struct {
	Tx  *tx.Transaction
	Err error
}

// Result is the outcome of HandleTxs.
type Result struct {
	// Accepted holds admitted transactions in candidate order.
	Accepted []*tx.Transaction
	// Rejected holds dropped candidates in candidate order.
	Rejected []Rejection
	// Undo reverts every pool mutation made by the batch.
	Undo *utxo.Undo
}

// IsValid reports whether t may be applied to pool. pool is not modified.
func (h *Handler) IsValid(t *tx.Transaction, pool *utxo.Pool) bool {
	return h.Check(t, pool) == nil
}

// Check validates t against pool and returns the first rejection.
// pool is not modified.
func (h *Handler) Check(t *tx.Transaction, pool *utxo.Pool) error {
	return h.check(t, pool, nil)
}

// check runs the validation rules in order: every input must reference a
// known utxo, no utxo may be claimed twice, every signature must verify
// against the claimed output's owner, outputs must be non-negative and
// must not exceed the claimed value. Surplus input value is discarded.
//
// Lookups and double claims are resolved for all inputs before any
// signature is verified, so a transaction with both a bad signature and an
// unknown or doubly claimed input reports the latter.
func (h *Handler) check(t *tx.Transaction, pool *utxo.Pool, pre []verdict) error {
	if t == nil {
		return ErrNilTransaction
	}

	claimed := make([]tx.Output, len(t.Inputs))
	seen := make(map[types.Outpoint]struct{}, len(t.Inputs))
	for i, in := range t.Inputs {
		op := in.Outpoint()
		prev, err := pool.Get(op)
		if err != nil {
			return fmt.Errorf("input %d (%s): %w", i, op, ErrUnknownUTXO)
		}
		if _, dup := seen[op]; dup {
			return fmt.Errorf("input %d (%s): %w", i, op, ErrDoubleClaim)
		}
		seen[op] = struct{}{}
		claimed[i] = prev
	}

	var inValue float64
	for i, prev := range claimed {
		if !h.verifyInput(t, i, prev.Owner, pre) {
			return fmt.Errorf("input %d: %w", i, ErrBadSignature)
		}
		inValue += prev.Value
	}

	var outValue float64
	for j, out := range t.Outputs {
		if !validValue(out.Value) {
			return fmt.Errorf("output %d (%v): %w", j, out.Value, ErrNegativeOutput)
		}
		outValue += out.Value
	}
	if outValue > inValue {
		return fmt.Errorf("%w: inputs=%v outputs=%v", ErrUnbalanced, inValue, outValue)
	}
	return nil
}

func validValue(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// HandleTxs validates candidates strictly in the given order against pool
// and applies each valid one before checking the next. A candidate that
// spends an output created by a later candidate is rejected as
// ErrUnknownUTXO. Rejected candidates leave pool untouched.
func (h *Handler) HandleTxs(candidates []*tx.Transaction, pool *utxo.Pool) Result {
	start := time.Now()
	res := Result{Undo: &utxo.Undo{}}
	pre := h.preverify(candidates, pool)

	for c, t := range candidates {
		if err := h.check(t, pool, pre[c]); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Tx: t, Err: err})
			metrics.TxsRejected.WithLabelValues(Reason(err)).Inc()
			continue
		}
		t.Finalize()
		apply(t, pool, res.Undo)
		res.Accepted = append(res.Accepted, t)
	}

	metrics.TxsAdmitted.Add(float64(len(res.Accepted)))
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	return res
}

// apply spends every claimed input and creates every output of a
// finalized transaction.
func apply(t *tx.Transaction, pool *utxo.Pool, undo *utxo.Undo) {
	for _, in := range t.Inputs {
		pool.Spend(in.Outpoint(), undo)
	}
	for j, out := range t.Outputs {
		pool.Create(t.OutputOutpoint(j), out, undo)
	}
}

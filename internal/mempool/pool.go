// Package mempool holds unconfirmed transactions waiting for block inclusion.
// The pool is shared by every branch and does no UTXO validation.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Klingon-tech/ledgernode/internal/metrics"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrPoolFull      = errors.New("mempool is full")
	ErrPolicy        = errors.New("transaction rejected by policy")
	ErrNilTx         = errors.New("nil transaction")
)

// DefaultMaxSize is the capacity used when New is given a non-positive size.
const DefaultMaxSize = 5000

// entry wraps a transaction with its arrival metadata.
type entry struct {
	tx      *tx.Transaction
	txHash  types.Hash
	seq     uint64
	addedAt time.Time
}

// Pool holds unconfirmed transactions keyed by hash, in arrival order.
type Pool struct {
	mu      sync.RWMutex
	txs     map[types.Hash]*entry
	nextSeq uint64
	maxSize int
	policy  *Policy
	now     func() time.Time
}

// New creates a mempool with the given capacity and policy. A nil policy
// uses DefaultPolicy.
func New(maxSize int, policy *Policy) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Pool{
		txs:     make(map[types.Hash]*entry),
		maxSize: maxSize,
		policy:  policy,
		now:     time.Now,
	}
}

// Add finalizes transaction, checks policy and stores it. The returned
// hash is always computed fresh from the transaction contents.
func (p *Pool) Add(transaction *tx.Transaction) (types.Hash, error) {
	if transaction == nil {
		return types.Hash{}, ErrNilTx
	}
	txHash := transaction.Finalize()
	if err := p.policy.Check(transaction); err != nil {
		return txHash, fmt.Errorf("%w: %v", ErrPolicy, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[txHash]; exists {
		return txHash, ErrAlreadyExists
	}
	if len(p.txs) >= p.maxSize {
		return txHash, ErrPoolFull
	}

	p.txs[txHash] = &entry{
		tx:      transaction,
		txHash:  txHash,
		seq:     p.nextSeq,
		addedAt: p.now(),
	}
	p.nextSeq++
	metrics.MempoolSize.Set(float64(len(p.txs)))
	return txHash, nil
}

// Remove removes a transaction by hash. Unknown hashes are ignored.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

func (p *Pool) removeLocked(txHash types.Hash) {
	if _, exists := p.txs[txHash]; !exists {
		return
	}
	delete(p.txs, txHash)
	metrics.MempoolSize.Set(float64(len(p.txs)))
}

// RemoveConfirmed removes every transaction that was included in a block.
func (p *Pool) RemoveConfirmed(transactions []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range transactions {
		if t == nil || !t.IsFinalized() {
			continue
		}
		p.removeLocked(t.Hash())
	}
}

// Has checks if a transaction exists in the mempool.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get retrieves a transaction from the mempool, or nil.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of transactions in the mempool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// MaxSize returns the pool capacity.
func (p *Pool) MaxSize() int {
	return p.maxSize
}

// Hashes returns the hashes of all pending transactions in arrival order.
func (p *Pool) Hashes() []types.Hash {
	entries := p.ordered()
	hashes := make([]types.Hash, len(entries))
	for i, e := range entries {
		hashes[i] = e.txHash
	}
	return hashes
}

// SelectForBlock returns up to limit transactions, oldest first.
// A non-positive limit selects everything.
func (p *Pool) SelectForBlock(limit int) []*tx.Transaction {
	entries := p.ordered()
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	result := make([]*tx.Transaction, limit)
	for i := 0; i < limit; i++ {
		result[i] = entries[i].tx
	}
	return result
}

// ordered returns a snapshot of the entries sorted by arrival.
func (p *Pool) ordered() []*entry {
	p.mu.RLock()
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	return entries
}

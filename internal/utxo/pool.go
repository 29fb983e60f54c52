// Package utxo manages per-branch sets of unspent transaction outputs.
package utxo

import (
	"bytes"
	"errors"

	"github.com/dolthub/swiss"

	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// ErrNotFound is returned when an outpoint is not in the pool.
var ErrNotFound = errors.New("utxo not found")

// defaultCapacity is the initial size hint for a new pool.
const defaultCapacity = 1024

// UTXO is an unspent output together with its key.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Output   tx.Output      `json:"output"`
}

// Pool maps outpoints to unspent outputs.
//
// Pool is not safe for concurrent use. Each branch of the ledger owns one
// pool and serializes access through the ledger lock.
type Pool struct {
	m *swiss.Map[types.Outpoint, tx.Output]
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{m: swiss.NewMap[types.Outpoint, tx.Output](defaultCapacity)}
}

// Add inserts or overwrites the output stored under op.
func (p *Pool) Add(op types.Outpoint, out tx.Output) {
	p.m.Put(op, out)
}

// Remove deletes op. Removing an absent outpoint is a no-op.
func (p *Pool) Remove(op types.Outpoint) {
	p.m.Delete(op)
}

// Get returns the output stored under op or ErrNotFound.
func (p *Pool) Get(op types.Outpoint) (tx.Output, error) {
	out, ok := p.m.Get(op)
	if !ok {
		return tx.Output{}, ErrNotFound
	}
	return out, nil
}

// Has reports whether op is unspent in this pool.
func (p *Pool) Has(op types.Outpoint) bool {
	return p.m.Has(op)
}

// Count returns the number of unspent outputs.
func (p *Pool) Count() int {
	return p.m.Count()
}

// All returns every unspent output. Order is unspecified.
func (p *Pool) All() []UTXO {
	out := make([]UTXO, 0, p.m.Count())
	p.m.Iter(func(op types.Outpoint, o tx.Output) bool {
		out = append(out, UTXO{Outpoint: op, Output: o})
		return false
	})
	return out
}

// Clone returns a deep copy that evolves independently of p.
func (p *Pool) Clone() *Pool {
	size := p.m.Count()
	if size < defaultCapacity {
		size = defaultCapacity
	}
	c := &Pool{m: swiss.NewMap[types.Outpoint, tx.Output](uint32(size))}
	p.m.Iter(func(op types.Outpoint, o tx.Output) bool {
		o.Owner = append([]byte(nil), o.Owner...)
		c.m.Put(op, o)
		return false
	})
	return c
}

// Balance sums the values of all outputs whose owner bytes equal owner.
func (p *Pool) Balance(owner []byte) (total float64, count int) {
	p.m.Iter(func(_ types.Outpoint, o tx.Output) bool {
		if bytes.Equal(o.Owner, owner) {
			total += o.Value
			count++
		}
		return false
	})
	return total, count
}

// Owned returns the outputs paying owner. Order is unspecified.
func (p *Pool) Owned(owner []byte) []UTXO {
	var out []UTXO
	p.m.Iter(func(op types.Outpoint, o tx.Output) bool {
		if bytes.Equal(o.Owner, owner) {
			out = append(out, UTXO{Outpoint: op, Output: o})
		}
		return false
	})
	return out
}

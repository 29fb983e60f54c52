package utxo

import (
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// change records the state of one outpoint before a mutation.
type change struct {
	op      types.Outpoint
	prev    tx.Output
	existed bool
}

// Undo is an ordered journal of pool mutations. Reverting it restores
// the pool to the state it had before the first recorded mutation,
// including entries a creation overwrote (identical coinbases share a hash).
type Undo struct {
	changes []change
}

// Len returns the number of recorded mutations.
func (u *Undo) Len() int {
	if u == nil {
		return 0
	}
	return len(u.changes)
}

// Append adds other's mutations after u's.
func (u *Undo) Append(other *Undo) {
	if other == nil {
		return
	}
	u.changes = append(u.changes, other.changes...)
}

func (u *Undo) record(p *Pool, op types.Outpoint) {
	if u == nil {
		return
	}
	prev, ok := p.m.Get(op)
	u.changes = append(u.changes, change{op: op, prev: prev, existed: ok})
}

// Spend removes op and records its prior state in u. u may be nil.
func (p *Pool) Spend(op types.Outpoint, u *Undo) {
	u.record(p, op)
	p.m.Delete(op)
}

// Create inserts out under op and records the prior state in u. u may be nil.
func (p *Pool) Create(op types.Outpoint, out tx.Output, u *Undo) {
	u.record(p, op)
	p.m.Put(op, out)
}

// Revert undoes every mutation recorded in u, newest first.
func (p *Pool) Revert(u *Undo) {
	if u == nil {
		return
	}
	for i := len(u.changes) - 1; i >= 0; i-- {
		c := u.changes[i]
		if c.existed {
			p.m.Put(c.op, c.prev)
		} else {
			p.m.Delete(c.op)
		}
	}
}

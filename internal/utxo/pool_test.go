package utxo

import (
	"testing"

	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(b byte, i uint32) types.Outpoint {
	return types.Outpoint{TxID: types.Hash{b}, Index: i}
}

func out(v float64, owner ...byte) tx.Output {
	return tx.Output{Value: v, Owner: owner}
}

func TestPool_AddGetRemove(t *testing.T) {
	p := NewPool()

	_, err := p.Get(op(1, 0))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, p.Has(op(1, 0)))

	p.Add(op(1, 0), out(100, 0x02))
	got, err := p.Get(op(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Value)
	assert.True(t, p.Has(op(1, 0)))
	assert.False(t, p.Has(op(1, 1)), "index is part of the key")

	p.Add(op(1, 0), out(50, 0x02))
	got, err = p.Get(op(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Value, "add overwrites")
	assert.Equal(t, 1, p.Count())

	p.Remove(op(1, 0))
	assert.False(t, p.Has(op(1, 0)))
	p.Remove(op(1, 0))
	assert.Equal(t, 0, p.Count())
}

func TestPool_All(t *testing.T) {
	p := NewPool()
	p.Add(op(1, 0), out(1, 0x02))
	p.Add(op(1, 1), out(2, 0x03))
	p.Add(op(2, 0), out(3, 0x02))

	all := p.All()
	require.Len(t, all, 3)
	var sum float64
	for _, u := range all {
		sum += u.Output.Value
	}
	assert.Equal(t, 6.0, sum)
}

func TestPool_Clone_Independent(t *testing.T) {
	p := NewPool()
	p.Add(op(1, 0), out(10, 0x02))

	c := p.Clone()
	c.Remove(op(1, 0))
	c.Add(op(2, 0), out(5, 0x03))

	assert.True(t, p.Has(op(1, 0)))
	assert.False(t, p.Has(op(2, 0)))
	assert.False(t, c.Has(op(1, 0)))
	assert.Equal(t, p.Commitment(), func() types.Hash {
		q := NewPool()
		q.Add(op(1, 0), out(10, 0x02))
		return q.Commitment()
	}())
}

func TestPool_Balance(t *testing.T) {
	p := NewPool()
	p.Add(op(1, 0), out(10, 0x02))
	p.Add(op(1, 1), out(2.5, 0x02))
	p.Add(op(2, 0), out(7, 0x03))

	total, n := p.Balance([]byte{0x02})
	assert.Equal(t, 12.5, total)
	assert.Equal(t, 2, n)

	total, n = p.Balance([]byte{0x09})
	assert.Zero(t, total)
	assert.Zero(t, n)

	assert.Len(t, p.Owned([]byte{0x03}), 1)
}

func TestUndo_RevertRestoresState(t *testing.T) {
	p := NewPool()
	p.Add(op(1, 0), out(10, 0x02))
	p.Add(op(1, 1), out(20, 0x02))
	before := p.Commitment()

	u := &Undo{}
	p.Spend(op(1, 0), u)
	p.Create(op(3, 0), out(10, 0x04), u)
	p.Spend(op(3, 0), u)
	p.Create(op(3, 0), out(10, 0x04), u)
	p.Create(op(1, 1), out(99, 0x05), u)
	assert.Equal(t, 5, u.Len())

	p.Revert(u)
	assert.Equal(t, before, p.Commitment())
	got, err := p.Get(op(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Value)
	assert.False(t, p.Has(op(3, 0)))
}

func TestUndo_Append(t *testing.T) {
	p := NewPool()
	p.Add(op(1, 0), out(10, 0x02))
	before := p.Commitment()

	a, b := &Undo{}, &Undo{}
	p.Spend(op(1, 0), a)
	p.Create(op(2, 0), out(10, 0x03), b)
	a.Append(b)
	a.Append(nil)

	p.Revert(a)
	assert.Equal(t, before, p.Commitment())
}

func TestUndo_NilJournal(t *testing.T) {
	p := NewPool()
	p.Create(op(1, 0), out(1, 0x02), nil)
	p.Spend(op(1, 0), nil)
	p.Revert(nil)

	var u *Undo
	assert.Zero(t, u.Len())
	assert.Zero(t, p.Count())
}

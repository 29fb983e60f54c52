package utxo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitment_Empty(t *testing.T) {
	assert.True(t, NewPool().Commitment().IsZero())
}

func TestCommitment_Deterministic(t *testing.T) {
	build := func(reverse bool) *Pool {
		p := NewPool()
		entries := []UTXO{
			{Outpoint: op(1, 0), Output: out(1000, 0x02)},
			{Outpoint: op(2, 1), Output: out(2000, 0xaa, 0xbb)},
			{Outpoint: op(3, 7), Output: out(0.5, 0x03)},
		}
		if reverse {
			for i := len(entries) - 1; i >= 0; i-- {
				p.Add(entries[i].Outpoint, entries[i].Output)
			}
		} else {
			for _, e := range entries {
				p.Add(e.Outpoint, e.Output)
			}
		}
		return p
	}

	root := build(false).Commitment()
	assert.False(t, root.IsZero())
	assert.Equal(t, root, build(true).Commitment())
}

func TestCommitment_ChangesWithContent(t *testing.T) {
	a := NewPool()
	a.Add(op(1, 0), out(1000, 0x02))
	b := NewPool()
	b.Add(op(1, 0), out(1001, 0x02))
	c := NewPool()
	c.Add(op(1, 0), out(1000, 0x03))

	assert.NotEqual(t, a.Commitment(), b.Commitment())
	assert.NotEqual(t, a.Commitment(), c.Commitment())
}

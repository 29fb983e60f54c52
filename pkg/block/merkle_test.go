package block

import (
	"testing"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
)

func leaves(n int) []types.Hash {
	out := make([]types.Hash, n)
	for i := range out {
		out[i] = crypto.Hash([]byte{byte(i)})
	}
	return out
}

func TestComputeMerkleRoot_Small(t *testing.T) {
	assert.True(t, ComputeMerkleRoot(nil).IsZero())
	assert.True(t, ComputeMerkleRoot([]types.Hash{}).IsZero())

	l := leaves(4)
	assert.Equal(t, l[0], ComputeMerkleRoot(l[:1]))
	assert.Equal(t, crypto.HashConcat(l[0], l[1]), ComputeMerkleRoot(l[:2]))
}

func TestComputeMerkleRoot_OddLevelDuplicatesLast(t *testing.T) {
	l := leaves(3)
	want := crypto.HashConcat(crypto.HashConcat(l[0], l[1]), crypto.HashConcat(l[2], l[2]))
	assert.Equal(t, want, ComputeMerkleRoot(l))
}

func TestComputeMerkleRoot_FourLeaves(t *testing.T) {
	l := leaves(4)
	want := crypto.HashConcat(crypto.HashConcat(l[0], l[1]), crypto.HashConcat(l[2], l[3]))
	assert.Equal(t, want, ComputeMerkleRoot(l))
}

func TestComputeMerkleRoot_OrderMatters(t *testing.T) {
	l := leaves(2)
	assert.NotEqual(t, ComputeMerkleRoot(l), ComputeMerkleRoot([]types.Hash{l[1], l[0]}))
}

func TestComputeMerkleRoot_DoesNotMutateInput(t *testing.T) {
	input := leaves(3)
	original := append([]types.Hash(nil), input...)

	ComputeMerkleRoot(input)
	assert.Equal(t, original, input)
}

func TestComputeMerkleRoot_LargerTree(t *testing.T) {
	l := leaves(7)
	root := ComputeMerkleRoot(l)
	assert.False(t, root.IsZero())
	assert.Equal(t, root, ComputeMerkleRoot(l))
}

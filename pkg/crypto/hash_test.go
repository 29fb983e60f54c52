package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, hexToHash(t, tt.want), Hash(tt.input))
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	assert.Equal(t, Hash(data), Hash(data))
	assert.NotEqual(t, Hash([]byte("input A")), Hash([]byte("input B")))
}

func TestDoubleHash(t *testing.T) {
	want := hexToHash(t, "0f79bf7f41e10b873e0f24b701159b4951037967529d18dcacc9392a8fbf5163")
	assert.Equal(t, want, DoubleHash([]byte("hello")))
}

func TestDoubleHash_IsHashOfHash(t *testing.T) {
	data := []byte("test data")
	single := Hash(data)

	assert.NotEqual(t, single, DoubleHash(data))
	assert.Equal(t, Hash(single[:]), DoubleHash(data))
}

func TestHashConcat(t *testing.T) {
	a := Hash([]byte("left"))
	b := Hash([]byte("right"))
	result := HashConcat(a, b)

	assert.False(t, result.IsZero())
	assert.NotEqual(t, result, HashConcat(b, a), "order must matter")

	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	assert.Equal(t, Hash(buf[:]), result)
}

package txhandler

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var txA = types.Hash{0xaa}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

// spend builds a transaction claiming the given outpoints, all signed by key.
func spend(t *testing.T, key *crypto.PrivateKey, ins []types.Outpoint, outs ...tx.Output) *tx.Transaction {
	t.Helper()
	b := tx.NewBuilder()
	for _, op := range ins {
		b.AddInput(op.TxID, op.Index)
	}
	for _, o := range outs {
		b.AddOutput(o.Value, o.Owner)
	}
	require.NoError(t, b.SignAll(key))
	return b.Build()
}

func fixture(t *testing.T) (*utxo.Pool, *crypto.PrivateKey, *crypto.PrivateKey) {
	t.Helper()
	kx, ky := newKey(t), newKey(t)
	pool := utxo.NewPool()
	pool.Add(types.Outpoint{TxID: txA, Index: 0}, tx.Output{Value: 100, Owner: kx.PublicKey()})
	return pool, kx, ky
}

func handlers() map[string]*Handler {
	return map[string]*Handler{
		"sequential": New(25),
		"parallel":   New(25, WithWorkers(4)),
	}
}

func TestIsValid_SimpleSpend(t *testing.T) {
	for name, h := range handlers() {
		t.Run(name, func(t *testing.T) {
			pool, kx, ky := fixture(t)
			a0 := types.Outpoint{TxID: txA, Index: 0}
			spendTx := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 100, Owner: ky.PublicKey()})

			require.True(t, h.IsValid(spendTx, pool))
			assert.True(t, pool.Has(a0), "IsValid must not modify the pool")

			res := h.HandleTxs([]*tx.Transaction{spendTx}, pool)
			require.Len(t, res.Accepted, 1)
			assert.Empty(t, res.Rejected)

			assert.False(t, pool.Has(a0))
			got, err := pool.Get(types.Outpoint{TxID: spendTx.Hash(), Index: 0})
			require.NoError(t, err)
			assert.Equal(t, 100.0, got.Value)
			assert.Equal(t, ky.PublicKey(), got.Owner)
		})
	}
}

func TestCheck_UnknownUTXO(t *testing.T) {
	pool, kx, ky := fixture(t)
	missing := types.Outpoint{TxID: txA, Index: 1}
	bad := spend(t, kx, []types.Outpoint{missing}, tx.Output{Value: 1, Owner: ky.PublicKey()})

	assert.ErrorIs(t, New(25).Check(bad, pool), ErrUnknownUTXO)
}

func TestCheck_DoubleClaimWinsOverSignature(t *testing.T) {
	pool, kx, ky := fixture(t)
	a0 := types.Outpoint{TxID: txA, Index: 0}

	// Both signatures valid.
	dup := spend(t, kx, []types.Outpoint{a0, a0}, tx.Output{Value: 1, Owner: ky.PublicKey()})
	assert.ErrorIs(t, New(25).Check(dup, pool), ErrDoubleClaim)

	// Both signatures invalid.
	dupBad := spend(t, ky, []types.Outpoint{a0, a0}, tx.Output{Value: 1, Owner: ky.PublicKey()})
	assert.ErrorIs(t, New(25).Check(dupBad, pool), ErrDoubleClaim)
}

func TestCheck_ClaimsResolvedBeforeSignatures(t *testing.T) {
	pool, kx, ky := fixture(t)
	a0 := types.Outpoint{TxID: txA, Index: 0}
	missing := types.Outpoint{TxID: types.Hash{0x99}, Index: 0}

	tests := []struct {
		name   string
		signer *crypto.PrivateKey
		ins    []types.Outpoint
		want   error
	}{
		{"bad signature then unknown", ky, []types.Outpoint{a0, missing}, ErrUnknownUTXO},
		{"unknown then bad signature", ky, []types.Outpoint{missing, a0}, ErrUnknownUTXO},
		{"bad signature then double claim", ky, []types.Outpoint{a0, a0}, ErrDoubleClaim},
		{"bad signature only", ky, []types.Outpoint{a0}, ErrBadSignature},
		{"valid", kx, []types.Outpoint{a0}, nil},
	}
	h := New(25)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spendTx := spend(t, tt.signer, tt.ins, tx.Output{Value: 1, Owner: ky.PublicKey()})
			err := h.Check(spendTx, pool)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheck_BadSignature(t *testing.T) {
	pool, kx, ky := fixture(t)
	a0 := types.Outpoint{TxID: txA, Index: 0}

	wrongKey := spend(t, ky, []types.Outpoint{a0}, tx.Output{Value: 100, Owner: ky.PublicKey()})
	assert.ErrorIs(t, New(25).Check(wrongKey, pool), ErrBadSignature)

	// Tampering with an output after signing invalidates the signature.
	tampered := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 50, Owner: ky.PublicKey()})
	tampered.Outputs[0].Value = 60
	tampered.Finalize()
	assert.ErrorIs(t, New(25).Check(tampered, pool), ErrBadSignature)
}

func TestCheck_PEMOwner(t *testing.T) {
	kx, ky := newKey(t), newKey(t)
	pool := utxo.NewPool()
	a0 := types.Outpoint{TxID: txA, Index: 0}
	pool.Add(a0, tx.Output{Value: 10, Owner: kx.PublicKeyPEM()})

	ok := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 10, Owner: ky.PublicKeyPEM()})
	assert.NoError(t, New(25).Check(ok, pool))
}

func TestCheck_NegativeOutput(t *testing.T) {
	pool, kx, ky := fixture(t)
	a0 := types.Outpoint{TxID: txA, Index: 0}
	neg := spend(t, kx, []types.Outpoint{a0},
		tx.Output{Value: 150, Owner: ky.PublicKey()},
		tx.Output{Value: -50, Owner: kx.PublicKey()},
	)
	assert.ErrorIs(t, New(25).Check(neg, pool), ErrNegativeOutput)
}

func TestCheck_Unbalanced(t *testing.T) {
	pool, kx, ky := fixture(t)
	a0 := types.Outpoint{TxID: txA, Index: 0}
	over := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 100.01, Owner: ky.PublicKey()})
	assert.ErrorIs(t, New(25).Check(over, pool), ErrUnbalanced)

	// Surplus is allowed and simply discarded.
	under := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 60, Owner: ky.PublicKey()})
	assert.NoError(t, New(25).Check(under, pool))
}

func TestCheck_Nil(t *testing.T) {
	assert.ErrorIs(t, New(25).Check(nil, utxo.NewPool()), ErrNilTransaction)
}

func TestHandleTxs_RejectedLeavesPoolUntouched(t *testing.T) {
	for name, h := range handlers() {
		t.Run(name, func(t *testing.T) {
			pool, kx, ky := fixture(t)
			a0 := types.Outpoint{TxID: txA, Index: 0}
			before := pool.Commitment()

			invalid := []*tx.Transaction{
				spend(t, ky, []types.Outpoint{a0}, tx.Output{Value: 100, Owner: ky.PublicKey()}),
				spend(t, kx, []types.Outpoint{a0, a0}, tx.Output{Value: 1, Owner: ky.PublicKey()}),
				spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 101, Owner: ky.PublicKey()}),
				nil,
			}
			res := h.HandleTxs(invalid, pool)

			assert.Empty(t, res.Accepted)
			require.Len(t, res.Rejected, 4)
			assert.ErrorIs(t, res.Rejected[0].Err, ErrBadSignature)
			assert.ErrorIs(t, res.Rejected[1].Err, ErrDoubleClaim)
			assert.ErrorIs(t, res.Rejected[2].Err, ErrUnbalanced)
			assert.ErrorIs(t, res.Rejected[3].Err, ErrNilTransaction)
			assert.Equal(t, before, pool.Commitment())
			assert.Zero(t, res.Undo.Len())
		})
	}
}

func TestHandleTxs_OrderDependence(t *testing.T) {
	for name, h := range handlers() {
		t.Run(name, func(t *testing.T) {
			build := func(kx, ky *crypto.PrivateKey) (*tx.Transaction, *tx.Transaction) {
				t1 := spend(t, kx, []types.Outpoint{{TxID: txA, Index: 0}}, tx.Output{Value: 100, Owner: ky.PublicKey()})
				t2 := spend(t, ky, []types.Outpoint{{TxID: t1.Hash(), Index: 0}}, tx.Output{Value: 100, Owner: kx.PublicKey()})
				return t1, t2
			}

			pool, kx, ky := fixture(t)
			t1, t2 := build(kx, ky)
			res := h.HandleTxs([]*tx.Transaction{t2, t1}, pool)
			require.Len(t, res.Accepted, 1)
			assert.Same(t, t1, res.Accepted[0])
			require.Len(t, res.Rejected, 1)
			assert.Same(t, t2, res.Rejected[0].Tx)
			assert.ErrorIs(t, res.Rejected[0].Err, ErrUnknownUTXO)

			pool2 := utxo.NewPool()
			pool2.Add(types.Outpoint{TxID: txA, Index: 0}, tx.Output{Value: 100, Owner: kx.PublicKey()})
			res = h.HandleTxs([]*tx.Transaction{t1, t2}, pool2)
			require.Len(t, res.Accepted, 2)
			assert.Empty(t, res.Rejected)
			assert.True(t, pool2.Has(types.Outpoint{TxID: t2.Hash(), Index: 0}))
			assert.Equal(t, 1, pool2.Count())
		})
	}
}

func TestHandleTxs_ConflictingSpendsFirstWins(t *testing.T) {
	for name, h := range handlers() {
		t.Run(name, func(t *testing.T) {
			pool, kx, ky := fixture(t)
			a0 := types.Outpoint{TxID: txA, Index: 0}
			first := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 100, Owner: ky.PublicKey()})
			second := spend(t, kx, []types.Outpoint{a0}, tx.Output{Value: 99, Owner: ky.PublicKey()})

			res := h.HandleTxs([]*tx.Transaction{first, second}, pool)
			require.Len(t, res.Accepted, 1)
			assert.Same(t, first, res.Accepted[0])
			require.Len(t, res.Rejected, 1)
			assert.ErrorIs(t, res.Rejected[0].Err, ErrUnknownUTXO)
		})
	}
}

func TestHandleTxs_RefinalizesCandidates(t *testing.T) {
	pool, kx, ky := fixture(t)
	candidate := &tx.Transaction{
		Inputs:  []tx.Input{{PrevTxHash: txA, OutputIndex: 0}},
		Outputs: []tx.Output{{Value: 100, Owner: ky.PublicKey()}},
	}
	stale := candidate.Finalize()

	digest := candidate.SigHash(0)
	sig, err := kx.Sign(digest[:])
	require.NoError(t, err)
	candidate.Inputs[0].Signature = sig

	res := New(25).HandleTxs([]*tx.Transaction{candidate}, pool)
	require.Len(t, res.Accepted, 1)
	assert.NotEqual(t, stale, res.Accepted[0].Hash())
	assert.Equal(t, crypto.DoubleHash(candidate.RawData()), res.Accepted[0].Hash())
	assert.True(t, pool.Has(types.Outpoint{TxID: candidate.Hash(), Index: 0}))
}

func TestHandleTxs_UndoRestoresPool(t *testing.T) {
	pool, kx, ky := fixture(t)
	before := pool.Commitment()
	t1 := spend(t, kx, []types.Outpoint{{TxID: txA, Index: 0}}, tx.Output{Value: 40, Owner: ky.PublicKey()}, tx.Output{Value: 60, Owner: kx.PublicKey()})

	res := New(25).HandleTxs([]*tx.Transaction{t1}, pool)
	require.Len(t, res.Accepted, 1)
	assert.NotEqual(t, before, pool.Commitment())

	pool.Revert(res.Undo)
	assert.Equal(t, before, pool.Commitment())
}

type countingVerifier struct {
	calls chan struct{}
}

func (v countingVerifier) Verify(hash, sig, owner []byte) bool {
	v.calls <- struct{}{}
	return crypto.VerifySignature(hash, sig, owner)
}

func TestHandleTxs_PreverifiedVerdictsReused(t *testing.T) {
	kx, ky := newKey(t), newKey(t)
	pool := utxo.NewPool()
	var txs []*tx.Transaction
	for i := range 8 {
		op := types.Outpoint{TxID: types.Hash{byte(i + 1)}, Index: 0}
		pool.Add(op, tx.Output{Value: 1, Owner: kx.PublicKey()})
		txs = append(txs, spend(t, kx, []types.Outpoint{op}, tx.Output{Value: 1, Owner: ky.PublicKey()}))
	}

	v := countingVerifier{calls: make(chan struct{}, 64)}
	res := New(25, WithWorkers(4), WithVerifier(v)).HandleTxs(txs, pool)
	assert.Len(t, res.Accepted, 8)
	assert.Len(t, v.calls, 8, "each signature is verified once")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "ok", Reason(nil))
	assert.Equal(t, "double_claim", Reason(ErrDoubleClaim))
	assert.Equal(t, "unbalanced", Reason(New(25).Check(
		&tx.Transaction{Outputs: []tx.Output{{Value: 1}}}, utxo.NewPool())))
}

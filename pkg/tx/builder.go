package tx

import (
	"fmt"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{}}
}

// AddInput adds an input claiming output index of prevTx.
func (b *Builder) AddInput(prevTx types.Hash, index uint32) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevTxHash: prevTx, OutputIndex: index})
	return b
}

// AddOutput adds an output paying value to owner.
func (b *Builder) AddOutput(value float64, owner []byte) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Owner: owner})
	return b
}

// SignInput signs input i with key. Outputs must be complete before
// signing since every output is covered by the signature.
func (b *Builder) SignInput(i int, key crypto.Signer) error {
	if i < 0 || i >= len(b.tx.Inputs) {
		return fmt.Errorf("sign input %d: index out of range", i)
	}
	digest := b.tx.SigHash(i)
	sig, err := key.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign input %d: %w", i, err)
	}
	b.tx.Inputs[i].Signature = sig
	return nil
}

// SignAll signs every input with the same key.
func (b *Builder) SignAll(key crypto.Signer) error {
	for i := range b.tx.Inputs {
		if err := b.SignInput(i, key); err != nil {
			return err
		}
	}
	return nil
}

// Build finalizes and returns the constructed transaction.
// It does not validate against any UTXO pool.
func (b *Builder) Build() *Transaction {
	b.tx.Finalize()
	return b.tx
}

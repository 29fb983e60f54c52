// Package block defines the block type, its byte encoding and hashing.
package block

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Block links to its parent and carries a coinbase plus ordinary transactions.
//
// The coinbase is not part of the hashed bytes. Two blocks on the same
// parent with the same transactions share a hash even when their coinbases
// pay different owners.
type Block struct {
	hash      types.Hash
	finalized bool

	PrevHash     types.Hash
	Coinbase     *tx.Transaction
	Transactions []*tx.Transaction
}

// NewBlock creates an unfinalized block.
func NewBlock(prevHash types.Hash, coinbase *tx.Transaction, txs []*tx.Transaction) *Block {
	return &Block{
		PrevHash:     prevHash,
		Coinbase:     coinbase,
		Transactions: txs,
	}
}

// RawData returns prev_hash followed by the raw encoding of every
// non-coinbase transaction.
func (b *Block) RawData() []byte {
	buf := append([]byte(nil), b.PrevHash[:]...)
	for _, t := range b.Transactions {
		buf = append(buf, t.RawData()...)
	}
	return buf
}

// Finalize computes and caches the block hash.
func (b *Block) Finalize() types.Hash {
	b.hash = crypto.DoubleHash(b.RawData())
	b.finalized = true
	return b.hash
}

// IsFinalized reports whether Finalize has run.
func (b *Block) IsFinalized() bool {
	return b.finalized
}

// Hash returns the cached block hash. Panics if the block has not been
// finalized.
func (b *Block) Hash() types.Hash {
	if !b.finalized {
		panic("block: Hash called before Finalize")
	}
	return b.hash
}

// TxRoot returns the merkle root over the hashes of the coinbase and the
// transactions, in block order. Every transaction must be finalized.
func (b *Block) TxRoot() types.Hash {
	hashes := make([]types.Hash, 0, len(b.Transactions)+1)
	if b.Coinbase != nil {
		hashes = append(hashes, b.Coinbase.Hash())
	}
	for _, t := range b.Transactions {
		hashes = append(hashes, t.Hash())
	}
	return ComputeMerkleRoot(hashes)
}

type blockJSON struct {
	Hash         *types.Hash       `json:"hash,omitempty"`
	PrevHash     types.Hash        `json:"prev_hash"`
	Coinbase     *tx.Transaction   `json:"coinbase"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// MarshalJSON encodes the block. The hash is included only when the block
// is finalized.
func (b *Block) MarshalJSON() ([]byte, error) {
	j := blockJSON{PrevHash: b.PrevHash, Coinbase: b.Coinbase, Transactions: b.Transactions}
	if j.Transactions == nil {
		j.Transactions = []*tx.Transaction{}
	}
	if b.finalized {
		h := b.hash
		j.Hash = &h
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a block and finalizes it. A carried hash is ignored.
func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	for i, t := range j.Transactions {
		if t == nil {
			return fmt.Errorf("transaction %d is null", i)
		}
	}
	b.PrevHash = j.PrevHash
	b.Coinbase = j.Coinbase
	b.Transactions = j.Transactions
	b.Finalize()
	return nil
}

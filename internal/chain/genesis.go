package chain

import (
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// NewGenesisBlock builds the genesis block: a zero prev hash, no
// transactions and a coinbase paying the initial allocation to owner.
// A zero allocation still produces a coinbase so every block has one.
func NewGenesisBlock(owner []byte, allocation float64) *block.Block {
	blk := block.NewBlock(types.Hash{}, tx.NewCoinbase(allocation, owner), nil)
	blk.Finalize()
	return blk
}

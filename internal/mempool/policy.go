package mempool

import (
	"fmt"

	"github.com/Klingon-tech/ledgernode/pkg/tx"
)

// Policy defaults.
const (
	DefaultMaxTxSize  = 100_000
	DefaultMaxInputs  = 1000
	DefaultMaxOutputs = 1000
)

// Policy defines local transaction acceptance rules. Policy rules can
// vary per node and never replace validation against a UTXO pool.
type Policy struct {
	MaxTxSize  int // Maximum raw encoding size in bytes.
	MaxInputs  int
	MaxOutputs int
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxTxSize:  DefaultMaxTxSize,
		MaxInputs:  DefaultMaxInputs,
		MaxOutputs: DefaultMaxOutputs,
	}
}

// Check validates a transaction against policy rules. Zero limits are
// not enforced.
func (p *Policy) Check(transaction *tx.Transaction) error {
	if transaction.Coinbase {
		return fmt.Errorf("coinbase transactions are created by the assembler")
	}
	if size := transaction.Size(); p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	if p.MaxInputs > 0 && len(transaction.Inputs) > p.MaxInputs {
		return fmt.Errorf("too many inputs: %d, max %d", len(transaction.Inputs), p.MaxInputs)
	}
	if p.MaxOutputs > 0 && len(transaction.Outputs) > p.MaxOutputs {
		return fmt.Errorf("too many outputs: %d, max %d", len(transaction.Outputs), p.MaxOutputs)
	}
	return nil
}

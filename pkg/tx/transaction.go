// Package tx defines transaction types, their byte encoding and hashing.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Transaction moves value from claimed UTXOs to new outputs.
//
// The hash is derived from the encoded inputs and outputs and is cached by
// Finalize. Inputs and outputs must not be mutated after finalization.
type Transaction struct {
	hash      types.Hash
	finalized bool

	Inputs   []Input
	Outputs  []Output
	Coinbase bool
}

// Input claims a previous output.
type Input struct {
	PrevTxHash  types.Hash
	OutputIndex uint32
	Signature   []byte
}

// Output defines a new UTXO.
type Output struct {
	Value float64
	Owner []byte
}

// Outpoint returns the UTXO key claimed by the input.
func (in Input) Outpoint() types.Outpoint {
	return types.Outpoint{TxID: in.PrevTxHash, Index: in.OutputIndex}
}

// appendOutput appends value (8 bytes IEEE-754, little-endian) and owner bytes.
func appendOutput(buf []byte, out Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(out.Value))
	return append(buf, out.Owner...)
}

// appendInputRef appends prev tx hash and the output index (uint32, little-endian).
func appendInputRef(buf []byte, in Input) []byte {
	buf = append(buf, in.PrevTxHash[:]...)
	return binary.LittleEndian.AppendUint32(buf, in.OutputIndex)
}

// RawData returns the canonical encoding hashed into the transaction ID.
// Format: [prev_tx_hash(32) | output_index(4) | signature]... | [value(8) | owner]...
func (tx *Transaction) RawData() []byte {
	var buf []byte
	for _, in := range tx.Inputs {
		buf = appendInputRef(buf, in)
		buf = append(buf, in.Signature...)
	}
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}
	return buf
}

// RawDataToSign returns the payload covered by the signature of input i:
// the input's prev tx hash and output index followed by every output.
// Panics if i is out of range.
func (tx *Transaction) RawDataToSign(i int) []byte {
	if i < 0 || i >= len(tx.Inputs) {
		panic(fmt.Sprintf("tx: input index %d out of range [0,%d)", i, len(tx.Inputs)))
	}
	buf := appendInputRef(nil, tx.Inputs[i])
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}
	return buf
}

// SigHash returns the 32-byte digest signed for input i.
func (tx *Transaction) SigHash(i int) types.Hash {
	return crypto.DoubleHash(tx.RawDataToSign(i))
}

// Finalize computes and caches the transaction hash. Calling it again
// recomputes the hash from the current contents.
func (tx *Transaction) Finalize() types.Hash {
	tx.hash = crypto.DoubleHash(tx.RawData())
	tx.finalized = true
	return tx.hash
}

// IsFinalized reports whether Finalize has run.
func (tx *Transaction) IsFinalized() bool {
	return tx.finalized
}

// Hash returns the cached transaction hash. Panics if the transaction
// has not been finalized.
func (tx *Transaction) Hash() types.Hash {
	if !tx.finalized {
		panic("tx: Hash called before Finalize")
	}
	return tx.hash
}

// Size returns the length of the raw encoding in bytes.
func (tx *Transaction) Size() int {
	return len(tx.RawData())
}

// TotalOutputValue returns the sum of all output values.
func (tx *Transaction) TotalOutputValue() float64 {
	var total float64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}

// OutputOutpoint returns the UTXO key of output j. Panics if the
// transaction has not been finalized.
func (tx *Transaction) OutputOutpoint(j int) types.Outpoint {
	return types.Outpoint{TxID: tx.Hash(), Index: uint32(j)}
}

// NewCoinbase creates a finalized reward transaction with no inputs and
// a single output paying value to owner.
func NewCoinbase(value float64, owner []byte) *Transaction {
	cb := &Transaction{
		Outputs:  []Output{{Value: value, Owner: append([]byte(nil), owner...)}},
		Coinbase: true,
	}
	cb.Finalize()
	return cb
}

type inputJSON struct {
	PrevTxHash  types.Hash `json:"prev_tx_hash"`
	OutputIndex uint32     `json:"output_index"`
	Signature   string     `json:"signature,omitempty"`
}

// MarshalJSON encodes the input with a hex-encoded signature.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{
		PrevTxHash:  in.PrevTxHash,
		OutputIndex: in.OutputIndex,
		Signature:   hex.EncodeToString(in.Signature),
	})
}

// UnmarshalJSON decodes an input with a hex-encoded signature.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	sig, err := decodeHexField("signature", j.Signature)
	if err != nil {
		return err
	}
	in.PrevTxHash = j.PrevTxHash
	in.OutputIndex = j.OutputIndex
	in.Signature = sig
	return nil
}

type outputJSON struct {
	Value float64 `json:"value"`
	Owner string  `json:"owner"`
}

// MarshalJSON encodes the output with hex-encoded owner key bytes.
func (out Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{Value: out.Value, Owner: hex.EncodeToString(out.Owner)})
}

// UnmarshalJSON decodes an output with hex-encoded owner key bytes.
func (out *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	owner, err := decodeHexField("owner", j.Owner)
	if err != nil {
		return err
	}
	out.Value = j.Value
	out.Owner = owner
	return nil
}

type transactionJSON struct {
	Hash     *types.Hash `json:"hash,omitempty"`
	Inputs   []Input     `json:"inputs"`
	Outputs  []Output    `json:"outputs"`
	Coinbase bool        `json:"coinbase,omitempty"`
}

// MarshalJSON encodes the transaction. The hash is included only when
// the transaction is finalized.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{Inputs: tx.Inputs, Outputs: tx.Outputs, Coinbase: tx.Coinbase}
	if j.Inputs == nil {
		j.Inputs = []Input{}
	}
	if j.Outputs == nil {
		j.Outputs = []Output{}
	}
	if tx.finalized {
		h := tx.hash
		j.Hash = &h
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a transaction and finalizes it. A hash carried
// in the JSON is ignored; the hash is always recomputed from content.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	tx.Inputs = j.Inputs
	tx.Outputs = j.Outputs
	tx.Coinbase = j.Coinbase
	tx.Finalize()
	return nil
}

func decodeHexField(name, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return b, nil
}

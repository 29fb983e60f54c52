package rpc

import (
	"encoding/hex"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeRejected       = -32001
	CodeUnavailable    = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// HashParam is used by endpoints that take a single hash.
type HashParam struct {
	Hash string `json:"hash"`
}

// HeightParam is used by endpoints that take a block height.
type HeightParam struct {
	Height uint64 `json:"height"`
}

// OutpointParam is used by utxo_get.
type OutpointParam struct {
	TxID  string `json:"tx_id"`
	Index uint32 `json:"index"`
}

// OwnerParam is used by utxo_getBalance and utxo_getByOwner. Owner is the
// hex encoding of the owner bytes or a PEM block.
type OwnerParam struct {
	Owner string `json:"owner"`
}

// TxSubmitParam is used by tx_submit and tx_validate.
type TxSubmitParam struct {
	Transaction *tx.Transaction `json:"transaction"`
}

// BlockSubmitParam is used by block_submit.
type BlockSubmitParam struct {
	Block *block.Block `json:"block"`
}

// CreateBlockParam is used by mining_createBlock. An empty owner uses the
// node's configured reward owner.
type CreateBlockParam struct {
	RewardOwner string `json:"reward_owner,omitempty"`
}

// ── Block/Tx result types ───────────────────────────────────────────────

// BlockResult wraps a block with its precomputed hashes for RPC responses.
type BlockResult struct {
	Hash         string      `json:"hash"`
	PrevHash     string      `json:"prev_hash"`
	Height       uint64      `json:"height"`
	TxRoot       string      `json:"tx_root"`
	Coinbase     *TxResult   `json:"coinbase,omitempty"`
	Transactions []*TxResult `json:"transactions"`
}

// TxResult wraps a transaction with its precomputed hash for RPC responses.
type TxResult struct {
	Hash     string      `json:"hash"`
	Inputs   []tx.Input  `json:"inputs"`
	Outputs  []tx.Output `json:"outputs"`
	Coinbase bool        `json:"coinbase,omitempty"`
}

// NewBlockResult creates a BlockResult from a finalized block.
func NewBlockResult(b *block.Block, height uint64) *BlockResult {
	txResults := make([]*TxResult, len(b.Transactions))
	for i, t := range b.Transactions {
		txResults[i] = NewTxResult(t)
	}
	res := &BlockResult{
		Hash:         b.Hash().String(),
		PrevHash:     b.PrevHash.String(),
		Height:       height,
		Transactions: txResults,
	}
	if b.Coinbase != nil {
		res.Coinbase = NewTxResult(b.Coinbase)
	}
	// NewTxResult finalized every transaction.
	res.TxRoot = b.TxRoot().String()
	return res
}

// NewTxResult creates a TxResult from a transaction, finalizing it if
// needed.
func NewTxResult(t *tx.Transaction) *TxResult {
	return &TxResult{
		Hash:     t.Finalize().String(),
		Inputs:   t.Inputs,
		Outputs:  t.Outputs,
		Coinbase: t.Coinbase,
	}
}

// ── Result types ────────────────────────────────────────────────────────

// UTXOResult describes one unspent output.
type UTXOResult struct {
	TxID  string  `json:"tx_id"`
	Index uint32  `json:"index"`
	Value float64 `json:"value"`
	Owner string  `json:"owner"`
}

// NewUTXOResult converts a pool entry.
func NewUTXOResult(u utxo.UTXO) UTXOResult {
	return UTXOResult{
		TxID:  u.Outpoint.TxID.String(),
		Index: u.Outpoint.Index,
		Value: u.Output.Value,
		Owner: hex.EncodeToString(u.Output.Owner),
	}
}

// BalanceResult is returned by utxo_getBalance.
type BalanceResult struct {
	Owner   string  `json:"owner"`
	Balance float64 `json:"balance"`
	UTXOs   int     `json:"utxos"`
}

// CommitmentResult is returned by chain_getCommitment.
type CommitmentResult struct {
	Commitment string `json:"commitment"`
	Height     uint64 `json:"height"`
	TipHash    string `json:"tip_hash"`
}

// TxSubmitResult is returned by tx_submit.
type TxSubmitResult struct {
	TxHash string `json:"tx_hash"`
}

// TxValidateResult is returned by tx_validate.
type TxValidateResult struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// BlockSubmitResult is returned by block_submit.
type BlockSubmitResult struct {
	BlockHash string `json:"block_hash"`
	Height    uint64 `json:"height"`
	Canonical bool   `json:"canonical"`
}

// MempoolInfoResult is returned by mempool_getInfo.
type MempoolInfoResult struct {
	Count   int `json:"count"`
	MaxSize int `json:"max_size"`
}

// MempoolContentResult is returned by mempool_getContent.
type MempoolContentResult struct {
	Hashes []string `json:"hashes"`
}

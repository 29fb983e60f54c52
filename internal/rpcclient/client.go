// Package rpcclient provides a JSON-RPC 2.0 client for ledger nodes.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/ledgernode/internal/chain"
	"github.com/Klingon-tech/ledgernode/internal/rpc"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// RPCError is returned when the server responds with an error. Reason
// carries the rejection label of block_submit, if any.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext is Call bound to ctx.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// ── Typed helpers ───────────────────────────────────────────────────────

// Tip returns the canonical tip.
func (c *Client) Tip() (*chain.TipSnapshot, error) {
	var res chain.TipSnapshot
	if err := c.Call("chain_getTip", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Branches lists the retained branches, canonical first.
func (c *Client) Branches() ([]chain.BranchInfo, error) {
	var res []chain.BranchInfo
	if err := c.Call("chain_getBranches", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Block fetches a block by hash.
func (c *Client) Block(hash types.Hash) (*rpc.BlockResult, error) {
	var res rpc.BlockResult
	if err := c.Call("chain_getBlock", rpc.HashParam{Hash: hash.String()}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BlockByHeight fetches the canonical block at height.
func (c *Client) BlockByHeight(height uint64) (*rpc.BlockResult, error) {
	var res rpc.BlockResult
	if err := c.Call("chain_getBlockByHeight", rpc.HeightParam{Height: height}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Commitment returns the canonical UTXO set commitment.
func (c *Client) Commitment() (*rpc.CommitmentResult, error) {
	var res rpc.CommitmentResult
	if err := c.Call("chain_getCommitment", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Balance returns the canonical balance of owner (hex or PEM).
func (c *Client) Balance(owner string) (*rpc.BalanceResult, error) {
	var res rpc.BalanceResult
	if err := c.Call("utxo_getBalance", rpc.OwnerParam{Owner: owner}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UTXOs lists the canonical outputs paying owner.
func (c *Client) UTXOs(owner string) ([]rpc.UTXOResult, error) {
	var res []rpc.UTXOResult
	if err := c.Call("utxo_getByOwner", rpc.OwnerParam{Owner: owner}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitTx sends a transaction to the node's mempool.
func (c *Client) SubmitTx(t *tx.Transaction) (string, error) {
	var res rpc.TxSubmitResult
	if err := c.Call("tx_submit", rpc.TxSubmitParam{Transaction: t}, &res); err != nil {
		return "", err
	}
	return res.TxHash, nil
}

// ValidateTx checks a transaction against the canonical UTXO pool.
func (c *Client) ValidateTx(t *tx.Transaction) (*rpc.TxValidateResult, error) {
	var res rpc.TxValidateResult
	if err := c.Call("tx_validate", rpc.TxSubmitParam{Transaction: t}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitBlock sends a block to the node's ledger.
func (c *Client) SubmitBlock(b *block.Block) (*rpc.BlockSubmitResult, error) {
	var res rpc.BlockSubmitResult
	if err := c.Call("block_submit", rpc.BlockSubmitParam{Block: b}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MempoolInfo returns the mempool size and capacity.
func (c *Client) MempoolInfo() (*rpc.MempoolInfoResult, error) {
	var res rpc.MempoolInfoResult
	if err := c.Call("mempool_getInfo", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateBlock asks the node to assemble a block. An empty owner uses the
// node's configured reward owner.
func (c *Client) CreateBlock(rewardOwner string) (*rpc.BlockResult, error) {
	var params interface{}
	if rewardOwner != "" {
		params = rpc.CreateBlockParam{RewardOwner: rewardOwner}
	}
	var res rpc.BlockResult
	if err := c.Call("mining_createBlock", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/ledgernode/internal/chain"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetTip(_ *Request) (interface{}, *Error) {
	return s.ledger.Tip(), nil
}

func (s *Server) handleChainGetBranches(_ *Request) (interface{}, *Error) {
	return s.ledger.Branches(), nil
}

func (s *Server) handleChainGetBlock(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	hash, rpcErr := decodeHash(params.Hash, "hash")
	if rpcErr != nil {
		return nil, rpcErr
	}

	blk, height, err := s.ledger.Block(hash)
	if err != nil {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block not found: %v", err)}
	}
	return NewBlockResult(blk, height), nil
}

func (s *Server) handleChainGetBlockByHeight(req *Request) (interface{}, *Error) {
	var params HeightParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	blk, err := s.ledger.BlockByHeight(params.Height)
	if err != nil {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block not found at height %d: %v", params.Height, err)}
	}
	return NewBlockResult(blk, params.Height), nil
}

func (s *Server) handleChainGetCommitment(_ *Request) (interface{}, *Error) {
	tip := s.ledger.Tip()
	return &CommitmentResult{
		Commitment: s.ledger.Commitment().String(),
		Height:     tip.Height,
		TipHash:    tip.Hash.String(),
	}, nil
}

// ── UTXO endpoints ──────────────────────────────────────────────────────

func (s *Server) handleUTXOGet(req *Request) (interface{}, *Error) {
	var params OutpointParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	txID, rpcErr := decodeHash(params.TxID, "tx_id")
	if rpcErr != nil {
		return nil, rpcErr
	}

	op := types.Outpoint{TxID: txID, Index: params.Index}
	out, err := s.ledger.UTXO(op)
	if errors.Is(err, utxo.ErrNotFound) {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("utxo %s not found", op)}
	}
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return NewUTXOResult(utxo.UTXO{Outpoint: op, Output: out}), nil
}

func (s *Server) handleUTXOGetByOwner(req *Request) (interface{}, *Error) {
	var params OwnerParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := decodeOwner(params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}

	owned := s.ledger.OwnedUTXOs(owner)
	results := make([]UTXOResult, len(owned))
	for i, u := range owned {
		results[i] = NewUTXOResult(u)
	}
	return results, nil
}

func (s *Server) handleUTXOGetBalance(req *Request) (interface{}, *Error) {
	var params OwnerParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := decodeOwner(params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}

	total, count := s.ledger.Balance(owner)
	return &BalanceResult{
		Owner:   params.Owner,
		Balance: total,
		UTXOs:   count,
	}, nil
}

// ── Transaction endpoints ───────────────────────────────────────────────

func (s *Server) handleTxSubmit(req *Request) (interface{}, *Error) {
	var params TxSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}

	txHash, err := s.ledger.AddTx(params.Transaction)
	if err != nil {
		code := CodeRejected
		if errors.Is(err, mempool.ErrPoolFull) {
			code = CodeUnavailable
		}
		return nil, &Error{Code: code, Message: fmt.Sprintf("rejected: %v", err)}
	}

	s.logger.Debug().Str("tx", txHash.Short()).Msg("Transaction submitted")
	return &TxSubmitResult{TxHash: txHash.String()}, nil
}

func (s *Server) handleTxValidate(req *Request) (interface{}, *Error) {
	var params TxSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}

	if err := s.ledger.CheckTx(params.Transaction); err != nil {
		return &TxValidateResult{
			Valid:  false,
			Error:  err.Error(),
			Reason: txhandler.Reason(err),
		}, nil
	}
	return &TxValidateResult{Valid: true}, nil
}

// ── Block endpoints ─────────────────────────────────────────────────────

func (s *Server) handleBlockSubmit(req *Request) (interface{}, *Error) {
	var params BlockSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Block == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "block is required"}
	}

	blk := params.Block
	if err := s.ledger.AddBlock(blk); err != nil {
		return nil, &Error{
			Code:    CodeRejected,
			Message: fmt.Sprintf("block rejected: %v", err),
			Data:    chain.RejectReason(err),
		}
	}

	_, height, _ := s.ledger.Block(blk.Hash())
	return &BlockSubmitResult{
		BlockHash: blk.Hash().String(),
		Height:    height,
		Canonical: s.ledger.Tip().Hash == blk.Hash(),
	}, nil
}

// ── Mempool endpoints ───────────────────────────────────────────────────

func (s *Server) handleMempoolGetInfo(_ *Request) (interface{}, *Error) {
	return &MempoolInfoResult{
		Count:   s.pool.Count(),
		MaxSize: s.pool.MaxSize(),
	}, nil
}

func (s *Server) handleMempoolGetContent(_ *Request) (interface{}, *Error) {
	hashes := s.pool.Hashes()
	hexHashes := make([]string, len(hashes))
	for i, h := range hashes {
		hexHashes[i] = h.String()
	}
	return &MempoolContentResult{Hashes: hexHashes}, nil
}

// ── Assembly endpoints ──────────────────────────────────────────────────

func (s *Server) handleMiningCreateBlock(req *Request) (interface{}, *Error) {
	if s.asm == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "block assembly not enabled"}
	}

	owner := s.rewardOwner
	if req.Params != nil {
		var params CreateBlockParam
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
		if params.RewardOwner != "" {
			var rpcErr *Error
			if owner, rpcErr = decodeOwner(params.RewardOwner); rpcErr != nil {
				return nil, rpcErr
			}
		}
	}
	if len(owner) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "reward_owner is required"}
	}

	blk, err := s.asm.CreateBlock(owner)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	_, height, _ := s.ledger.Block(blk.Hash())
	return NewBlockResult(blk, height), nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// decodeHash parses a 32-byte hex hash parameter.
func decodeHash(s, field string) (types.Hash, *Error) {
	if s == "" {
		return types.Hash{}, &Error{Code: CodeInvalidParams, Message: field + " is required"}
	}
	h, err := types.HexToHash(s)
	if err != nil {
		return types.Hash{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: must be 32-byte hex", field)}
	}
	return h, nil
}

// decodeOwner parses owner bytes given as hex or as a PEM block. The
// bytes are matched exactly against output owners.
func decodeOwner(s string) ([]byte, *Error) {
	if s == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "owner is required"}
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid owner: must be hex or PEM"}
	}
	return b, nil
}

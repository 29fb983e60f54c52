package rpcclient

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Klingon-tech/ledgernode/internal/assembler"
	"github.com/Klingon-tech/ledgernode/internal/chain"
	klog "github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/rpc"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	client  *Client
	ledger  *chain.Ledger
	genesis *block.Block
	key     *crypto.PrivateKey
	owner   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	genesis := chain.NewGenesisBlock(key.PublicKey(), 1000)
	handler := txhandler.New(assembler.DefaultReward)
	pool := mempool.New(100, nil)
	ledger, err := chain.New(genesis, handler, chain.WithMempool(pool))
	require.NoError(t, err)

	// Create and start RPC server on random port.
	srv := rpc.New("127.0.0.1:0", ledger, pool)
	srv.SetAssembler(assembler.New(ledger, pool, handler, assembler.DefaultReward), key.PublicKey())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client:  New("http://" + srv.Addr() + "/"),
		ledger:  ledger,
		genesis: genesis,
		key:     key,
		owner:   hex.EncodeToString(key.PublicKey()),
	}
}

func TestClient_Tip(t *testing.T) {
	env := setupTestEnv(t)

	tip, err := env.client.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tip.Height)
	assert.Equal(t, env.genesis.Hash(), tip.Hash)
}

func TestClient_BlockByHeight(t *testing.T) {
	env := setupTestEnv(t)

	blk, err := env.client.BlockByHeight(0)
	require.NoError(t, err)
	assert.Equal(t, env.genesis.Hash().String(), blk.Hash)
	require.NotNil(t, blk.Coinbase)
	assert.Equal(t, 1000.0, blk.Coinbase.Outputs[0].Value)
}

func TestClient_Balance(t *testing.T) {
	env := setupTestEnv(t)

	bal, err := env.client.Balance(env.owner)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal.Balance)

	utxos, err := env.client.UTXOs(string(env.key.PublicKeyPEM()))
	require.NoError(t, err)
	assert.Empty(t, utxos, "PEM and raw owners are distinct keys")
}

func TestClient_SubmitAndAssemble(t *testing.T) {
	env := setupTestEnv(t)
	b := tx.NewBuilder().AddInput(env.genesis.Coinbase.Hash(), 0).AddOutput(1000, env.key.PublicKeyPEM())
	require.NoError(t, b.SignAll(env.key))
	pay := b.Build()

	valid, err := env.client.ValidateTx(pay)
	require.NoError(t, err)
	assert.True(t, valid.Valid)

	hash, err := env.client.SubmitTx(pay)
	require.NoError(t, err)
	assert.Equal(t, pay.Hash().String(), hash)

	info, err := env.client.MempoolInfo()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Count)

	created, err := env.client.CreateBlock("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.Height)
	require.Len(t, created.Transactions, 1)

	bal, err := env.client.Balance(string(env.key.PublicKeyPEM()))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal.Balance)

	commit, err := env.client.Commitment()
	require.NoError(t, err)
	assert.Equal(t, env.ledger.Commitment().String(), commit.Commitment)
}

func TestClient_SubmitBlock(t *testing.T) {
	env := setupTestEnv(t)

	blk := block.NewBlock(env.genesis.Hash(), tx.NewCoinbase(25, env.key.PublicKey()), nil)
	blk.Finalize()
	res, err := env.client.SubmitBlock(blk)
	require.NoError(t, err)
	assert.True(t, res.Canonical)
	assert.Equal(t, uint64(1), res.Height)

	branches, err := env.client.Branches()
	require.NoError(t, err)
	require.Len(t, branches, 1)

	got, err := env.client.Block(blk.Hash())
	require.NoError(t, err)
	assert.Equal(t, env.genesis.Hash().String(), got.PrevHash)

	_, err = env.client.SubmitBlock(blk)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeRejected, rpcErr.Code)
	assert.Equal(t, "duplicate", rpcErr.Reason)
}

func TestClient_Block_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.client.Block(types.Hash{0x42})
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeNotFound, rpcErr.Code)
}

func TestClient_Call_InvalidEndpoint(t *testing.T) {
	client := New("http://127.0.0.1:1/") // port 1 should refuse

	_, err := client.Tip()
	assert.Error(t, err)
}

func TestClient_Call_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	err := env.client.Call("nonexistent_method", nil, nil)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeMethodNotFound, rpcErr.Code)
}

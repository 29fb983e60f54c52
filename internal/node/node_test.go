package node

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Klingon-tech/ledgernode/config"
	"github.com/Klingon-tech/ledgernode/internal/chain"
	"github.com/Klingon-tech/ledgernode/internal/rpcclient"
	"github.com/Klingon-tech/ledgernode/internal/storage"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.ledgerd/archive", filepath.Join(home, ".ledgerd/archive")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandHome(tt.input), "expandHome(%q)", tt.input)
	}
}

func TestGenesisBlock(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	blk, err := genesisBlock(config.GenesisConfig{Owner: hex.EncodeToString(key.PublicKey()), Allocation: 50})
	require.NoError(t, err)
	assert.True(t, blk.PrevHash.IsZero())
	assert.Equal(t, key.PublicKey(), blk.Coinbase.Outputs[0].Owner)
	assert.Equal(t, 50.0, blk.Coinbase.Outputs[0].Value)

	// Same config, same genesis.
	again, err := genesisBlock(config.GenesisConfig{Owner: hex.EncodeToString(key.PublicKey()), Allocation: 50})
	require.NoError(t, err)
	assert.Equal(t, blk.Hash(), again.Hash())

	unowned, err := genesisBlock(config.GenesisConfig{Allocation: 50})
	require.NoError(t, err)
	assert.Empty(t, unowned.Coinbase.Outputs[0].Owner)

	_, err = genesisBlock(config.GenesisConfig{Owner: "zz"})
	assert.Error(t, err)
}

func TestResolveRewardOwner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	owner, err := resolveRewardOwner(config.AssemblerConfig{})
	require.NoError(t, err)
	assert.Nil(t, owner)

	owner, err = resolveRewardOwner(config.AssemblerConfig{RewardOwner: string(key.PublicKeyPEM())})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKeyPEM(), owner)

	_, err = resolveRewardOwner(config.AssemblerConfig{RewardOwner: "00"})
	assert.Error(t, err)
}

func TestMempoolPolicy(t *testing.T) {
	p := mempoolPolicy(config.MempoolConfig{MaxTxSize: 10, MaxInputs: 2, MaxOutputs: 3})
	assert.Equal(t, 10, p.MaxTxSize)
	assert.Equal(t, 2, p.MaxInputs)
	assert.Equal(t, 3, p.MaxOutputs)
}

// testConfig returns a config rooted in a temp dir with RPC on a random
// port and the given key as genesis and reward owner.
func testConfig(t *testing.T, key *crypto.PrivateKey) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Log.Level = "error"
	cfg.RPC.Port = 0
	cfg.Genesis.Owner = hex.EncodeToString(key.PublicKey())
	cfg.Genesis.Allocation = 100
	cfg.Assembler.RewardOwner = hex.EncodeToString(key.PublicKey())
	return cfg
}

func TestNode_ProcessAndAssemble(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	n, err := New(testConfig(t, key))
	require.NoError(t, err)
	require.NoError(t, n.Start())
	t.Cleanup(n.Stop)

	genesis := n.Ledger().Tip()
	assert.Equal(t, uint64(0), genesis.Height)

	gen, _, err := n.Ledger().Block(genesis.Hash)
	require.NoError(t, err)
	b := tx.NewBuilder().
		AddInput(gen.Coinbase.Hash(), 0).
		AddOutput(70, other.PublicKey()).
		AddOutput(30, key.PublicKey())
	require.NoError(t, b.SignAll(key))
	pay := b.Build()

	hash, err := n.ProcessTx(pay)
	require.NoError(t, err)
	assert.Equal(t, pay.Hash(), hash)
	assert.Equal(t, 1, n.Mempool().Count())

	blk, err := n.CreateBlock()
	require.NoError(t, err)
	require.Len(t, blk.Transactions, 1)
	assert.Equal(t, uint64(1), n.Height())
	assert.Zero(t, n.Mempool().Count())

	bal, count := n.Ledger().Balance(other.PublicKey())
	assert.Equal(t, 70.0, bal)
	assert.Equal(t, 1, count)
	bal, _ = n.Ledger().Balance(key.PublicKey())
	assert.Equal(t, 30.0+n.cfg.Ledger.CoinbaseReward, bal)
}

func TestNode_ProcessBlock(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	n, err := New(testConfig(t, key))
	require.NoError(t, err)
	t.Cleanup(n.Stop)

	tip := n.Ledger().Tip()
	blk := block.NewBlock(tip.Hash, tx.NewCoinbase(25, key.PublicKey()), nil)
	require.NoError(t, n.ProcessBlock(blk))
	assert.Equal(t, uint64(1), n.Height())

	err = n.ProcessBlock(block.NewBlock(types.Hash{0xaa}, tx.NewCoinbase(25, key.PublicKey()), nil))
	assert.ErrorIs(t, err, chain.ErrOrphanBlock)
}

func TestNode_CreateBlockWithoutOwner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig(t, key)
	cfg.Assembler.RewardOwner = ""
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(n.Stop)

	_, err = n.CreateBlock()
	assert.ErrorIs(t, err, ErrAssemblyDisabled)
	assert.Empty(t, n.RPCAddr())
}

func TestNode_InvalidConfig(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig(t, key)
	cfg.Ledger.CutOffAge = 0

	_, err = New(cfg)
	assert.Error(t, err)
}

func TestNode_AssemblerLoop(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig(t, key)
	cfg.Assembler.Enabled = true
	cfg.Assembler.Interval = 20 * time.Millisecond

	n, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, n.Start())
	t.Cleanup(n.Stop)

	assert.Eventually(t, func() bool { return n.Height() >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestNode_BadgerArchive(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig(t, key)
	cfg.Storage.Backend = storage.BackendBadger
	cfg.Ledger.CutOffAge = 1
	cfg.RPC.Enabled = false

	n, err := New(cfg)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := n.CreateBlock()
		require.NoError(t, err)
	}
	first, err := n.Ledger().BlockByHeight(1)
	require.NoError(t, err)
	n.Stop()

	db, err := storage.Open(storage.BackendBadger, cfg.ArchiveDir())
	require.NoError(t, err)
	defer db.Close()

	archive := chain.NewBlockStore(storage.NewNamespace(db, archiveNamespace))
	hash, height, found, err := archive.GetTip()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(1), height)
	assert.Equal(t, first.Hash(), hash)

	// Genesis and height 1 left the two-entry window.
	count, err := archive.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, _, found, err = chain.NewBlockStore(db).GetTip()
	require.NoError(t, err)
	assert.False(t, found, "archive keys live under their namespace")
}

func TestNode_RPC(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	n, err := New(testConfig(t, key))
	require.NoError(t, err)
	t.Cleanup(n.Stop)

	client := rpcclient.New("http://" + n.RPCAddr())
	created, err := client.CreateBlock("")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.Height)

	tip, err := client.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tip.Height)
	assert.Equal(t, created.Hash, tip.Hash.String())
}

// Package node provides the ledger node controller: it wires storage, the
// branching ledger, the mempool, block assembly and the RPC server, and
// runs the periodic background loops.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Klingon-tech/ledgernode/config"
	"github.com/Klingon-tech/ledgernode/internal/assembler"
	"github.com/Klingon-tech/ledgernode/internal/chain"
	klog "github.com/Klingon-tech/ledgernode/internal/log"
	"github.com/Klingon-tech/ledgernode/internal/mempool"
	"github.com/Klingon-tech/ledgernode/internal/rpc"
	"github.com/Klingon-tech/ledgernode/internal/storage"
	"github.com/Klingon-tech/ledgernode/internal/txhandler"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
	"github.com/rs/zerolog"
)

// archiveNamespace holds the block archive within the storage backend.
const archiveNamespace = "archive"

// expiryInterval is how often the mempool is swept for stale entries.
const expiryInterval = time.Minute

// ErrAssemblyDisabled is returned by CreateBlock when no reward owner is
// configured.
var ErrAssemblyDisabled = errors.New("block assembly is not configured")

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db      storage.DB // nil when the archive is disabled
	handler *txhandler.Handler
	ledger  *chain.Ledger
	pool    *mempool.Pool

	// Assembly
	asm         *assembler.Assembler
	rewardOwner []byte // nil = assembly only with an explicit owner

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, genesis, ledger, mempool, assembler, RPC) but does NOT
// start the background loops. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "ledgerd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	// ── 2. Genesis ──────────────────────────────────────────────────
	genesis, err := genesisBlock(cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("build genesis: %w", err)
	}
	logger.Info().
		Str("genesis", genesis.Hash().Short()).
		Float64("allocation", cfg.Genesis.Allocation).
		Int("cutoff_age", cfg.Ledger.CutOffAge).
		Msg("Starting ledger node")

	// ── 3. Archive storage ──────────────────────────────────────────
	var db storage.DB
	ledgerOpts := []chain.Option{chain.WithCutOffAge(cfg.Ledger.CutOffAge)}
	if cfg.Storage.Archive {
		dir := expandHome(cfg.ArchiveDir())
		db, err = storage.Open(cfg.Storage.Backend, dir)
		if err != nil {
			return nil, fmt.Errorf("open archive (%s) at %s: %w", cfg.Storage.Backend, dir, err)
		}
		archive := chain.NewBlockStore(storage.NewNamespace(db, archiveNamespace))
		ledgerOpts = append(ledgerOpts, chain.WithArchive(archive))

		if hash, height, found, err := archive.GetTip(); err != nil {
			logger.Warn().Err(err).Msg("Failed to read archive tip")
		} else if found {
			count, err := archive.Count()
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to count archived blocks")
			}
			logger.Info().
				Str("hash", hash.Short()).
				Uint64("height", height).
				Int("blocks", count).
				Msg("Existing archive found")
		}
		logger.Info().Str("backend", cfg.Storage.Backend).Str("path", dir).Msg("Archive opened")
	}

	// ── 4. Mempool ──────────────────────────────────────────────────
	pool := mempool.New(cfg.Mempool.MaxSize, mempoolPolicy(cfg.Mempool))
	ledgerOpts = append(ledgerOpts, chain.WithMempool(pool))
	logger.Info().
		Int("max_size", pool.MaxSize()).
		Dur("expiry", cfg.Mempool.Expiry).
		Msg("Mempool ready")

	// ── 5. Ledger ───────────────────────────────────────────────────
	handler := txhandler.New(cfg.Ledger.CoinbaseReward, txhandler.WithWorkers(cfg.Ledger.VerifyWorkers))
	ledger, err := chain.New(genesis, handler, ledgerOpts...)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	// ── 6. Assembler ────────────────────────────────────────────────
	rewardOwner, err := resolveRewardOwner(cfg.Assembler)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	asm := assembler.New(ledger, pool, handler, cfg.Ledger.CoinbaseReward,
		assembler.WithMaxBlockTxs(cfg.Assembler.MaxBlockTxs))

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		handler:     handler,
		ledger:      ledger,
		pool:        pool,
		asm:         asm,
		rewardOwner: rewardOwner,
		ctx:         ctx,
		cancel:      cancel,
	}

	// ── 7. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, ledger, pool, cfg.RPC)
		n.rpcServer.SetAssembler(asm, rewardOwner)
		if cfg.Metrics.Enabled {
			n.rpcServer.EnableMetrics()
		}
		if err := n.rpcServer.Start(); err != nil {
			n.Stop()
			return nil, fmt.Errorf("start rpc: %w", err)
		}
		logger.Info().Str("addr", n.rpcServer.Addr()).Bool("metrics", cfg.Metrics.Enabled).Msg("RPC server started")
	} else {
		if cfg.Metrics.Enabled {
			logger.Warn().Msg("metrics.enabled is true but RPC is disabled; /metrics unavailable")
		}
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// Start launches the background loops: periodic block assembly and
// mempool expiry.
func (n *Node) Start() error {
	if n.cfg.Assembler.Enabled {
		if n.rewardOwner == nil {
			return fmt.Errorf("assembly enabled: %w", ErrAssemblyDisabled)
		}
		n.logger.Info().
			Float64("reward", n.asm.Reward()).
			Dur("interval", n.cfg.Assembler.Interval).
			Msg("Block assembly enabled")

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runAssembler(n.cfg.Assembler.Interval)
		}()
	}

	if n.cfg.Mempool.Expiry > 0 {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runMempoolExpiry(expiryInterval, n.cfg.Mempool.Expiry)
		}()
	}

	tip := n.ledger.Tip()
	n.logger.Info().
		Uint64("height", tip.Height).
		Str("tip", tip.Hash.Short()).
		Bool("assembling", n.cfg.Assembler.Enabled).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	closeDB(n.db)

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Ledger returns the node's branching ledger.
func (n *Node) Ledger() *chain.Ledger {
	return n.ledger
}

// Mempool returns the node's mempool.
func (n *Node) Mempool() *mempool.Pool {
	return n.pool
}

// Height returns the canonical height.
func (n *Node) Height() uint64 {
	return n.ledger.Height()
}

// ProcessBlock hands a block received from outside to the ledger.
func (n *Node) ProcessBlock(blk *block.Block) error {
	if err := n.ledger.AddBlock(blk); err != nil {
		n.logger.Debug().Err(err).Str("reason", chain.RejectReason(err)).Msg("Block rejected")
		return err
	}
	return nil
}

// ProcessTx hands a transaction received from outside to the mempool.
func (n *Node) ProcessTx(t *tx.Transaction) (types.Hash, error) {
	return n.ledger.AddTx(t)
}

// CreateBlock assembles a block on the canonical tip paying the configured
// reward owner.
func (n *Node) CreateBlock() (*block.Block, error) {
	if n.rewardOwner == nil {
		return nil, ErrAssemblyDisabled
	}
	return n.asm.CreateBlock(n.rewardOwner)
}

// ── Background loops ────────────────────────────────────────────────

func (n *Node) runAssembler(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			n.logger.Info().Msg("Block assembly stopped")
			return
		case <-ticker.C:
			if _, err := n.CreateBlock(); err != nil {
				n.logger.Error().Err(err).Msg("Failed to assemble block")
			}
		}
	}
}

func (n *Node) runMempoolExpiry(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if dropped := n.pool.Expire(maxAge); dropped > 0 {
				n.logger.Debug().Int("dropped", dropped).Msg("Expired mempool transactions")
			}
		}
	}
}

func closeDB(db storage.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		klog.Node.Warn().Err(err).Msg("Failed to close archive")
	}
}

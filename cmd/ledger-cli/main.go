// ledger-cli is a command-line client for interacting with a ledgerd node.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/ledgernode/internal/rpcclient"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := "http://127.0.0.1:8645"

	// Scan for --rpc before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "branches":
		cmdBranches(client)
	case "block":
		cmdBlock(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "utxos":
		cmdUTXOs(client, cmdArgs)
	case "mempool":
		cmdMempool(client)
	case "submit-tx":
		cmdSubmitTx(client, cmdArgs)
	case "validate-tx":
		cmdValidateTx(client, cmdArgs)
	case "submit-block":
		cmdSubmitBlock(client, cmdArgs)
	case "create-block":
		cmdCreateBlock(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ledger-cli [--rpc <url>] <command> [args]

Global flags:
  --rpc <url>               RPC endpoint (default: http://127.0.0.1:8645)

Commands:
  status                    Canonical tip and UTXO commitment
  branches                  Retained branches, canonical first
  block <hash|height>       Show a block
  balance <owner>           Canonical balance of an owner (hex or PEM file)
  utxos <owner>             Canonical outputs of an owner
  mempool                   Mempool size and pending transactions
  submit-tx <file.json>     Submit a JSON transaction
  validate-tx <file.json>   Check a JSON transaction against the canonical tip
  submit-block <file.json>  Submit a JSON block
  create-block [owner]      Assemble a block on the canonical tip
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	tip, err := client.Tip()
	if err != nil {
		fatal("chain_getTip: %v", err)
	}
	commit, err := client.Commitment()
	if err != nil {
		fatal("chain_getCommitment: %v", err)
	}

	fmt.Printf("Height:     %d\n", tip.Height)
	fmt.Printf("Tip:        %s\n", tip.Hash)
	fmt.Printf("Branch:     %d\n", tip.Branch)
	fmt.Printf("UTXOs:      %d\n", tip.UTXOCount)
	fmt.Printf("Commitment: %s\n", commit.Commitment)
}

func cmdBranches(client *rpcclient.Client) {
	branches, err := client.Branches()
	if err != nil {
		fatal("chain_getBranches: %v", err)
	}
	for _, b := range branches {
		marker := " "
		if b.Canonical {
			marker = "*"
		}
		fmt.Printf("%s #%-4d height=%-8d blocks=%-3d utxos=%-6d tip=%s\n",
			marker, b.ID, b.Height, b.Blocks, b.UTXOCount, b.TipHash.Short())
	}
}

// ── block ───────────────────────────────────────────────────────────────

func cmdBlock(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli block <hash|height>")
	}

	arg := args[0]
	var (
		blk interface{}
		err error
	)
	// Try as height first (pure number).
	if height, perr := strconv.ParseUint(arg, 10, 64); perr == nil {
		blk, err = client.BlockByHeight(height)
	} else {
		var hash types.Hash
		if hash, err = types.HexToHash(arg); err != nil {
			fatal("invalid block hash: %v", err)
		}
		blk, err = client.Block(hash)
	}
	if err != nil {
		fatal("get block: %v", err)
	}
	printJSON(blk)
}

// ── balances ────────────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli balance <owner>")
	}
	res, err := client.Balance(ownerArg(args[0]))
	if err != nil {
		fatal("utxo_getBalance: %v", err)
	}
	fmt.Printf("Balance: %g\n", res.Balance)
	fmt.Printf("UTXOs:   %d\n", res.UTXOs)
}

func cmdUTXOs(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli utxos <owner>")
	}
	utxos, err := client.UTXOs(ownerArg(args[0]))
	if err != nil {
		fatal("utxo_getByOwner: %v", err)
	}
	for _, u := range utxos {
		fmt.Printf("%s:%d  %g\n", u.TxID, u.Index, u.Value)
	}
}

// ownerArg returns the contents of arg when it names a PEM file, otherwise
// arg itself.
func ownerArg(arg string) string {
	if data, err := os.ReadFile(arg); err == nil {
		return string(data)
	}
	return arg
}

// ── mempool ─────────────────────────────────────────────────────────────

func cmdMempool(client *rpcclient.Client) {
	info, err := client.MempoolInfo()
	if err != nil {
		fatal("mempool_getInfo: %v", err)
	}
	fmt.Printf("Pending: %d / %d\n", info.Count, info.MaxSize)
}

// ── submission ──────────────────────────────────────────────────────────

func cmdSubmitTx(client *rpcclient.Client, args []string) {
	t := readTx(args, "submit-tx")
	hash, err := client.SubmitTx(t)
	if err != nil {
		fatal("tx_submit: %v", err)
	}
	fmt.Printf("Submitted: %s\n", hash)
}

func cmdValidateTx(client *rpcclient.Client, args []string) {
	t := readTx(args, "validate-tx")
	res, err := client.ValidateTx(t)
	if err != nil {
		fatal("tx_validate: %v", err)
	}
	if res.Valid {
		fmt.Println("Valid")
		return
	}
	fmt.Printf("Invalid (%s): %s\n", res.Reason, res.Error)
	os.Exit(1)
}

func cmdSubmitBlock(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: ledger-cli submit-block <file.json>")
	}
	var blk block.Block
	readJSON(args[0], &blk)

	res, err := client.SubmitBlock(&blk)
	if err != nil {
		fatal("block_submit: %v", err)
	}
	fmt.Printf("Accepted:  %s\n", res.BlockHash)
	fmt.Printf("Height:    %d\n", res.Height)
	fmt.Printf("Canonical: %t\n", res.Canonical)
}

func cmdCreateBlock(client *rpcclient.Client, args []string) {
	owner := ""
	if len(args) > 0 {
		owner = ownerArg(args[0])
	}
	res, err := client.CreateBlock(owner)
	if err != nil {
		fatal("mining_createBlock: %v", err)
	}
	fmt.Printf("Created: %s\n", res.Hash)
	fmt.Printf("Height:  %d\n", res.Height)
	fmt.Printf("Txs:     %d\n", len(res.Transactions))
}

func readTx(args []string, cmd string) *tx.Transaction {
	if len(args) < 1 {
		fatal("Usage: ledger-cli %s <file.json>", cmd)
	}
	var t tx.Transaction
	readJSON(args[0], &t)
	return &t
}

func readJSON(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		fatal("decode %s: %v", path, err)
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode: %v", err)
	}
	fmt.Println(string(out))
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

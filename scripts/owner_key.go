// owner_key.go prints the owner encodings (hex and PEM) of a hex-encoded
// private key file, generating the file first with -new.
// Usage: go run scripts/owner_key.go [-new] <keyfile>
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
)

func main() {
	create := flag.Bool("new", false, "generate a new key and write it to <keyfile>")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: owner_key [-new] <keyfile>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	if *create {
		key, err := crypto.GenerateKey()
		if err != nil {
			fatal(err)
		}
		if err := os.WriteFile(path, []byte(hex.EncodeToString(key.Serialize())+"\n"), 0600); err != nil {
			fatal(err)
		}
		key.Zero()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fatal(err)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fatal(err)
	}
	defer key.Zero()

	fmt.Printf("owner=%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Print(string(key.PublicKeyPEM()))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

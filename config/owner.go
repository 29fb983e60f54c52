package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Klingon-tech/ledgernode/pkg/crypto"
)

// ParseOwner decodes an owner key given either as hex of a compressed
// public key or as a PEM "PUBLIC KEY" block. The returned bytes are the
// owner exactly as it appears in transaction outputs.
func ParseOwner(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty owner")
	}

	var owner []byte
	if strings.HasPrefix(s, "-----BEGIN") {
		owner = []byte(s + "\n")
	} else {
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("owner is neither PEM nor hex: %w", err)
		}
		owner = b
	}
	if _, err := crypto.ParsePublicKey(owner); err != nil {
		return nil, err
	}
	return owner, nil
}

package crypto

import (
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PEMBlockType is the PEM block type used to wrap owner public keys.
const PEMBlockType = "PUBLIC KEY"

// ErrBadPublicKey is returned when owner key bytes cannot be parsed.
var ErrBadPublicKey = errors.New("malformed public key")

// Signer signs messages with a private key using Schnorr/secp256k1.
type Signer interface {
	// Sign produces a Schnorr signature over a 32-byte hash.
	Sign(hash []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// Verifier verifies Schnorr/secp256k1 signatures.
type Verifier interface {
	// Verify checks a Schnorr signature against a hash and an owner key.
	Verify(hash, signature, owner []byte) bool
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// PublicKeyPEM returns the public key wrapped in a PEM block.
func (pk *PrivateKey) PublicKeyPEM() []byte {
	return EncodePublicKeyPEM(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// EncodePublicKeyPEM wraps a compressed public key in a PEM block.
func EncodePublicKeyPEM(compressed []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMBlockType, Bytes: compressed})
}

// ParsePublicKey parses owner key bytes. Both a bare 33-byte compressed
// key and a PEM block wrapping one are accepted.
func ParsePublicKey(owner []byte) (*secp256k1.PublicKey, error) {
	raw := owner
	if block, _ := pem.Decode(owner); block != nil {
		if block.Type != PEMBlockType {
			return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrBadPublicKey, block.Type)
		}
		raw = block.Bytes
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	return pub, nil
}

// VerifySignature checks a Schnorr signature against a 32-byte hash
// and an owner key. Returns false on any error.
func VerifySignature(hash, signature, owner []byte) bool {
	pubKey, err := ParsePublicKey(owner)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

// SchnorrVerifier implements the Verifier interface.
type SchnorrVerifier struct{}

// Verify checks a Schnorr signature against a hash and owner key.
func (v SchnorrVerifier) Verify(hash, signature, owner []byte) bool {
	return VerifySignature(hash, signature, owner)
}

package utils

import (
	"crypto/ed25519"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const addressHashSize = 24

// Uint256ToString renders an amount as its decimal string, treating nil as zero.
func Uint256ToString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Uint256FromString parses a decimal amount, falling back to zero on empty or
// malformed input.
func Uint256FromString(s string) *uint256.Int {
	if s == "" {
		return uint256.NewInt(0)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}

// DeriveAddress derives the account address for an ed25519 public key: the
// base58 encoding of a truncated blake2b digest of the key bytes.
func DeriveAddress(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid public key length %d", len(pub))
	}
	h := blake2b.Sum256(pub)
	return base58.Encode(h[len(h)-addressHashSize:]), nil
}

// EncodeKey renders a raw public key for event payloads and logs.
func EncodeKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

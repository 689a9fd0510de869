package wallet

import "crypto/ed25519"

// Ed25519Signer is the default signing collaborator.
type Ed25519Signer struct{}

func (Ed25519Signer) Sign(hash []byte, secret ed25519.PrivateKey) []byte {
	return ed25519.Sign(secret, hash)
}

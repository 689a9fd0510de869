package interfaces

import "crypto/ed25519"

// Signer produces signatures over transaction payload hashes. The default
// implementation is plain ed25519; hardware wallets plug in here.
type Signer interface {
	Sign(hash []byte, secret ed25519.PrivateKey) []byte
}

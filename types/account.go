package types

import (
	"crypto/ed25519"

	"github.com/holiman/uint256"
)

// Keypair is the signing identity for one tracked account.
type Keypair struct {
	DisplayName string             `json:"display_name,omitempty"`
	PublicKey   ed25519.PublicKey  `json:"public_key"`
	SecretKey   ed25519.PrivateKey `json:"secret_key"`
}

// StateSnapshot is a balance/nonce pair at one point in time.
type StateSnapshot struct {
	Balance *uint256.Int `json:"balance"`
	Nonce   uint64       `json:"nonce"`
}

// AccountState holds the authoritative snapshot and the projected snapshot
// (state as it would be once all currently pending transactions apply).
type AccountState struct {
	Current   StateSnapshot `json:"current"`
	Projected StateSnapshot `json:"projected"`
}

// Account is one tracked account: its keypair, derived address and the last
// known state snapshots.
type Account struct {
	Address     string            `json:"address"`
	DisplayName string            `json:"display_name,omitempty"`
	PublicKey   ed25519.PublicKey `json:"public_key"`
	State       AccountState      `json:"state"`
}

// ZeroSnapshot returns an empty snapshot with a non-nil balance so callers
// never have to nil-check before arithmetic or display.
func ZeroSnapshot() StateSnapshot {
	return StateSnapshot{Balance: uint256.NewInt(0)}
}

package interfaces

import (
	"context"

	"meshwallet/types"
)

// TxSubmitResult mirrors the node's txstate answer to a submission.
type TxSubmitResult struct {
	ID     string
	Status types.TxStatus
}

// LedgerClient is the remote ledger query surface the wallet consumes.
type LedgerClient interface {
	// SubmitTransaction sends a signed payload and returns the node's txstate
	SubmitTransaction(ctx context.Context, signed []byte) (*TxSubmitResult, error)

	// AccountState returns the current and projected snapshot for an account
	AccountState(ctx context.Context, address string) (*types.AccountState, error)

	// RewardsQuery returns one page of the reward history for a coinbase,
	// plus the total size of the result set
	RewardsQuery(ctx context.Context, address string, offset uint64) ([]types.Reward, uint64, error)

	// CurrentLayer returns the node's current layer height
	CurrentLayer(ctx context.Context) (uint64, error)

	// GenesisID returns the genesis id of the network the node is on
	GenesisID(ctx context.Context) ([]byte, error)
}

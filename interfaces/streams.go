package interfaces

import "meshwallet/types"

// CancelFunc tears down one live stream. Implementations must be idempotent:
// cancelling an already-inactive stream is a no-op.
type CancelFunc func()

// StreamClient owns the push-style live feeds the wallet subscribes to.
type StreamClient interface {
	// ActivateTxStream streams status updates for the given transaction ids
	ActivateTxStream(txIDs []string, onTx func(*types.TransactionRecord)) CancelFunc

	// ActivateAccountDataStream streams balance/nonce snapshot updates for an
	// account
	ActivateAccountDataStream(address string, onState func(*types.AccountState)) CancelFunc

	// ListenRewardsByCoinbase streams rewards credited to a coinbase address
	ListenRewardsByCoinbase(address string, onReward func(*types.Reward)) CancelFunc
}

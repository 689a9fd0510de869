package interfaces

import (
	"context"

	"meshwallet/types"
)

// MeshClient is the remote mesh query/stream surface the wallet consumes.
type MeshClient interface {
	// MeshTransactionsQuery returns one page of an account's transaction
	// history, plus the total size of the result set
	MeshTransactionsQuery(ctx context.Context, address string, offset uint64) ([]*types.TransactionRecord, uint64, error)

	// WatchTransactionsByAddress streams transactions touching an address as
	// they enter the mesh
	WatchTransactionsByAddress(address string, onTx func(*types.TransactionRecord)) CancelFunc
}

package store

// Declare database key prefix for objects
const (
	PrefixState   = "state:"
	PrefixTxs     = "txs:"
	PrefixRewards = "rewards:"
)

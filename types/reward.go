package types

import "github.com/holiman/uint256"

// Reward is one layer reward credited to a coinbase address. A coinbase
// earns at most one reward per layer, so (coinbase, layer) identifies it.
type Reward struct {
	Layer       uint64       `json:"layer"`
	Total       *uint256.Int `json:"total"`
	LayerReward *uint256.Int `json:"layer_reward"`
	Coinbase    string       `json:"coinbase"`
}

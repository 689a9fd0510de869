package client

import (
	"meshwallet/types"
	"meshwallet/utils"
)

// --- Params/Results mirroring the node's JSON-RPC messages ---

type snapshotMsg struct {
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type accountStateMsg struct {
	Current   snapshotMsg `json:"current"`
	Projected snapshotMsg `json:"projected"`
}

type txMsg struct {
	ID        string  `json:"id"`
	Principal string  `json:"principal"`
	Receiver  string  `json:"receiver,omitempty"`
	Template  string  `json:"template,omitempty"`
	Method    uint8   `json:"method"`
	Status    int32   `json:"status"`
	Layer     *uint64 `json:"layer,omitempty"`
	Nonce     uint64  `json:"nonce"`
	Amount    string  `json:"amount"`
	GasPrice  uint64  `json:"gas_price,omitempty"`
	MaxGas    uint64  `json:"max_gas,omitempty"`
	Timestamp uint64  `json:"timestamp,omitempty"`
}

type rewardMsg struct {
	Layer       uint64 `json:"layer"`
	Total       string `json:"total"`
	LayerReward string `json:"layer_reward"`
	Coinbase    string `json:"coinbase"`
}

type submitParams struct {
	Payload string `json:"payload"` // hex-encoded signed payload
}

type submitResult struct {
	ID     string `json:"id"`
	Status int32  `json:"status"`
	Error  string `json:"error,omitempty"`
}

type accountParams struct {
	Address string `json:"address"`
}

type pageParams struct {
	Address string `json:"address"`
	Offset  uint64 `json:"offset"`
}

type rewardsPageResult struct {
	Rewards      []rewardMsg `json:"rewards"`
	TotalResults uint64      `json:"total_results"`
}

type txsPageResult struct {
	Txs          []txMsg `json:"txs"`
	TotalResults uint64  `json:"total_results"`
}

type currentLayerResult struct {
	Layer uint64 `json:"layer"`
}

type genesisIDResult struct {
	ID string `json:"id"` // hex-encoded
}

type watchTxsParams struct {
	Address string `json:"address"`
}

type txStreamParams struct {
	TxIDs []string `json:"tx_ids"`
}

type watchResult struct {
	WatchID string `json:"watch_id"`
}

type cancelParams struct {
	WatchID string `json:"watch_id"`
}

// notifyMsg is the envelope of every push notification from the node
type notifyMsg struct {
	WatchID string           `json:"watch_id"`
	Tx      *txMsg           `json:"tx,omitempty"`
	State   *accountStateMsg `json:"state,omitempty"`
	Reward  *rewardMsg       `json:"reward,omitempty"`
}

// --- wire <-> domain conversion ---

func fromSnapshotMsg(m snapshotMsg) types.StateSnapshot {
	return types.StateSnapshot{
		Balance: utils.Uint256FromString(m.Balance),
		Nonce:   m.Nonce,
	}
}

func fromAccountStateMsg(m *accountStateMsg) *types.AccountState {
	if m == nil {
		return nil
	}
	return &types.AccountState{
		Current:   fromSnapshotMsg(m.Current),
		Projected: fromSnapshotMsg(m.Projected),
	}
}

func fromTxMsg(m *txMsg) *types.TransactionRecord {
	if m == nil {
		return nil
	}
	tx := &types.TransactionRecord{
		ID:        m.ID,
		Principal: m.Principal,
		Receiver:  m.Receiver,
		Template:  m.Template,
		Method:    m.Method,
		Status:    types.TxStatus(m.Status),
		Nonce:     m.Nonce,
		GasPrice:  m.GasPrice,
		MaxGas:    m.MaxGas,
		Timestamp: m.Timestamp,
	}
	if m.Layer != nil {
		layer := *m.Layer
		tx.Layer = &layer
	}
	if m.Amount != "" {
		tx.Amount = utils.Uint256FromString(m.Amount)
	}
	return tx
}

func fromRewardMsg(m *rewardMsg) types.Reward {
	return types.Reward{
		Layer:       m.Layer,
		Total:       utils.Uint256FromString(m.Total),
		LayerReward: utils.Uint256FromString(m.LayerReward),
		Coinbase:    m.Coinbase,
	}
}

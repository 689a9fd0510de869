package events

import (
	"time"

	"meshwallet/types"
)

// EventType is an enum-like string type for wallet events
type EventType string

const (
	EventAccountUpdated EventType = "account-updated"
	EventTxsUpdated     EventType = "txs-updated"
	EventRewardsUpdated EventType = "rewards-updated"
)

// WalletEvent represents any event pushed across the UI boundary
type WalletEvent interface {
	Type() EventType
	Timestamp() time.Time
	AccountID() string
}

// AccountUpdated is emitted when an account's balance/nonce snapshot changes
type AccountUpdated struct {
	Account   *types.Account `json:"account"`
	Address   string         `json:"account_id"`
	EmittedAt time.Time      `json:"timestamp"`
}

func NewAccountUpdated(account *types.Account) *AccountUpdated {
	return &AccountUpdated{
		Account:   account,
		Address:   account.Address,
		EmittedAt: time.Now(),
	}
}

func (e *AccountUpdated) Type() EventType      { return EventAccountUpdated }
func (e *AccountUpdated) Timestamp() time.Time { return e.EmittedAt }
func (e *AccountUpdated) AccountID() string    { return e.Address }

// TxsUpdated is emitted (debounced) after one or more transaction records of
// an account changed
type TxsUpdated struct {
	Txs       []*types.TransactionRecord `json:"txs"`
	PublicKey string                     `json:"public_key"`
	Address   string                     `json:"account_id"`
	EmittedAt time.Time                  `json:"timestamp"`
}

func NewTxsUpdated(address, publicKey string, txs []*types.TransactionRecord) *TxsUpdated {
	return &TxsUpdated{
		Txs:       txs,
		PublicKey: publicKey,
		Address:   address,
		EmittedAt: time.Now(),
	}
}

func (e *TxsUpdated) Type() EventType      { return EventTxsUpdated }
func (e *TxsUpdated) Timestamp() time.Time { return e.EmittedAt }
func (e *TxsUpdated) AccountID() string    { return e.Address }

// RewardsUpdated is emitted (debounced) after the reward ledger of an account
// changed
type RewardsUpdated struct {
	Rewards   []types.Reward `json:"rewards"`
	PublicKey string         `json:"public_key"`
	Address   string         `json:"account_id"`
	EmittedAt time.Time      `json:"timestamp"`
}

func NewRewardsUpdated(address, publicKey string, rewards []types.Reward) *RewardsUpdated {
	return &RewardsUpdated{
		Rewards:   rewards,
		PublicKey: publicKey,
		Address:   address,
		EmittedAt: time.Now(),
	}
}

func (e *RewardsUpdated) Type() EventType      { return EventRewardsUpdated }
func (e *RewardsUpdated) Timestamp() time.Time { return e.EmittedAt }
func (e *RewardsUpdated) AccountID() string    { return e.Address }

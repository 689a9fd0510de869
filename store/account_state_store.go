package store

import (
	"fmt"
	"sync"

	"meshwallet/db"
	"meshwallet/jsonx"
	"meshwallet/logx"
	"meshwallet/stringutil"
	"meshwallet/types"
)

// AccountStateStore holds the reconciled view of a single account: its
// balance/nonce snapshots, the transaction ledger and the reward ledger.
// Every mutating call persists before returning, so a restart resumes from
// the last committed state. A persistence failure keeps the in-memory update
// and is logged; durable state catches up on the next successful write.
type AccountStateStore struct {
	mu       sync.RWMutex
	address  string
	provider db.DatabaseProvider

	state   types.AccountState
	txs     []*types.TransactionRecord
	txIndex map[string]int
	rewards []types.Reward
	// rewardIndex dedupes rewards by layer; a coinbase earns one per layer
	rewardIndex map[uint64]int
}

// NewAccountStateStore creates the store for one account, loading any state
// previously persisted for that address.
func NewAccountStateStore(provider db.DatabaseProvider, address string) (*AccountStateStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if address == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	s := &AccountStateStore{
		address:     address,
		provider:    provider,
		state:       types.AccountState{Current: types.ZeroSnapshot(), Projected: types.ZeroSnapshot()},
		txIndex:     make(map[string]int),
		rewardIndex: make(map[uint64]int),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", stringutil.ShortenLog(address), err)
	}

	return s, nil
}

func (s *AccountStateStore) load() error {
	if data, err := s.provider.Get(s.stateKey()); err != nil {
		return fmt.Errorf("could not read state: %w", err)
	} else if data != nil {
		if err := jsonx.Unmarshal(data, &s.state); err != nil {
			return fmt.Errorf("failed to unmarshal state: %w", err)
		}
	}

	if data, err := s.provider.Get(s.txsKey()); err != nil {
		return fmt.Errorf("could not read txs: %w", err)
	} else if data != nil {
		if err := jsonx.Unmarshal(data, &s.txs); err != nil {
			return fmt.Errorf("failed to unmarshal txs: %w", err)
		}
		for i, tx := range s.txs {
			s.txIndex[tx.ID] = i
		}
	}

	if data, err := s.provider.Get(s.rewardsKey()); err != nil {
		return fmt.Errorf("could not read rewards: %w", err)
	} else if data != nil {
		if err := jsonx.Unmarshal(data, &s.rewards); err != nil {
			return fmt.Errorf("failed to unmarshal rewards: %w", err)
		}
		for i, r := range s.rewards {
			s.rewardIndex[r.Layer] = i
		}
	}

	if len(s.txs) > 0 || len(s.rewards) > 0 {
		logx.Info("ACCOUNT_STORE", fmt.Sprintf("Loaded account %s: %d txs, %d rewards", stringutil.ShortenLog(s.address), len(s.txs), len(s.rewards)))
	}
	return nil
}

// Address returns the account address this store is scoped to
func (s *AccountStateStore) Address() string {
	return s.address
}

// StoreState replaces the current/projected snapshot and persists it
func (s *AccountStateStore) StoreState(current, projected types.StateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = types.AccountState{Current: current, Projected: projected}

	data, err := jsonx.Marshal(s.state)
	if err != nil {
		logx.Error("ACCOUNT_STORE", fmt.Sprintf("Failed to marshal state for %s: %v", stringutil.ShortenLog(s.address), err))
		return
	}
	if err := s.provider.Put(s.stateKey(), data); err != nil {
		logx.Error("ACCOUNT_STORE", fmt.Sprintf("Failed to persist state for %s: %v", stringutil.ShortenLog(s.address), err))
	}
}

// State returns the last stored snapshot pair
func (s *AccountStateStore) State() types.AccountState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// GetTxByID returns the stored record for a transaction id, or nil
func (s *AccountStateStore) GetTxByID(id string) *types.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.txIndex[id]
	if !ok {
		return nil
	}
	return s.txs[idx]
}

// StoreTransaction inserts or replaces a transaction record and persists the
// ledger. Records keep their insertion position so reads are stable.
func (s *AccountStateStore) StoreTransaction(tx *types.TransactionRecord) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("transaction id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.txIndex[tx.ID]; ok {
		s.txs[idx] = tx
	} else {
		s.txIndex[tx.ID] = len(s.txs)
		s.txs = append(s.txs, tx)
	}

	return s.persistTxs()
}

// StoreReward appends a reward, overwriting a redelivered reward for the same
// layer instead of duplicating it.
func (s *AccountStateStore) StoreReward(reward types.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.rewardIndex[reward.Layer]; ok {
		s.rewards[idx] = reward
	} else {
		s.rewardIndex[reward.Layer] = len(s.rewards)
		s.rewards = append(s.rewards, reward)
	}

	data, err := jsonx.Marshal(s.rewards)
	if err != nil {
		return fmt.Errorf("failed to marshal rewards: %w", err)
	}
	if err := s.provider.Put(s.rewardsKey(), data); err != nil {
		logx.Error("ACCOUNT_STORE", fmt.Sprintf("Failed to persist rewards for %s: %v", stringutil.ShortenLog(s.address), err))
	}
	return nil
}

// Txs returns the transaction ledger in insertion order
func (s *AccountStateStore) Txs() []*types.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.TransactionRecord, len(s.txs))
	copy(out, s.txs)
	return out
}

// TxIDs returns the ids of all stored transactions in insertion order
func (s *AccountStateStore) TxIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.txs))
	for i, tx := range s.txs {
		ids[i] = tx.ID
	}
	return ids
}

// Rewards returns the reward ledger in insertion order
func (s *AccountStateStore) Rewards() []types.Reward {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Reward, len(s.rewards))
	copy(out, s.rewards)
	return out
}

// LastSyncedTxLayer returns the maximum layer observed across stored
// transactions, zero when none carry a layer yet. Used as the resume cursor
// for backfill and subscriptions.
func (s *AccountStateStore) LastSyncedTxLayer() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max uint64
	for _, tx := range s.txs {
		if tx.Layer != nil && *tx.Layer > max {
			max = *tx.Layer
		}
	}
	return max
}

// LastSyncedRewardsLayer returns the maximum layer observed across stored
// rewards, zero when the ledger is empty.
func (s *AccountStateStore) LastSyncedRewardsLayer() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max uint64
	for _, r := range s.rewards {
		if r.Layer > max {
			max = r.Layer
		}
	}
	return max
}

func (s *AccountStateStore) persistTxs() error {
	data, err := jsonx.Marshal(s.txs)
	if err != nil {
		return fmt.Errorf("failed to marshal txs: %w", err)
	}
	if err := s.provider.Put(s.txsKey(), data); err != nil {
		// keep the in-memory update; durable state catches up on the next write
		logx.Error("ACCOUNT_STORE", fmt.Sprintf("Failed to persist txs for %s: %v", stringutil.ShortenLog(s.address), err))
	}
	return nil
}

func (s *AccountStateStore) stateKey() []byte {
	return []byte(PrefixState + s.address)
}

func (s *AccountStateStore) txsKey() []byte {
	return []byte(PrefixTxs + s.address)
}

func (s *AccountStateStore) rewardsKey() []byte {
	return []byte(PrefixRewards + s.address)
}

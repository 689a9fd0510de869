package wallet

import (
	"fmt"
	"sync"

	"meshwallet/interfaces"
	"meshwallet/logx"
	"meshwallet/monitoring"
	"meshwallet/stringutil"
	"meshwallet/types"
)

// subscriptionSet owns the live-stream cancellation handles of one account.
// One handle per stream kind; establishing a kind again cancels its previous
// handle first, so no two live feeds of the same kind can coexist.
type subscriptionSet struct {
	mu          sync.Mutex
	meshTxs     interfaces.CancelFunc
	txStream    interfaces.CancelFunc
	accountData interfaces.CancelFunc
	rewards     interfaces.CancelFunc
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{}
}

func (s *subscriptionSet) setMeshTxs(cancel interfaces.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meshTxs != nil {
		s.meshTxs()
	}
	s.meshTxs = cancel
}

func (s *subscriptionSet) setTxStream(cancel interfaces.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txStream != nil {
		s.txStream()
	}
	s.txStream = cancel
}

func (s *subscriptionSet) setAccountData(cancel interfaces.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountData != nil {
		s.accountData()
	}
	s.accountData = cancel
}

func (s *subscriptionSet) setRewards(cancel interfaces.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rewards != nil {
		s.rewards()
	}
	s.rewards = cancel
}

// cancelAll tears down every live feed. Idempotent: handles are dropped after
// the first cancellation and stream cancels are themselves no-ops when the
// stream is already inactive.
func (s *subscriptionSet) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range []interfaces.CancelFunc{s.meshTxs, s.txStream, s.accountData, s.rewards} {
		if cancel != nil {
			cancel()
		}
	}
	s.meshTxs, s.txStream, s.accountData, s.rewards = nil, nil, nil, nil
}

// establishSubscriptions starts the three live feeds for an account: mesh
// transactions by address, account balance/nonce data and rewards by
// coinbase, plus the status stream for the currently known transaction ids.
func (m *Manager) establishSubscriptions(ta *trackedAccount) {
	addr := ta.account.Address

	ta.subs.setMeshTxs(m.deps.Mesh.WatchTransactionsByAddress(addr, func(tx *types.TransactionRecord) {
		// mesh-origin pushes must carry a layer
		m.applyTx(ta, tx, true)
	}))

	ta.subs.setAccountData(m.deps.Streams.ActivateAccountDataStream(addr, func(state *types.AccountState) {
		m.applyState(ta, state)
	}))

	ta.subs.setRewards(m.deps.Streams.ListenRewardsByCoinbase(addr, func(reward *types.Reward) {
		m.applyReward(ta, *reward)
	}))

	m.activateTxStream(ta)

	logx.Info("WALLET", fmt.Sprintf("Live subscriptions established for %s", stringutil.ShortenLog(addr)))
}

// activateTxStream (re)creates the status stream with the current id set.
func (m *Manager) activateTxStream(ta *trackedAccount) {
	ids := ta.store.TxIDs()
	ta.subs.setTxStream(m.deps.Streams.ActivateTxStream(ids, func(tx *types.TransactionRecord) {
		m.applyTx(ta, tx, false)
	}))
}

// scheduleResubscribe coalesces id-set changes: storing many transactions in
// quick succession re-establishes the status stream once, not once per tx.
func (m *Manager) scheduleResubscribe(ta *trackedAccount) {
	addr := ta.account.Address
	m.resubDebounce.Trigger(addr, func() {
		if m.lookup(addr) != ta {
			return
		}
		m.activateTxStream(ta)
		monitoring.IncreaseResubscribeCount()
		logx.Debug("WALLET", fmt.Sprintf("Tx status stream re-established for %s with %d ids", stringutil.ShortenLog(addr), len(ta.store.TxIDs())))
	})
}

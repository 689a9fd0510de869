// Package wallet orchestrates account tracking: one state store per account,
// historical backfill, live subscriptions and the reconciliation path that
// keeps them convergent.
package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"meshwallet/db"
	"meshwallet/errors"
	"meshwallet/events"
	"meshwallet/exception"
	"meshwallet/interfaces"
	"meshwallet/logx"
	"meshwallet/monitoring"
	"meshwallet/reconcile"
	"meshwallet/store"
	"meshwallet/stringutil"
	"meshwallet/types"
	"meshwallet/utils"
)

// Deps are the external collaborators the manager consumes.
type Deps struct {
	Ledger   interfaces.LedgerClient
	Mesh     interfaces.MeshClient
	Streams  interfaces.StreamClient
	Signer   interfaces.Signer
	Provider db.DatabaseProvider
	Bus      *events.EventBus
}

// Options tunes sync behavior. Zero values get defaults.
type Options struct {
	PageSize       uint64
	QueryRetries   int
	RetryDelay     time.Duration
	DebounceWindow time.Duration
}

const (
	defaultPageSize       = 100
	defaultQueryRetries   = 5
	defaultRetryDelay     = time.Second
	defaultDebounceWindow = 100 * time.Millisecond
)

// trackedAccount couples one account with its store, its subscription handles
// and the lock that serializes reconciliation for it.
type trackedAccount struct {
	// mu serializes read-merge-write sequences so no two reconciliations
	// for the same account interleave mid-merge
	mu      sync.Mutex
	account *types.Account
	keypair types.Keypair
	store   *store.AccountStateStore
	subs    *subscriptionSet

	// ctx is cancelled when the account is removed; in-flight backfill
	// checks it and its results are discarded by the staleness guard
	ctx    context.Context
	cancel context.CancelFunc
}

// Manager owns the set of tracked accounts. It is the only writer of the
// account table; stores are only mutated through its reconciliation path.
type Manager struct {
	deps Deps
	opts Options

	mu       sync.RWMutex
	accounts map[string]*trackedAccount

	notifyDebounce *debouncer
	resubDebounce  *debouncer
}

// NewManager builds a manager. It tracks nothing until accounts are added.
func NewManager(deps Deps, opts Options) *Manager {
	if opts.PageSize == 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.QueryRetries == 0 {
		opts.QueryRetries = defaultQueryRetries
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.DebounceWindow == 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if deps.Signer == nil {
		deps.Signer = Ed25519Signer{}
	}

	return &Manager{
		deps:           deps,
		opts:           opts,
		accounts:       make(map[string]*trackedAccount),
		notifyDebounce: newDebouncer(opts.DebounceWindow),
		resubDebounce:  newDebouncer(opts.DebounceWindow),
	}
}

// SetAccounts atomically replaces the tracked account set: every existing
// subscription is cancelled and every in-memory store discarded before the
// new keypairs are added. A keypair that fails to load is logged and skipped;
// the rest of the set still comes up.
func (m *Manager) SetAccounts(keypairs []types.Keypair) {
	m.mu.Lock()
	for addr, ta := range m.accounts {
		m.teardownLocked(addr, ta)
	}
	m.accounts = make(map[string]*trackedAccount)
	m.mu.Unlock()

	for _, kp := range keypairs {
		if err := m.AddAccount(kp); err != nil {
			logx.Error("WALLET", fmt.Sprintf("Failed to add account: %v", err))
		}
	}

	monitoring.SetTrackedAccounts(m.AccountCount())
}

// AddAccount derives the address for a keypair, loads (or creates) its store,
// pushes the cached state to the UI immediately, then starts historical
// backfill and live subscriptions concurrently. Adding a keypair that is
// already tracked replaces exactly that entry.
func (m *Manager) AddAccount(kp types.Keypair) error {
	if len(kp.PublicKey) != ed25519.PublicKeySize || len(kp.SecretKey) != ed25519.PrivateKeySize {
		return errors.NewError(errors.ErrCodeInvalidKeypair, errors.ErrMsgInvalidKeypair)
	}

	addr, err := utils.DeriveAddress(kp.PublicKey)
	if err != nil {
		return errors.NewError(errors.ErrCodeInvalidKeypair, errors.ErrMsgInvalidKeypair)
	}

	accountStore, err := store.NewAccountStateStore(m.deps.Provider, addr)
	if err != nil {
		logx.Error("WALLET", fmt.Sprintf("Store load failed for %s: %v", stringutil.ShortenLog(addr), err))
		return errors.NewError(errors.ErrCodeStorageFailure, errors.ErrMsgStorageFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ta := &trackedAccount{
		account: &types.Account{
			Address:     addr,
			DisplayName: kp.DisplayName,
			PublicKey:   kp.PublicKey,
			State:       accountStore.State(),
		},
		keypair: kp,
		store:   accountStore,
		subs:    newSubscriptionSet(),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.mu.Lock()
	if prev, ok := m.accounts[addr]; ok {
		// replacing a keypair already in the keychain: tear down only the
		// matching entry
		m.teardownLocked(addr, prev)
	}
	m.accounts[addr] = ta
	m.mu.Unlock()

	// show cached state before any network round trip completes
	m.emitCachedState(ta)

	exception.SafeGo("backfill:"+addr, func() {
		m.runBackfill(ta)
	})
	exception.SafeGo("subscribe:"+addr, func() {
		m.establishSubscriptions(ta)
	})

	monitoring.SetTrackedAccounts(m.AccountCount())
	logx.Info("WALLET", fmt.Sprintf("Tracking account %s", stringutil.ShortenLog(addr)))
	return nil
}

// Accounts returns snapshots of the tracked accounts. Mutating a returned
// account does not touch tracked state.
func (m *Manager) Accounts() []*types.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Account, 0, len(m.accounts))
	for _, ta := range m.accounts {
		ta.mu.Lock()
		snapshot := *ta.account
		ta.mu.Unlock()
		out = append(out, &snapshot)
	}
	return out
}

// AccountCount returns the number of tracked accounts
func (m *Manager) AccountCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.accounts)
}

// Store exposes the state store of a tracked account, or nil
func (m *Manager) Store(address string) *store.AccountStateStore {
	ta := m.lookup(address)
	if ta == nil {
		return nil
	}
	return ta.store
}

// Dispose cancels every subscription and pending timer. The manager is not
// usable afterwards.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for addr, ta := range m.accounts {
		m.teardownLocked(addr, ta)
	}
	m.accounts = make(map[string]*trackedAccount)
}

// teardownLocked cancels everything owned by one tracked account. Caller
// holds m.mu.
func (m *Manager) teardownLocked(addr string, ta *trackedAccount) {
	ta.cancel()
	ta.subs.cancelAll()
	m.notifyDebounce.Cancel(txsKey(addr))
	m.notifyDebounce.Cancel(rewardsKey(addr))
	m.resubDebounce.Cancel(addr)
}

func (m *Manager) lookup(address string) *trackedAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.accounts[address]
}

// tracked reports whether this exact entry still owns the address. Results
// from superseded entries (removed or replaced accounts) are discarded.
func (m *Manager) tracked(ta *trackedAccount) bool {
	return m.lookup(ta.account.Address) == ta
}

// applyTx runs one transaction update through the reconciliation path:
// validate, merge onto the stored record, persist, then schedule the
// debounced UI notification and, for a new id, the stream re-subscription.
func (m *Manager) applyTx(ta *trackedAccount, incoming *types.TransactionRecord, requireLayer bool) {
	if !reconcile.ValidPush(incoming, requireLayer) {
		monitoring.IncreaseDiscardedPushCount()
		logx.Debug("WALLET", "Discarding malformed tx push")
		return
	}
	if !m.tracked(ta) {
		return
	}

	ta.mu.Lock()
	existing := ta.store.GetTxByID(incoming.ID)
	merged := reconcile.Merge(existing, incoming)
	err := ta.store.StoreTransaction(merged)
	ta.mu.Unlock()

	if err != nil {
		logx.Error("WALLET", fmt.Sprintf("Failed to store tx %s: %v", stringutil.ShortenLog(incoming.ID), err))
		return
	}

	monitoring.IncreaseReconcileCount()
	m.scheduleTxsNotification(ta)
	if existing == nil {
		m.scheduleResubscribe(ta)
	}
}

// applyReward merges one reward into the ledger, deduplicated by layer.
func (m *Manager) applyReward(ta *trackedAccount, reward types.Reward) {
	if !m.tracked(ta) {
		return
	}

	ta.mu.Lock()
	err := ta.store.StoreReward(reward)
	ta.mu.Unlock()

	if err != nil {
		logx.Error("WALLET", fmt.Sprintf("Failed to store reward at layer %d: %v", reward.Layer, err))
		return
	}

	monitoring.IncreaseReconcileCount()
	m.scheduleRewardsNotification(ta)
}

// applyState replaces the balance/nonce snapshot. State pushes carry the
// authoritative value, so there is no merge concern; the account-updated
// notification goes out immediately.
func (m *Manager) applyState(ta *trackedAccount, state *types.AccountState) {
	if state == nil || !m.tracked(ta) {
		return
	}

	ta.mu.Lock()
	ta.store.StoreState(state.Current, state.Projected)
	ta.account.State = *state
	ta.mu.Unlock()

	m.notifyAccount(ta)
}

// emitCachedState pushes whatever the store already holds, so the UI has
// something to render before the first network round trip completes.
func (m *Manager) emitCachedState(ta *trackedAccount) {
	m.notifyAccount(ta)
	m.notifyTxs(ta)
	m.notifyRewards(ta)
}

// notifyAccount publishes a value snapshot of the account, taken under the
// account lock. Subscribers never see the live struct applyState mutates.
func (m *Manager) notifyAccount(ta *trackedAccount) {
	ta.mu.Lock()
	snapshot := *ta.account
	ta.mu.Unlock()

	m.deps.Bus.Publish(events.NewAccountUpdated(&snapshot))
	monitoring.IncreaseNotificationCount(string(events.EventAccountUpdated))
}

func (m *Manager) notifyTxs(ta *trackedAccount) {
	addr := ta.account.Address
	m.deps.Bus.Publish(events.NewTxsUpdated(addr, utils.EncodeKey(ta.account.PublicKey), ta.store.Txs()))
	monitoring.IncreaseNotificationCount(string(events.EventTxsUpdated))
}

func (m *Manager) notifyRewards(ta *trackedAccount) {
	addr := ta.account.Address
	m.deps.Bus.Publish(events.NewRewardsUpdated(addr, utils.EncodeKey(ta.account.PublicKey), ta.store.Rewards()))
	monitoring.IncreaseNotificationCount(string(events.EventRewardsUpdated))
}

// scheduleTxsNotification coalesces bursts of tx mutations into one
// txs-updated event per quiet window.
func (m *Manager) scheduleTxsNotification(ta *trackedAccount) {
	addr := ta.account.Address
	m.notifyDebounce.Trigger(txsKey(addr), func() {
		if !m.tracked(ta) {
			return
		}
		m.notifyTxs(ta)
	})
}

func (m *Manager) scheduleRewardsNotification(ta *trackedAccount) {
	addr := ta.account.Address
	m.notifyDebounce.Trigger(rewardsKey(addr), func() {
		if !m.tracked(ta) {
			return
		}
		m.notifyRewards(ta)
	})
}

func txsKey(addr string) string {
	return "txs:" + addr
}

func rewardsKey(addr string) string {
	return "rewards:" + addr
}

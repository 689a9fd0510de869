package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshwallet/db"
	"meshwallet/events"
	"meshwallet/interfaces"
	"meshwallet/types"
	"meshwallet/utils"
)

const testDebounce = 10 * time.Millisecond

// fakeNode implements the ledger, mesh and stream contracts in-process.
type fakeNode struct {
	mu sync.Mutex

	submitResult *interfaces.TxSubmitResult
	submitErr    error
	submissions  [][]byte

	accountState *types.AccountState

	meshTxs    []*types.TransactionRecord
	meshErr    error
	rewards    []types.Reward
	rewardsErr error

	txStreamIDs    [][]string
	txStreamPush   func(*types.TransactionRecord)
	meshPush       func(*types.TransactionRecord)
	statePush      func(*types.AccountState)
	rewardPush     func(*types.Reward)
	cancelledCount int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		accountState: &types.AccountState{
			Current:   types.StateSnapshot{Balance: uint256.NewInt(5000), Nonce: 1},
			Projected: types.StateSnapshot{Balance: uint256.NewInt(4800), Nonce: 2},
		},
	}
}

func (f *fakeNode) SubmitTransaction(_ context.Context, signed []byte) (*interfaces.TxSubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, signed)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitResult, nil
}

func (f *fakeNode) AccountState(context.Context, string) (*types.AccountState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountState, nil
}

func (f *fakeNode) RewardsQuery(context.Context, string, uint64) ([]types.Reward, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rewardsErr != nil {
		return nil, 0, f.rewardsErr
	}
	return f.rewards, uint64(len(f.rewards)), nil
}

func (f *fakeNode) CurrentLayer(context.Context) (uint64, error) { return 100, nil }

func (f *fakeNode) GenesisID(context.Context) ([]byte, error) { return []byte{1, 2, 3, 4}, nil }

func (f *fakeNode) MeshTransactionsQuery(context.Context, string, uint64) ([]*types.TransactionRecord, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meshErr != nil {
		return nil, 0, f.meshErr
	}
	return f.meshTxs, uint64(len(f.meshTxs)), nil
}

func (f *fakeNode) WatchTransactionsByAddress(_ string, onTx func(*types.TransactionRecord)) interfaces.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meshPush = onTx
	return f.cancelFn()
}

func (f *fakeNode) ActivateTxStream(txIDs []string, onTx func(*types.TransactionRecord)) interfaces.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txStreamIDs = append(f.txStreamIDs, txIDs)
	f.txStreamPush = onTx
	return f.cancelFn()
}

func (f *fakeNode) ActivateAccountDataStream(_ string, onState func(*types.AccountState)) interfaces.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statePush = onState
	return f.cancelFn()
}

func (f *fakeNode) ListenRewardsByCoinbase(_ string, onReward func(*types.Reward)) interfaces.CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewardPush = onReward
	return f.cancelFn()
}

// cancelFn counts cancellations; callers already guard idempotency
func (f *fakeNode) cancelFn() interfaces.CancelFunc {
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelledCount++
	}
}

func (f *fakeNode) pushTxStream(tx *types.TransactionRecord) {
	f.mu.Lock()
	fn := f.txStreamPush
	f.mu.Unlock()
	fn(tx)
}

func (f *fakeNode) pushMesh(tx *types.TransactionRecord) {
	f.mu.Lock()
	fn := f.meshPush
	f.mu.Unlock()
	fn(tx)
}

func (f *fakeNode) pushState(state *types.AccountState) {
	f.mu.Lock()
	fn := f.statePush
	f.mu.Unlock()
	fn(state)
}

func (f *fakeNode) pushReward(reward *types.Reward) {
	f.mu.Lock()
	fn := f.rewardPush
	f.mu.Unlock()
	fn(reward)
}

func (f *fakeNode) streamActivations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txStreamIDs)
}

func (f *fakeNode) lastStreamIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.txStreamIDs) == 0 {
		return nil
	}
	return f.txStreamIDs[len(f.txStreamIDs)-1]
}

func newTestKeypair(t *testing.T, name string) types.Keypair {
	t.Helper()
	pub, sec, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return types.Keypair{DisplayName: name, PublicKey: pub, SecretKey: sec}
}

func newTestManager(t *testing.T, node *fakeNode) (*Manager, chan events.WalletEvent) {
	t.Helper()
	bus := events.NewEventBus()
	_, ch := bus.Subscribe()

	m := NewManager(Deps{
		Ledger:   node,
		Mesh:     node,
		Streams:  node,
		Provider: db.NewMemoryProvider(),
		Bus:      bus,
	}, Options{
		PageSize:       100,
		QueryRetries:   2,
		RetryDelay:     time.Millisecond,
		DebounceWindow: testDebounce,
	})
	t.Cleanup(m.Dispose)
	return m, ch
}

func drainEvents(ch chan events.WalletEvent) []events.WalletEvent {
	var out []events.WalletEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func waitForSync(t *testing.T, node *fakeNode) {
	t.Helper()
	require.Eventually(t, func() bool {
		node.mu.Lock()
		defer node.mu.Unlock()
		return node.txStreamPush != nil && node.statePush != nil && node.rewardPush != nil
	}, time.Second, time.Millisecond, "subscriptions never came up")
}

func TestAddAccountEmitsCachedStateImmediately(t *testing.T) {
	node := newFakeNode()
	m, ch := newTestManager(t, node)

	require.NoError(t, m.AddAccount(newTestKeypair(t, "alice")))

	// cached (empty) state reaches the UI without waiting for the network
	seen := map[events.EventType]bool{}
	require.Eventually(t, func() bool {
		for _, ev := range drainEvents(ch) {
			seen[ev.Type()] = true
		}
		return seen[events.EventAccountUpdated] && seen[events.EventTxsUpdated] && seen[events.EventRewardsUpdated]
	}, time.Second, time.Millisecond)
}

func TestAddAccountRejectsMalformedKeypair(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)

	err := m.AddAccount(types.Keypair{PublicKey: []byte{1, 2}, SecretKey: []byte{3}})
	require.Error(t, err)
	assert.Equal(t, 0, m.AccountCount())
}

func TestBackfillPopulatesStore(t *testing.T) {
	node := newFakeNode()
	layer := uint64(42)
	node.meshTxs = []*types.TransactionRecord{
		{ID: "tx1", Status: types.TxStatusSuccess, Layer: &layer},
	}
	node.rewards = []types.Reward{
		{Layer: 40, Total: uint256.NewInt(7), Coinbase: "self"},
	}

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))

	addr, err := utils.DeriveAddress(kp.PublicKey)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := m.Store(addr)
		return s != nil && len(s.Txs()) == 1 && len(s.Rewards()) == 1
	}, time.Second, time.Millisecond)

	s := m.Store(addr)
	assert.Equal(t, uint64(42), s.LastSyncedTxLayer())
	assert.Equal(t, uint64(40), s.LastSyncedRewardsLayer())
	// backfill finishes with the authoritative snapshot
	require.Eventually(t, func() bool {
		return s.State().Current.Nonce == 1
	}, time.Second, time.Millisecond)
}

func TestLivePushConvergesWithBackfill(t *testing.T) {
	node := newFakeNode()
	layer := uint64(42)
	node.meshTxs = []*types.TransactionRecord{
		{ID: "tx1", Status: types.TxStatusProcessed, Layer: &layer},
	}

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	require.Eventually(t, func() bool {
		return m.Store(addr).GetTxByID("tx1") != nil
	}, time.Second, time.Millisecond)

	// live push with terminal status for the same id merges into one record
	node.pushTxStream(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusSuccess})

	require.Eventually(t, func() bool {
		tx := m.Store(addr).GetTxByID("tx1")
		return tx != nil && tx.Status == types.TxStatusSuccess
	}, time.Second, time.Millisecond)

	txs := m.Store(addr).Txs()
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Layer)
	assert.Equal(t, uint64(42), *txs[0].Layer)
}

func TestStatusPushNeverRegresses(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	node.pushTxStream(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusProcessed})
	require.Eventually(t, func() bool {
		return m.Store(addr).GetTxByID("tx1") != nil
	}, time.Second, time.Millisecond)

	// a stale pending push must not regress the stored status
	node.pushTxStream(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusPending})

	time.Sleep(5 * testDebounce)
	assert.Equal(t, types.TxStatusProcessed, m.Store(addr).GetTxByID("tx1").Status)
}

func TestMalformedPushesAreDiscarded(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	// missing id
	node.pushTxStream(&types.TransactionRecord{Status: types.TxStatusSuccess})
	// mesh push missing layer
	node.pushMesh(&types.TransactionRecord{ID: "tx9", Status: types.TxStatusSuccess})

	time.Sleep(5 * testDebounce)
	assert.Empty(t, m.Store(addr).Txs())
}

func TestNewTxTriggersDebouncedResubscribe(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	before := node.streamActivations()

	// a burst of new ids coalesces into one re-subscription
	node.pushTxStream(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusPending})
	node.pushTxStream(&types.TransactionRecord{ID: "tx2", Status: types.TxStatusPending})
	node.pushTxStream(&types.TransactionRecord{ID: "tx3", Status: types.TxStatusPending})

	require.Eventually(t, func() bool {
		return node.streamActivations() == before+1
	}, time.Second, time.Millisecond)

	time.Sleep(5 * testDebounce)
	assert.Equal(t, before+1, node.streamActivations())
	assert.ElementsMatch(t, []string{"tx1", "tx2", "tx3"}, node.lastStreamIDs())
}

func TestSetAccountsCancelsRemovedAccount(t *testing.T) {
	node := newFakeNode()
	m, ch := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	// trigger a mutation, then remove the account before the debounce fires
	layer := uint64(1)
	node.pushMesh(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusPending, Layer: &layer})
	m.SetAccounts(nil)

	assert.Equal(t, 0, m.AccountCount())
	assert.Nil(t, m.Store(addr))

	// drain everything emitted so far, then verify silence
	time.Sleep(2 * testDebounce)
	drainEvents(ch)

	// late pushes into cancelled streams must not resurface the account
	node.pushTxStream(&types.TransactionRecord{ID: "tx2", Status: types.TxStatusPending})
	node.pushState(&types.AccountState{Current: types.ZeroSnapshot(), Projected: types.ZeroSnapshot()})

	time.Sleep(5 * testDebounce)
	for _, ev := range drainEvents(ch) {
		assert.NotEqual(t, addr, ev.AccountID(), "notification for removed account after cancellation")
	}
}

func TestPublishSpendStoresOptimisticRecord(t *testing.T) {
	node := newFakeNode()
	node.submitResult = &interfaces.TxSubmitResult{ID: "feed1", Status: types.TxStatusPending}

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	tx, err := m.PublishSpend(context.Background(), addr, "recipient1", uint256.NewInt(200), 1)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "feed1", tx.ID)
	assert.Equal(t, types.TxStatusPending, tx.Status)
	// nonce comes from the projected snapshot... which is still zero until
	// the first refresh lands, so just check the record is stored
	stored := m.Store(addr).GetTxByID("feed1")
	require.NotNil(t, stored)
	assert.Equal(t, "recipient1", stored.Receiver)
	assert.Equal(t, uint256.NewInt(200), stored.Amount)

	// submission refreshes account data
	require.Eventually(t, func() bool {
		return m.Store(addr).State().Projected.Nonce == 2
	}, time.Second, time.Millisecond)
}

func TestPublishSpendMissingTxID(t *testing.T) {
	node := newFakeNode()
	node.submitResult = &interfaces.TxSubmitResult{ID: ""}

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	before := len(m.Store(addr).Txs())

	tx, err := m.PublishSpend(context.Background(), addr, "recipient1", uint256.NewInt(200), 1)
	require.Error(t, err)
	assert.Nil(t, tx)
	// the store is untouched
	assert.Len(t, m.Store(addr).Txs(), before)
}

func TestPublishSpendRejected(t *testing.T) {
	node := newFakeNode()
	node.submitErr = fmt.Errorf("nonce too low")

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	tx, err := m.PublishSpend(context.Background(), addr, "recipient1", uint256.NewInt(200), 1)
	require.Error(t, err)
	assert.Nil(t, tx)
}

func TestPublishToUntrackedAccount(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)

	tx, err := m.PublishSpend(context.Background(), "nobody", "recipient1", uint256.NewInt(1), 1)
	require.Error(t, err)
	assert.Nil(t, tx)
}

func TestUpdateTxNoteOnExistingTx(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	node.pushTxStream(&types.TransactionRecord{ID: "tx1", Status: types.TxStatusProcessed})
	require.Eventually(t, func() bool {
		return m.Store(addr).GetTxByID("tx1") != nil
	}, time.Second, time.Millisecond)

	require.NoError(t, m.UpdateTxNote(addr, "tx1", "rent"))

	tx := m.Store(addr).GetTxByID("tx1")
	assert.Equal(t, "rent", tx.Note)
	assert.Equal(t, types.TxStatusProcessed, tx.Status)
}

func TestUpdateTxNoteOnUnknownTx(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	require.NoError(t, m.UpdateTxNote(addr, "ghost", "note on nothing"))

	// the note lands on a fresh record holding only the id and the note
	tx := m.Store(addr).GetTxByID("ghost")
	require.NotNil(t, tx)
	assert.Equal(t, "ghost", tx.ID)
	assert.Equal(t, "note on nothing", tx.Note)
	assert.Equal(t, types.TxStatusUnspecified, tx.Status)
	assert.Nil(t, tx.Layer)
	assert.Nil(t, tx.Amount)

	require.Error(t, m.UpdateTxNote("nobody", "tx1", "note"))
}

func TestNotificationsAreCoalesced(t *testing.T) {
	node := newFakeNode()
	m, ch := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	// let the add-time notifications settle first
	require.Eventually(t, func() bool {
		return m.Store(addr) != nil && m.Store(addr).State().Current.Nonce == 1
	}, time.Second, time.Millisecond)
	time.Sleep(3 * testDebounce)
	drainEvents(ch)

	for i := 0; i < 20; i++ {
		node.pushTxStream(&types.TransactionRecord{ID: fmt.Sprintf("tx%d", i), Status: types.TxStatusPending})
	}

	time.Sleep(10 * testDebounce)
	var txsUpdates int
	for _, ev := range drainEvents(ch) {
		if ev.Type() == events.EventTxsUpdated {
			txsUpdates++
		}
	}
	// the burst coalesces; far fewer notifications than mutations
	assert.Greater(t, txsUpdates, 0)
	assert.Less(t, txsUpdates, 20)

	require.Len(t, m.Store(addr).Txs(), 20)
}

func TestReplacingKeypairKeepsSingleEntry(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")

	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)
	cancelsBefore := func() int {
		node.mu.Lock()
		defer node.mu.Unlock()
		return node.cancelledCount
	}()

	// adding the same keypair again replaces exactly the matching entry
	require.NoError(t, m.AddAccount(kp))
	assert.Equal(t, 1, m.AccountCount())

	require.Eventually(t, func() bool {
		node.mu.Lock()
		defer node.mu.Unlock()
		return node.cancelledCount > cancelsBefore
	}, time.Second, time.Millisecond, "previous entry's subscriptions were not cancelled")
}

func TestPublishConcurrentWithStatePushes(t *testing.T) {
	node := newFakeNode()
	node.submitResult = &interfaces.TxSubmitResult{ID: "feed1", Status: types.TxStatusPending}

	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	// hammer the account-data stream while submissions read the projected
	// nonce; run with -race to catch unlocked snapshot access
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(0); i < 50; i++ {
			node.pushState(&types.AccountState{
				Current:   types.StateSnapshot{Balance: uint256.NewInt(i), Nonce: i},
				Projected: types.StateSnapshot{Balance: uint256.NewInt(i), Nonce: i + 1},
			})
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := m.PublishSpend(context.Background(), addr, "recipient1", uint256.NewInt(1), 1)
		require.NoError(t, err)
	}
	<-done
}

func TestAccountEventsCarrySnapshots(t *testing.T) {
	node := newFakeNode()
	m, ch := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)

	node.pushState(&types.AccountState{
		Current:   types.StateSnapshot{Balance: uint256.NewInt(100), Nonce: 5},
		Projected: types.StateSnapshot{Balance: uint256.NewInt(100), Nonce: 6},
	})

	var captured *events.AccountUpdated
	require.Eventually(t, func() bool {
		for _, ev := range drainEvents(ch) {
			if au, ok := ev.(*events.AccountUpdated); ok && au.Account.State.Current.Nonce == 5 {
				captured = au
			}
		}
		return captured != nil
	}, time.Second, time.Millisecond)

	node.pushState(&types.AccountState{
		Current:   types.StateSnapshot{Balance: uint256.NewInt(999), Nonce: 7},
		Projected: types.StateSnapshot{Balance: uint256.NewInt(999), Nonce: 8},
	})
	require.Eventually(t, func() bool {
		return m.Store(addr).State().Current.Nonce == 7
	}, time.Second, time.Millisecond)

	// the delivered event still holds the state it was emitted with
	assert.Equal(t, uint64(5), captured.Account.State.Current.Nonce)
	assert.Equal(t, uint256.NewInt(100), captured.Account.State.Current.Balance)
}

func TestAccountsReturnsCopies(t *testing.T) {
	node := newFakeNode()
	m, _ := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))

	require.Eventually(t, func() bool {
		accounts := m.Accounts()
		return len(accounts) == 1 && accounts[0].State.Current.Nonce == 1
	}, time.Second, time.Millisecond)

	accounts := m.Accounts()
	accounts[0].State.Current.Nonce = 99

	assert.Equal(t, uint64(1), m.Accounts()[0].State.Current.Nonce)
}

func TestRewardPushNotifies(t *testing.T) {
	node := newFakeNode()
	m, ch := newTestManager(t, node)
	kp := newTestKeypair(t, "alice")
	require.NoError(t, m.AddAccount(kp))
	waitForSync(t, node)

	addr, _ := utils.DeriveAddress(kp.PublicKey)
	time.Sleep(3 * testDebounce)
	drainEvents(ch)

	node.pushReward(&types.Reward{Layer: 77, Total: uint256.NewInt(9), Coinbase: addr})

	require.Eventually(t, func() bool {
		for _, ev := range drainEvents(ch) {
			if ev.Type() == events.EventRewardsUpdated && ev.AccountID() == addr {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	rewards := m.Store(addr).Rewards()
	require.Len(t, rewards, 1)
	assert.Equal(t, uint64(77), rewards[0].Layer)
}

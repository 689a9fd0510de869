package wallet

import (
	"context"
	"fmt"

	"meshwallet/fetch"
	"meshwallet/logx"
	"meshwallet/monitoring"
	"meshwallet/stringutil"
	"meshwallet/types"
)

// runBackfill retrieves the historical transactions and rewards of a freshly
// added account, resuming from the last synced cursors. It runs concurrently
// with the live subscriptions; both paths converge through the same
// reconciliation merge, so no ordering between them is needed.
func (m *Manager) runBackfill(ta *trackedAccount) {
	addr := ta.account.Address

	txCursor := ta.store.LastSyncedTxLayer()
	rewardCursor := ta.store.LastSyncedRewardsLayer()

	// a cursor beyond the node's current layer means the local ledger came
	// from a different network or got corrupted; restart from genesis
	if current, err := m.deps.Ledger.CurrentLayer(ta.ctx); err == nil {
		if txCursor > current {
			txCursor = 0
		}
		if rewardCursor > current {
			rewardCursor = 0
		}
	}

	if err := m.backfillTxs(ta, txCursor); err != nil {
		logx.Warn("WALLET", fmt.Sprintf("Tx backfill for %s stopped: %v", stringutil.ShortenLog(addr), err))
	}
	if err := m.backfillRewards(ta, rewardCursor); err != nil {
		logx.Warn("WALLET", fmt.Sprintf("Reward backfill for %s stopped: %v", stringutil.ShortenLog(addr), err))
	}

	// fetch the authoritative snapshot once history is in
	m.refreshAccountData(ta.ctx, ta)
}

func (m *Manager) backfillTxs(ta *trackedAccount, startOffset uint64) error {
	addr := ta.account.Address

	return fetch.All(ta.ctx,
		func(ctx context.Context, offset uint64) ([]*types.TransactionRecord, uint64, error) {
			return m.deps.Mesh.MeshTransactionsQuery(ctx, addr, offset)
		},
		func(txs []*types.TransactionRecord) {
			for _, tx := range txs {
				// historical mesh records carry a layer
				m.applyTx(ta, tx, true)
			}
		},
		fetch.Options{
			Name:        "mesh transactions",
			StartOffset: startOffset,
			PageSize:    m.opts.PageSize,
			MaxRetries:  m.opts.QueryRetries,
			RetryDelay:  m.opts.RetryDelay,
			Kind:        monitoring.QueryMeshTxs,
		})
}

func (m *Manager) backfillRewards(ta *trackedAccount, startOffset uint64) error {
	addr := ta.account.Address

	return fetch.All(ta.ctx,
		func(ctx context.Context, offset uint64) ([]types.Reward, uint64, error) {
			return m.deps.Ledger.RewardsQuery(ctx, addr, offset)
		},
		func(rewards []types.Reward) {
			for _, reward := range rewards {
				m.applyReward(ta, reward)
			}
		},
		fetch.Options{
			Name:        "rewards",
			StartOffset: startOffset,
			PageSize:    m.opts.PageSize,
			MaxRetries:  m.opts.QueryRetries,
			RetryDelay:  m.opts.RetryDelay,
			Kind:        monitoring.QueryRewards,
		})
}

// refreshAccountData re-requests the current/projected snapshot. Used after
// backfill and after every submission, because the node's projected state
// changes immediately on submit but is not guaranteed to be pushed.
func (m *Manager) refreshAccountData(ctx context.Context, ta *trackedAccount) {
	state, err := m.deps.Ledger.AccountState(ctx, ta.account.Address)
	if err != nil {
		logx.Warn("WALLET", fmt.Sprintf("Account data refresh for %s failed: %v", stringutil.ShortenLog(ta.account.Address), err))
		return
	}
	m.applyState(ta, state)
}

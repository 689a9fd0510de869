// Package client talks JSON-RPC to a node over one persistent connection.
// Queries are plain calls; live feeds are server notifications dispatched to
// the watch that subscribed them.
package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"

	"meshwallet/interfaces"
	"meshwallet/logx"
	"meshwallet/types"
)

type Config struct {
	Endpoint    string
	DialTimeout time.Duration
}

// NodeClient implements the ledger, mesh and stream contracts over jrpc2.
type NodeClient struct {
	cfg  Config
	conn net.Conn
	rpc  *jrpc2.Client

	mu      sync.Mutex
	watches map[string]func(*notifyMsg)
}

// NewClient dials the node and starts the notification dispatcher.
func NewClient(cfg Config) (*NodeClient, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	conn, err := net.DialTimeout("tcp", cfg.Endpoint, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node %s: %w", cfg.Endpoint, err)
	}

	c := &NodeClient{
		cfg:     cfg,
		conn:    conn,
		watches: make(map[string]func(*notifyMsg)),
	}

	c.rpc = jrpc2.NewClient(channel.Line(conn, conn), &jrpc2.ClientOptions{
		OnNotify: c.dispatch,
	})

	return c, nil
}

// dispatch routes a server notification to the watch that subscribed it.
func (c *NodeClient) dispatch(req *jrpc2.Request) {
	var msg notifyMsg
	if err := req.UnmarshalParams(&msg); err != nil {
		logx.Warn("CLIENT", fmt.Sprintf("Malformed notification %s: %v", req.Method(), err))
		return
	}

	c.mu.Lock()
	handler, ok := c.watches[msg.WatchID]
	c.mu.Unlock()

	if !ok {
		logx.Debug("CLIENT", fmt.Sprintf("Notification for inactive watch %s (%s)", msg.WatchID, req.Method()))
		return
	}
	handler(&msg)
}

// SubmitTransaction sends a signed payload and returns the node's txstate
func (c *NodeClient) SubmitTransaction(ctx context.Context, signed []byte) (*interfaces.TxSubmitResult, error) {
	var res submitResult
	err := c.rpc.CallResult(ctx, "ledger.submit", submitParams{Payload: hex.EncodeToString(signed)}, &res)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("submit rejected: %s", res.Error)
	}
	return &interfaces.TxSubmitResult{
		ID:     res.ID,
		Status: types.TxStatus(res.Status),
	}, nil
}

// AccountState returns the current and projected snapshot for an account
func (c *NodeClient) AccountState(ctx context.Context, address string) (*types.AccountState, error) {
	var res accountStateMsg
	err := c.rpc.CallResult(ctx, "ledger.account_state", accountParams{Address: address}, &res)
	if err != nil {
		return nil, err
	}
	return fromAccountStateMsg(&res), nil
}

// RewardsQuery returns one page of the reward history for a coinbase
func (c *NodeClient) RewardsQuery(ctx context.Context, address string, offset uint64) ([]types.Reward, uint64, error) {
	var res rewardsPageResult
	err := c.rpc.CallResult(ctx, "ledger.rewards", pageParams{Address: address, Offset: offset}, &res)
	if err != nil {
		return nil, 0, err
	}
	rewards := make([]types.Reward, len(res.Rewards))
	for i := range res.Rewards {
		rewards[i] = fromRewardMsg(&res.Rewards[i])
	}
	return rewards, res.TotalResults, nil
}

// CurrentLayer returns the node's current layer height
func (c *NodeClient) CurrentLayer(ctx context.Context) (uint64, error) {
	var res currentLayerResult
	if err := c.rpc.CallResult(ctx, "ledger.current_layer", nil, &res); err != nil {
		return 0, err
	}
	return res.Layer, nil
}

// GenesisID returns the genesis id of the network the node is on
func (c *NodeClient) GenesisID(ctx context.Context) ([]byte, error) {
	var res genesisIDResult
	if err := c.rpc.CallResult(ctx, "ledger.genesis_id", nil, &res); err != nil {
		return nil, err
	}
	id, err := hex.DecodeString(res.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed genesis id: %w", err)
	}
	return id, nil
}

// MeshTransactionsQuery returns one page of an account's transaction history
func (c *NodeClient) MeshTransactionsQuery(ctx context.Context, address string, offset uint64) ([]*types.TransactionRecord, uint64, error) {
	var res txsPageResult
	err := c.rpc.CallResult(ctx, "mesh.transactions", pageParams{Address: address, Offset: offset}, &res)
	if err != nil {
		return nil, 0, err
	}
	txs := make([]*types.TransactionRecord, len(res.Txs))
	for i := range res.Txs {
		txs[i] = fromTxMsg(&res.Txs[i])
	}
	return txs, res.TotalResults, nil
}

// WatchTransactionsByAddress streams mesh transactions touching an address
func (c *NodeClient) WatchTransactionsByAddress(address string, onTx func(*types.TransactionRecord)) interfaces.CancelFunc {
	return c.subscribe("mesh.watch_txs", watchTxsParams{Address: address}, func(msg *notifyMsg) {
		if tx := fromTxMsg(msg.Tx); tx != nil {
			onTx(tx)
		}
	})
}

// ActivateTxStream streams status updates for the given transaction ids
func (c *NodeClient) ActivateTxStream(txIDs []string, onTx func(*types.TransactionRecord)) interfaces.CancelFunc {
	return c.subscribe("tx.stream", txStreamParams{TxIDs: txIDs}, func(msg *notifyMsg) {
		if tx := fromTxMsg(msg.Tx); tx != nil {
			onTx(tx)
		}
	})
}

// ActivateAccountDataStream streams balance/nonce snapshot updates
func (c *NodeClient) ActivateAccountDataStream(address string, onState func(*types.AccountState)) interfaces.CancelFunc {
	return c.subscribe("account.stream", accountParams{Address: address}, func(msg *notifyMsg) {
		if state := fromAccountStateMsg(msg.State); state != nil {
			onState(state)
		}
	})
}

// ListenRewardsByCoinbase streams rewards credited to a coinbase address
func (c *NodeClient) ListenRewardsByCoinbase(address string, onReward func(*types.Reward)) interfaces.CancelFunc {
	return c.subscribe("rewards.stream", accountParams{Address: address}, func(msg *notifyMsg) {
		if msg.Reward != nil {
			reward := fromRewardMsg(msg.Reward)
			onReward(&reward)
		}
	})
}

// subscribe issues a watch call, registers the dispatcher for its watch id
// and returns an idempotent cancel.
func (c *NodeClient) subscribe(method string, params interface{}, handler func(*notifyMsg)) interfaces.CancelFunc {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()

	var res watchResult
	if err := c.rpc.CallResult(ctx, method, params, &res); err != nil {
		logx.Error("CLIENT", fmt.Sprintf("Failed to establish %s: %v", method, err))
		return func() {}
	}

	c.mu.Lock()
	c.watches[res.WatchID] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watches, res.WatchID)
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
			defer cancel()
			if err := c.rpc.Notify(ctx, "watch.cancel", cancelParams{WatchID: res.WatchID}); err != nil {
				logx.Debug("CLIENT", fmt.Sprintf("Cancel of watch %s failed: %v", res.WatchID, err))
			}
		})
	}
}

// Close closes the RPC client and the underlying connection
func (c *NodeClient) Close() error {
	if c.rpc != nil {
		c.rpc.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshwallet/types"
)

func TestSubscribePublishUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	id, ch := bus.Subscribe()
	assert.Equal(t, 1, bus.GetTotalSubscriptions())
	assert.True(t, bus.HasSubscriber(id))

	account := &types.Account{Address: "addr1", DisplayName: "alice"}
	go bus.Publish(NewAccountUpdated(account))

	select {
	case ev := <-ch:
		assert.Equal(t, EventAccountUpdated, ev.Type())
		assert.Equal(t, "addr1", ev.AccountID())
		assert.WithinDuration(t, time.Now(), ev.Timestamp(), time.Second)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	assert.True(t, bus.Unsubscribe(id))
	assert.Equal(t, 0, bus.GetTotalSubscriptions())
	assert.False(t, bus.HasSubscriber(id))
	assert.False(t, bus.Unsubscribe(id))
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewEventBus()

	_, ch1 := bus.Subscribe()
	_, ch2 := bus.Subscribe()

	bus.Publish(NewTxsUpdated("addr1", "pub1", nil))

	for i, ch := range []chan WalletEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTxsUpdated, ev.Type())
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewEventBus()
	_, ch := bus.Subscribe()

	// push past the channel capacity; the publisher must not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(ch)+10; i++ {
			bus.Publish(NewRewardsUpdated(fmt.Sprintf("addr%d", i), "pub", nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, ch, cap(ch))
}

func TestEventPayloads(t *testing.T) {
	account := &types.Account{Address: "addr1", DisplayName: "alice"}
	accountEv := NewAccountUpdated(account)
	assert.Equal(t, EventAccountUpdated, accountEv.Type())
	assert.Equal(t, "addr1", accountEv.AccountID())

	txs := []*types.TransactionRecord{{ID: "tx1"}}
	txsEv := NewTxsUpdated("addr1", "pub1", txs)
	assert.Equal(t, EventTxsUpdated, txsEv.Type())
	assert.Equal(t, "addr1", txsEv.AccountID())
	require.Len(t, txsEv.Txs, 1)
	assert.Equal(t, "tx1", txsEv.Txs[0].ID)

	rewardsEv := NewRewardsUpdated("addr1", "pub1", []types.Reward{{Layer: 9}})
	assert.Equal(t, EventRewardsUpdated, rewardsEv.Type())
	require.Len(t, rewardsEv.Rewards, 1)
	assert.Equal(t, uint64(9), rewardsEv.Rewards[0].Layer)
}

package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	id          string
	workspaceID int32

	mu       sync.Mutex
	messages [][]byte
	received chan struct{}
}

func newFakeClient(id string, workspaceID int32) *fakeClient {
	return &fakeClient{
		id:          id,
		workspaceID: workspaceID,
		received:    make(chan struct{}, 16),
	}
}

func (c *fakeClient) ID() string         { return c.id }
func (c *fakeClient) WorkspaceID() int32 { return c.workspaceID }
func (c *fakeClient) Close() error       { return nil }

func (c *fakeClient) Send(data []byte) error {
	c.mu.Lock()
	c.messages = append(c.messages, data)
	c.mu.Unlock()
	c.received <- struct{}{}
	return nil
}

func (c *fakeClient) waitForMessage(t *testing.T) []byte {
	t.Helper()
	select {
	case <-c.received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

func (c *fakeClient) messageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newFakeClient("c1", 1)

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount(1))

	// Unregistering twice is a no-op.
	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount(1))
}

func TestHub_BroadcastReachesWorkspaceClients(t *testing.T) {
	hub := NewHub()
	first := newFakeClient("c1", 1)
	second := newFakeClient("c2", 1)
	other := newFakeClient("c3", 2)
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	hub.Broadcast(1, FinancingPaymentRecorded(map[string]interface{}{"paymentId": 7}))

	for _, client := range []*fakeClient{first, second} {
		data := client.waitForMessage(t)
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "financing.payment.recorded", event.Type)
		assert.Equal(t, EntityTypeFinancingPayment, event.Entity)
		assert.False(t, event.Timestamp.IsZero())
	}

	// The other workspace never sees it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, other.messageCount())
}

func TestHub_BroadcastToEmptyWorkspace(t *testing.T) {
	hub := NewHub()
	// Must not panic or block.
	hub.Broadcast(42, FinancingSettled(map[string]interface{}{"financingId": 1}))
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "financing.payment.recorded", FinancingPaymentRecorded(nil).Type)
	assert.Equal(t, "financing.settled", FinancingSettled(nil).Type)
	assert.Equal(t, "account.balance.updated", AccountBalanceUpdated(nil).Type)
}

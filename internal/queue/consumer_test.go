package queue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() OrderConfirmedEvent {
	return OrderConfirmedEvent{
		OrderID:       "ord-1",
		SessionID:     "sess-1",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		SeatIDs:       []string{"a1", "a2"},
		TotalAmount:   12000,
		ConfirmedAt:   "2025-03-01T19:00:00Z",
	}
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, sampleEvent()))
	assert.Equal(t,
		"[2025-03-01T19:00:00Z] Order confirmed | order_id=ord-1 | session=sess-1 | customer=\"Ada Lovelace\" | email=ada@example.com | total=12000 | seats=[a1,a2]\n",
		buf.String())
}

func TestConsumerHandle_AppendsToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orders.log")
	c := NewConsumer("", path, nil)

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), "order_id=ord-1")
}

func TestConsumerHandle_RejectsBadMessages(t *testing.T) {
	c := NewConsumer("", filepath.Join(t.TempDir(), "orders.log"), nil)
	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"seat_ids":["a"]}`)))
}

package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEventEncodesData(t *testing.T) {
	event := New(OrderCreated, map[string]any{"orderId": "o1", "totalPriceCents": 1500})
	require.False(t, event.OccurredAt.IsZero())

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "order.created", decoded["type"])
	require.Equal(t, "o1", decoded["data"].(map[string]any)["orderId"])
}

func TestPaymentRoutingKey(t *testing.T) {
	require.Equal(t, "payment.success", PaymentStatusChanged("success"))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	require.NoError(t, p.Publish(context.Background(), New(OrderCreated, nil)))
}

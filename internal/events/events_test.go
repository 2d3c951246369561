package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ToJSON(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	body, err := Event{
		Type:        ExpenseCreated,
		UserID:      "u1",
		ResourceID:  "e1",
		CategoryID:  "c1",
		Amount:      30,
		PaymentType: "cash",
		OccurredAt:  at,
	}.ToJSON()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "expense.created", got["type"])
	assert.Equal(t, "c1", got["category_id"])
	assert.Equal(t, float64(30), got["amount"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["occurred_at"])
}

func TestEvent_ToJSONOmitsEmpty(t *testing.T) {
	body, err := Event{Type: CategoryDeleted, UserID: "u1", ResourceID: "c1"}.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "category_id")
	assert.NotContains(t, string(body), "amount")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	var p Publisher = r
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Event{Type: IncomeCreated}))
	require.NoError(t, p.Publish(ctx, Event{Type: IncomeDeleted}))

	assert.Equal(t, []Type{IncomeCreated, IncomeDeleted}, r.Types())
	assert.Len(t, r.Events(), 2)
	assert.NoError(t, Nop{}.Publish(ctx, Event{}))
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL not set")
	}

	p, err := NewAMQPPublisher(url, "pocketledger.test")
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), Event{Type: ExpenseCreated, UserID: "u1", OccurredAt: time.Now()})
	assert.NoError(t, err)
}

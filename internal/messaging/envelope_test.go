package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

func testOrder() domain.Order {
	return domain.Order{
		OrderID:     "ord-1",
		Customer:    domain.UserRef{UserID: "user-1"},
		TotalAmount: 42.50,
		State:       domain.StateCreated,
	}
}

func TestBuildNormalizesOrderReference(t *testing.T) {
	b := NewEnvelopeBuilder("test-source")
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	envelope, err := b.Build(NewOrderCreated(OrderCreatedPayload{
		Order:        testOrder(),
		CurrentState: "created",
	}), "trace-1", map[string]string{"tenant": "acme"})
	require.NoError(t, err)

	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "trace-1", envelope.TraceID)
	assert.Equal(t, "order.created", envelope.EventType)
	assert.Equal(t, SchemaVersion, envelope.SchemaVersion)
	assert.Equal(t, "2026-03-01T12:00:00Z", envelope.OccurredAt)
	assert.Equal(t, "test-source", envelope.Source)
	assert.Equal(t, map[string]string{"tenant": "acme"}, envelope.Attributes)

	// The embedded order is replaced by a reference stub and surfaces in
	// updatedObjects as the full snapshot.
	assert.Equal(t, map[string]any{"orderId": "ord-1"}, envelope.Payload["order"])
	require.Len(t, envelope.UpdatedObjects, 1)
	assert.Equal(t, "Order", envelope.UpdatedObjects[0]["object_type"])
	full := envelope.UpdatedObjects[0]["object"].(map[string]any)
	assert.Equal(t, 42.50, full["totalAmount"])
}

func TestBuildUnsupportedKind(t *testing.T) {
	b := NewEnvelopeBuilder("test-source")

	_, err := b.Build(DomainEvent{Kind: EventKind("order.exploded")}, "trace-1", nil)
	require.ErrorIs(t, err, domain.ErrUnsupportedEventKind)
}

func TestBuildBatchMintsFreshEventIDs(t *testing.T) {
	b := NewEnvelopeBuilder("test-source")

	events := []DomainEvent{
		NewOrderCreated(OrderCreatedPayload{Order: testOrder(), CurrentState: "created"}),
		NewPaymentCaptured(PaymentCapturedPayload{Order: testOrder(), Amount: 42.50, CapturedAt: time.Now()}),
	}
	envelopes, err := b.BuildBatch(events, "trace-7", nil)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)

	assert.NotEqual(t, envelopes[0].EventID, envelopes[1].EventID)
	assert.Equal(t, "trace-7", envelopes[0].TraceID)
	assert.Equal(t, "trace-7", envelopes[1].TraceID)
	assert.Equal(t, "payment.captured", envelopes[1].EventType)
}

func TestBuildBatchEmpty(t *testing.T) {
	b := NewEnvelopeBuilder("test-source")

	envelopes, err := b.BuildBatch(nil, "trace-1", nil)
	require.NoError(t, err)
	assert.Nil(t, envelopes)
}

func TestBuildApprovedPayloadShape(t *testing.T) {
	b := NewEnvelopeBuilder("test-source")

	order := testOrder()
	order.State = domain.StateApproved
	order.ApprovedByUserID = "approver-1"
	order.ApprovalNotes = []string{"looks good"}

	envelope, err := b.Build(NewOrderApproved(OrderApprovedPayload{
		Order:            order,
		FromState:        "created",
		ToState:          "approved",
		ApprovedByUserID: "approver-1",
		NoteCount:        1,
	}), "trace-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "approved", envelope.Payload["toState"])
	assert.Equal(t, float64(1), envelope.Payload["noteCount"])
	require.Len(t, envelope.UpdatedObjects, 1)
	full := envelope.UpdatedObjects[0]["object"].(map[string]any)
	assert.Equal(t, "approver-1", full["approvedByUserId"])
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderflow/internal/domain"
	"github.com/nsridhar76/go-orderflow/internal/engine"
	"github.com/nsridhar76/go-orderflow/internal/messaging"
	"github.com/nsridhar76/go-orderflow/internal/store/memory"
)

// capturePublisher records every envelope it is handed.
type capturePublisher struct {
	mu        sync.Mutex
	envelopes []messaging.WireEnvelope
}

func (p *capturePublisher) PublishBatch(_ context.Context, envelopes []messaging.WireEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelopes...)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) PublishBatch(context.Context, []messaging.WireEnvelope) error {
	return errors.New("broker unreachable")
}

func newTestService(pub messaging.Publisher) (*Service, *memory.Store) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := memory.New()
	eng := engine.New(s, logger)
	builder := messaging.NewEnvelopeBuilder("test")
	return New(s, eng, builder, pub, nil, logger), s
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	pub := &capturePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, "trace-1", CreateOrderCommand{
		Customer:    domain.UserRef{UserID: "user-1"},
		TotalAmount: 42.50,
	})
	require.NoError(t, err)
	assert.Equal(t, "created", created.CurrentState)

	approved, err := svc.ApproveOrder(ctx, "trace-2", ApproveOrderCommand{
		OrderID:    created.OrderID,
		ApprovedBy: &domain.UserRef{UserID: "approver-1"},
		Notes:      []string{"checked totals", "cleared fraud review"},
	})
	require.NoError(t, err)
	assert.Equal(t, "created", approved.FromState)
	assert.Equal(t, "approved", approved.ToState)
	assert.Equal(t, "approver-1", approved.ApprovedByUserID)
	assert.Equal(t, 2, approved.NoteCount)

	shipped, err := svc.ShipOrder(ctx, "trace-3", ShipOrderCommand{
		OrderID:        created.OrderID,
		Carrier:        "UPS",
		TrackingNumber: "TRACK-001",
		PackageIDs:     []string{"PKG-1", "PKG-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "approved", shipped.FromState)
	assert.Equal(t, "shipped", shipped.ToState)
	assert.Equal(t, []string{"UPS-TRACK-001-PKG-1", "UPS-TRACK-001-PKG-2"}, shipped.Labels)

	order, version, err := svc.GetOrder(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateShipped, order.State)
	assert.Equal(t, int64(3), version)

	history, err := svc.History(ctx, created.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StateCreated, history[0].FromState)
	assert.Equal(t, domain.StateApproved, history[0].ToState)
	assert.Equal(t, domain.StateApproved, history[1].FromState)
	assert.Equal(t, domain.StateShipped, history[1].ToState)

	// Three envelopes, each carrying a normalized Order reference.
	require.Len(t, pub.envelopes, 3)
	types := []string{}
	for _, envelope := range pub.envelopes {
		types = append(types, envelope.EventType)
		assert.Equal(t, map[string]any{"orderId": created.OrderID}, envelope.Payload["order"])
		require.Len(t, envelope.UpdatedObjects, 1)
		assert.Equal(t, "Order", envelope.UpdatedObjects[0]["object_type"])
	}
	assert.Equal(t, []string{"order.created", "order.approved", "order.shipped"}, types)
}

func TestApproveUsesApprovalContext(t *testing.T) {
	svc, _ := newTestService(&capturePublisher{})
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, "trace-1", CreateOrderCommand{
		Customer:    domain.UserRef{UserID: "user-1"},
		TotalAmount: 10,
	})
	require.NoError(t, err)

	approved, err := svc.ApproveOrder(ctx, "trace-2", ApproveOrderCommand{
		OrderID: created.OrderID,
		Context: &domain.ApprovalContext{
			Approver: domain.UserRef{UserID: "lead-1"},
			Reason:   "manual override",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", approved.ApprovedByUserID)
	assert.Equal(t, "manual override", approved.ApprovalReason)
}

func TestApproveWrongState(t *testing.T) {
	svc, _ := newTestService(&capturePublisher{})
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, "t", CreateOrderCommand{Customer: domain.UserRef{UserID: "u"}})
	require.NoError(t, err)
	_, err = svc.ApproveOrder(ctx, "t", ApproveOrderCommand{OrderID: created.OrderID})
	require.NoError(t, err)

	_, err = svc.ApproveOrder(ctx, "t", ApproveOrderCommand{OrderID: created.OrderID})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestPublishFailureSurfacedAfterCommit(t *testing.T) {
	svc, s := newTestService(failingPublisher{})
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, "trace-1", CreateOrderCommand{
		Customer: domain.UserRef{UserID: "user-1"},
	})
	require.ErrorIs(t, err, domain.ErrPublishFailed)
	// The order was persisted before the failed hand-off; the result still
	// identifies it.
	require.NotEmpty(t, created.OrderID)
	order, _, loadErr := s.Load(ctx, created.OrderID)
	require.NoError(t, loadErr)
	assert.Equal(t, domain.StateCreated, order.State)

	approved, err := svc.ApproveOrder(ctx, "trace-2", ApproveOrderCommand{OrderID: created.OrderID})
	require.ErrorIs(t, err, domain.ErrPublishFailed)
	assert.Equal(t, "approved", approved.ToState)

	order, _, loadErr = s.Load(ctx, created.OrderID)
	require.NoError(t, loadErr)
	assert.Equal(t, domain.StateApproved, order.State, "transition stays committed on publish failure")
}

func TestCapturePayment(t *testing.T) {
	pub := &capturePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, "trace-1", CreateOrderCommand{
		Customer:    domain.UserRef{UserID: "user-1"},
		TotalAmount: 42.50,
	})
	require.NoError(t, err)

	result, err := svc.CapturePayment(ctx, "trace-2", CapturePaymentCommand{
		OrderID: created.OrderID,
		Amount:  42.50,
	})
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, result.OrderID)

	require.Len(t, pub.envelopes, 2)
	assert.Equal(t, "payment.captured", pub.envelopes[1].EventType)
	assert.Equal(t, 42.50, pub.envelopes[1].Payload["amount"])

	// The order state is untouched.
	order, _, err := svc.GetOrder(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, order.State)
}

func TestCapturePaymentMissingOrder(t *testing.T) {
	svc, _ := newTestService(&capturePublisher{})

	_, err := svc.CapturePayment(context.Background(), "t", CapturePaymentCommand{OrderID: "missing"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

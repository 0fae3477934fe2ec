// Package service orchestrates order commands: it drives the transition
// engine, builds wire envelopes for the resulting events, and hands them to
// the publisher before returning.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nsridhar76/go-orderflow/internal/cache"
	"github.com/nsridhar76/go-orderflow/internal/domain"
	"github.com/nsridhar76/go-orderflow/internal/engine"
	"github.com/nsridhar76/go-orderflow/internal/messaging"
	"github.com/nsridhar76/go-orderflow/internal/store"
)

// Service executes order commands. Publishing is awaited before a command
// returns: a command is not done until its events are handed off. When the
// hand-off fails the committed result is still returned alongside a
// PublishError, because the state change cannot be rolled back.
type Service struct {
	store     store.Store
	engine    *engine.Engine
	builder   *messaging.EnvelopeBuilder
	publisher messaging.Publisher
	cache     *cache.OrderCache
	logger    *slog.Logger
	now       func() time.Time
}

// New wires a Service. cache may be nil when Redis is not configured.
func New(s store.Store, e *engine.Engine, b *messaging.EnvelopeBuilder, p messaging.Publisher, c *cache.OrderCache, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		engine:    e,
		builder:   b,
		publisher: p,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder mints an order id, persists the aggregate in the created
// state, and publishes the order.created event.
func (s *Service) CreateOrder(ctx context.Context, traceID string, cmd CreateOrderCommand) (CreateOrderResult, error) {
	order := domain.Order{
		OrderID:         uuid.NewString(),
		Customer:        cmd.Customer,
		TotalAmount:     cmd.TotalAmount,
		DiscountCode:    cmd.DiscountCode,
		Tags:            cmd.Tags,
		ShippingAddress: cmd.ShippingAddress,
		State:           domain.StateCreated,
	}
	if err := s.store.Create(ctx, order); err != nil {
		return CreateOrderResult{}, fmt.Errorf("create order: %w", err)
	}

	result := CreateOrderResult{
		OrderID:      order.OrderID,
		CurrentState: string(order.State),
	}
	err := s.publish(ctx, traceID, messaging.NewOrderCreated(messaging.OrderCreatedPayload{
		Order:        order,
		CurrentState: string(order.State),
	}))
	return result, err
}

// ApproveOrder applies the approve transition and publishes order.approved.
func (s *Service) ApproveOrder(ctx context.Context, traceID string, cmd ApproveOrderCommand) (ApproveOrderResult, error) {
	approvedBy := ""
	if cmd.ApprovedBy != nil {
		approvedBy = cmd.ApprovedBy.UserID
	} else if cmd.Context != nil {
		approvedBy = cmd.Context.Approver.UserID
	}
	reason := ""
	if cmd.Context != nil {
		reason = cmd.Context.Reason
	}

	res, err := s.engine.Apply(ctx, cmd.OrderID, engine.Approve, func(order *domain.Order) {
		order.ApprovedByUserID = approvedBy
		order.ApprovalNotes = cmd.Notes
		order.ApprovalReason = reason
	}, approvedBy)
	if err != nil {
		return ApproveOrderResult{}, err
	}
	s.invalidate(ctx, cmd.OrderID)

	result := ApproveOrderResult{
		OrderID:          res.OrderID,
		FromState:        string(res.FromState),
		ToState:          string(res.ToState),
		ApprovedByUserID: res.Order.ApprovedByUserID,
		NoteCount:        len(res.Order.ApprovalNotes),
		ApprovalReason:   res.Order.ApprovalReason,
	}
	err = s.publish(ctx, traceID, messaging.NewOrderApproved(messaging.OrderApprovedPayload{
		Order:            res.Order,
		FromState:        result.FromState,
		ToState:          result.ToState,
		ApprovedByUserID: result.ApprovedByUserID,
		NoteCount:        result.NoteCount,
		ApprovalReason:   result.ApprovalReason,
	}))
	return result, err
}

// ShipOrder applies the ship transition and publishes order.shipped.
// Package labels are derived as carrier-tracking-package.
func (s *Service) ShipOrder(ctx context.Context, traceID string, cmd ShipOrderCommand) (ShipOrderResult, error) {
	res, err := s.engine.Apply(ctx, cmd.OrderID, engine.Ship, func(order *domain.Order) {
		order.ShippingCarrier = cmd.Carrier
		order.ShippingTrackingNumber = cmd.TrackingNumber
		order.ShipmentPackageIDs = cmd.PackageIDs
	}, "")
	if err != nil {
		return ShipOrderResult{}, err
	}
	s.invalidate(ctx, cmd.OrderID)

	labels := make([]string, 0, len(cmd.PackageIDs))
	for _, pkg := range cmd.PackageIDs {
		labels = append(labels, fmt.Sprintf("%s-%s-%s", cmd.Carrier, cmd.TrackingNumber, pkg))
	}
	result := ShipOrderResult{
		OrderID:        res.OrderID,
		FromState:      string(res.FromState),
		ToState:        string(res.ToState),
		Carrier:        cmd.Carrier,
		TrackingNumber: cmd.TrackingNumber,
		PackageIDs:     cmd.PackageIDs,
		Labels:         labels,
	}
	err = s.publish(ctx, traceID, messaging.NewOrderShipped(messaging.OrderShippedPayload{
		Order:          res.Order,
		FromState:      result.FromState,
		ToState:        result.ToState,
		Carrier:        result.Carrier,
		TrackingNumber: result.TrackingNumber,
		PackageIDs:     result.PackageIDs,
		Labels:         labels,
	}))
	return result, err
}

// CapturePayment records a payment capture against an existing order and
// publishes payment.captured. It is not a lifecycle transition; the order
// may be in any state.
func (s *Service) CapturePayment(ctx context.Context, traceID string, cmd CapturePaymentCommand) (CapturePaymentResult, error) {
	order, _, err := s.store.Load(ctx, cmd.OrderID)
	if err != nil {
		return CapturePaymentResult{}, err
	}
	capturedAt := s.now().UTC()
	result := CapturePaymentResult{
		OrderID:    order.OrderID,
		Amount:     cmd.Amount,
		CapturedAt: capturedAt,
	}
	err = s.publish(ctx, traceID, messaging.NewPaymentCaptured(messaging.PaymentCapturedPayload{
		Order:      order,
		Amount:     cmd.Amount,
		CapturedAt: capturedAt,
	}))
	return result, err
}

// GetOrder returns the aggregate and its version, reading through the
// cache when one is configured.
func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, int64, error) {
	if s.cache != nil {
		if order, version, ok := s.cache.Get(ctx, orderID); ok {
			return order, version, nil
		}
	}
	order, version, err := s.store.Load(ctx, orderID)
	if err != nil {
		return domain.Order{}, 0, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, order, version)
	}
	return order, version, nil
}

// History returns the order's transition records in append order.
func (s *Service) History(ctx context.Context, orderID string) ([]domain.TransitionRecord, error) {
	return s.store.History(ctx, orderID)
}

// publish builds one envelope per event, all sharing traceID, and blocks
// until the batch is handed to the transport. An envelope-build failure is
// returned as-is (programming error); a transport failure is wrapped as a
// PublishError.
func (s *Service) publish(ctx context.Context, traceID string, events ...messaging.DomainEvent) error {
	envelopes, err := s.builder.BuildBatch(events, traceID, nil)
	if err != nil {
		return err
	}
	if err := s.publisher.PublishBatch(ctx, envelopes); err != nil {
		s.logger.Error("event batch hand-off failed",
			"trace_id", traceID,
			"count", len(envelopes),
			"error", err,
		)
		return &domain.PublishError{TraceID: traceID, Err: err}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, orderID); err != nil {
		s.logger.Warn("order cache invalidation failed", "order_id", orderID, "error", err)
	}
}

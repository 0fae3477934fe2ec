// Package messaging defines the domain events emitted by order transitions
// and the wire envelope they are published in.
package messaging

import (
	"time"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

// EventKind discriminates the closed set of domain event variants. The
// envelope builder matches on it exhaustively; a kind without an envelope
// mapping is a programming error surfaced as ErrUnsupportedEventKind.
type EventKind string

const (
	KindOrderCreated    EventKind = "order.created"
	KindOrderApproved   EventKind = "order.approved"
	KindOrderShipped    EventKind = "order.shipped"
	KindPaymentCaptured EventKind = "payment.captured"
)

// DomainEvent is a tagged union over the known event kinds. Payload holds
// the kind-specific payload struct; the builder serializes it to the generic
// map form before normalization.
type DomainEvent struct {
	Kind    EventKind
	Payload any
}

// OrderCreatedPayload is emitted after a new order is persisted.
type OrderCreatedPayload struct {
	Order        domain.Order `json:"order"`
	CurrentState string       `json:"currentState"`
}

// OrderApprovedPayload is emitted after the approve transition commits.
type OrderApprovedPayload struct {
	Order            domain.Order `json:"order"`
	FromState        string       `json:"fromState"`
	ToState          string       `json:"toState"`
	ApprovedByUserID string       `json:"approvedByUserId,omitempty"`
	NoteCount        int          `json:"noteCount"`
	ApprovalReason   string       `json:"approvalReason,omitempty"`
}

// OrderShippedPayload is emitted after the ship transition commits.
type OrderShippedPayload struct {
	Order          domain.Order `json:"order"`
	FromState      string       `json:"fromState"`
	ToState        string       `json:"toState"`
	Carrier        string       `json:"carrier"`
	TrackingNumber string       `json:"trackingNumber"`
	PackageIDs     []string     `json:"packageIds"`
	Labels         []string     `json:"labels,omitempty"`
}

// PaymentCapturedPayload is emitted when a payment capture is recorded
// against an order. Capturing a payment is not a lifecycle transition.
type PaymentCapturedPayload struct {
	Order      domain.Order `json:"order"`
	Amount     float64      `json:"amount"`
	CapturedAt time.Time    `json:"capturedAt"`
}

func NewOrderCreated(p OrderCreatedPayload) DomainEvent {
	return DomainEvent{Kind: KindOrderCreated, Payload: p}
}

func NewOrderApproved(p OrderApprovedPayload) DomainEvent {
	return DomainEvent{Kind: KindOrderApproved, Payload: p}
}

func NewOrderShipped(p OrderShippedPayload) DomainEvent {
	return DomainEvent{Kind: KindOrderShipped, Payload: p}
}

func NewPaymentCaptured(p PaymentCapturedPayload) DomainEvent {
	return DomainEvent{Kind: KindPaymentCaptured, Payload: p}
}

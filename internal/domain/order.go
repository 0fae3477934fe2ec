// Package domain holds the order aggregate, its lifecycle states, and the
// value types shared across the service.
package domain

import "time"

// OrderState is the lifecycle state of an order. States move strictly
// forward: created -> approved -> shipped. Shipped is terminal.
type OrderState string

const (
	StateCreated  OrderState = "created"
	StateApproved OrderState = "approved"
	StateShipped  OrderState = "shipped"
)

// Transition kind identifiers recorded in the state history.
const (
	TransitionApprove = "order.approve"
	TransitionShip    = "order.ship"
)

// UserRef is a reference-shaped pointer to a user.
type UserRef struct {
	UserID string `json:"userId"`
}

// Address is the optional fulfillment destination for an order.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// ApprovalContext carries supplemental review metadata on an approve command.
type ApprovalContext struct {
	Approver UserRef   `json:"approver"`
	Watchers []UserRef `json:"watchers,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Order is the customer order aggregate. It is owned by the store; the
// transition engine works on a transient copy for the duration of a single
// transition. The version field backs the store's optimistic-concurrency
// check and is advanced by the store on every successful save.
type Order struct {
	OrderID         string     `json:"orderId"`
	Customer        UserRef    `json:"customer"`
	TotalAmount     float64    `json:"totalAmount"`
	DiscountCode    string     `json:"discountCode,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	ShippingAddress *Address   `json:"shippingAddress,omitempty"`
	State           OrderState `json:"currentState"`

	// Set by the approve transition.
	ApprovedByUserID string   `json:"approvedByUserId,omitempty"`
	ApprovalNotes    []string `json:"approvalNotes,omitempty"`
	ApprovalReason   string   `json:"approvalReason,omitempty"`

	// Set by the ship transition.
	ShippingCarrier        string   `json:"shippingCarrier,omitempty"`
	ShippingTrackingNumber string   `json:"shippingTrackingNumber,omitempty"`
	ShipmentPackageIDs     []string `json:"shipmentPackageIds,omitempty"`
}

// TransitionRecord is one row of the append-only state history. Records are
// never mutated or deleted after creation.
type TransitionRecord struct {
	OrderID    string     `json:"orderId"`
	Transition string     `json:"transition"`
	FromState  OrderState `json:"fromState"`
	ToState    OrderState `json:"toState"`
	OccurredAt time.Time  `json:"occurredAt"`
	Actor      string     `json:"actor,omitempty"`
}

// TransitionResult is the synchronous outcome of a successful transition.
// Order is the post-mutation aggregate snapshot, from which callers derive
// transition-specific enrichments.
type TransitionResult struct {
	OrderID   string
	FromState OrderState
	ToState   OrderState
	Order     Order
}

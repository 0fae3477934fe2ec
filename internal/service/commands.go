package service

import (
	"time"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

// CreateOrderCommand opens a new order in the created state.
type CreateOrderCommand struct {
	Customer        domain.UserRef  `json:"customer"`
	TotalAmount     float64         `json:"totalAmount"`
	DiscountCode    string          `json:"discountCode,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	ShippingAddress *domain.Address `json:"shippingAddress,omitempty"`
}

type CreateOrderResult struct {
	OrderID      string `json:"orderId"`
	CurrentState string `json:"currentState"`
}

// ApproveOrderCommand requests the approve transition.
type ApproveOrderCommand struct {
	OrderID    string                  `json:"-"`
	ApprovedBy *domain.UserRef         `json:"approvedBy,omitempty"`
	Notes      []string                `json:"notes,omitempty"`
	Context    *domain.ApprovalContext `json:"context,omitempty"`
}

type ApproveOrderResult struct {
	OrderID          string `json:"orderId"`
	FromState        string `json:"fromState"`
	ToState          string `json:"toState"`
	ApprovedByUserID string `json:"approvedByUserId,omitempty"`
	NoteCount        int    `json:"noteCount"`
	ApprovalReason   string `json:"approvalReason,omitempty"`
}

// ShipOrderCommand requests the ship transition.
type ShipOrderCommand struct {
	OrderID        string   `json:"-"`
	Carrier        string   `json:"carrier"`
	TrackingNumber string   `json:"trackingNumber"`
	PackageIDs     []string `json:"packageIds"`
}

type ShipOrderResult struct {
	OrderID        string   `json:"orderId"`
	FromState      string   `json:"fromState"`
	ToState        string   `json:"toState"`
	Carrier        string   `json:"carrier"`
	TrackingNumber string   `json:"trackingNumber"`
	PackageIDs     []string `json:"packageIds"`
	Labels         []string `json:"labels,omitempty"`
}

// CapturePaymentCommand records a payment capture against an order.
type CapturePaymentCommand struct {
	OrderID string  `json:"-"`
	Amount  float64 `json:"amount"`
}

type CapturePaymentResult struct {
	OrderID    string    `json:"orderId"`
	Amount     float64   `json:"amount"`
	CapturedAt time.Time `json:"capturedAt"`
}

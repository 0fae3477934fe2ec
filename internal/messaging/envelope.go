package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

// SchemaVersion is the wire schema version stamped on every envelope.
const SchemaVersion = "1.0.0"

// WireEnvelope is the serialized form handed to the event transport, one
// JSON object per event.
type WireEnvelope struct {
	EventID        string            `json:"eventId"`
	TraceID        string            `json:"traceId"`
	EventType      string            `json:"eventType"`
	SchemaVersion  string            `json:"schemaVersion"`
	OccurredAt     string            `json:"occurredAt"`
	Source         string            `json:"source"`
	Payload        map[string]any    `json:"payload"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	UpdatedObjects []map[string]any  `json:"updatedObjects,omitempty"`
}

// Publisher hands a batch of envelopes to the event transport. Delivery is
// at least once; ordering across batch members is not guaranteed.
type Publisher interface {
	PublishBatch(ctx context.Context, envelopes []WireEnvelope) error
}

// orderBindings extracts the full order embedded in every known payload
// into an updatedObjects entry, leaving a reference stub behind.
var orderBindings = []RefBinding{
	{ObjectType: "Order", Path: []string{"order"}, PrimaryKeys: []string{"orderId"}},
}

// EnvelopeBuilder assembles wire envelopes from domain events.
type EnvelopeBuilder struct {
	source string
	now    func() time.Time
}

// NewEnvelopeBuilder returns a builder stamping envelopes with the given
// source tag.
func NewEnvelopeBuilder(source string) *EnvelopeBuilder {
	return &EnvelopeBuilder{source: source, now: time.Now}
}

// Build maps one domain event to its wire envelope: resolves the event-type
// name and ref bindings for the kind, serializes the typed payload into
// generic map form, normalizes embedded references, and mints a fresh event
// id. Returns ErrUnsupportedEventKind for a kind with no mapping.
func (b *EnvelopeBuilder) Build(event DomainEvent, traceID string, attributes map[string]string) (WireEnvelope, error) {
	var bindings []RefBinding
	switch event.Kind {
	case KindOrderCreated, KindOrderApproved, KindOrderShipped, KindPaymentCaptured:
		bindings = orderBindings
	default:
		return WireEnvelope{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedEventKind, event.Kind)
	}

	payload, err := toPayloadMap(event.Payload)
	if err != nil {
		return WireEnvelope{}, fmt.Errorf("serialize %s payload: %w", event.Kind, err)
	}
	updated := NormalizeRefs(payload, bindings)

	return WireEnvelope{
		EventID:        uuid.NewString(),
		TraceID:        traceID,
		EventType:      string(event.Kind),
		SchemaVersion:  SchemaVersion,
		OccurredAt:     b.now().UTC().Format(time.RFC3339Nano),
		Source:         b.source,
		Payload:        payload,
		Attributes:     attributes,
		UpdatedObjects: updated,
	}, nil
}

// BuildBatch builds one envelope per event. Each envelope gets its own
// event id; all share the caller's trace id.
func (b *EnvelopeBuilder) BuildBatch(events []DomainEvent, traceID string, attributes map[string]string) ([]WireEnvelope, error) {
	if len(events) == 0 {
		return nil, nil
	}
	envelopes := make([]WireEnvelope, 0, len(events))
	for _, event := range events {
		envelope, err := b.Build(event, traceID, attributes)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes, nil
}

// toPayloadMap converts a typed payload struct into the generic nested
// map/list/scalar form the normalizer walks.
func toPayloadMap(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

package noop

import (
	"context"

	"github.com/nsridhar76/go-orderflow/internal/messaging"
)

// Publisher is a no-op Publisher used when Kafka is not configured.
type Publisher struct{}

func (Publisher) PublishBatch(_ context.Context, _ []messaging.WireEnvelope) error { return nil }

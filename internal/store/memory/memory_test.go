package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

func TestSaveRejectsStaleVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := domain.Order{OrderID: "ord-1", State: domain.StateCreated}
	require.NoError(t, s.Create(ctx, order))

	record := domain.TransitionRecord{
		OrderID:    "ord-1",
		Transition: domain.TransitionApprove,
		FromState:  domain.StateCreated,
		ToState:    domain.StateApproved,
		OccurredAt: time.Now(),
	}
	order.State = domain.StateApproved
	v, err := s.Save(ctx, order, 1, record)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// Replay against the version we already consumed.
	_, err = s.Save(ctx, order, 1, record)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	history, err := s.History(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "rejected save must not append history")
}

func TestLoadReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, domain.Order{
		OrderID: "ord-1",
		State:   domain.StateCreated,
		Tags:    []string{"gift"},
	}))

	loaded, _, err := s.Load(ctx, "ord-1")
	require.NoError(t, err)
	loaded.Tags[0] = "mutated"
	loaded.State = domain.StateShipped

	again, _, err := s.Load(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"gift"}, again.Tags)
	assert.Equal(t, domain.StateCreated, again.State)
}

func TestLoadMissing(t *testing.T) {
	s := New()
	_, _, err := s.Load(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, domain.Order{OrderID: "ord-1"}))
	require.Error(t, s.Create(ctx, domain.Order{OrderID: "ord-1"}))
}

// Package engine enforces the order lifecycle state machine.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsridhar76/go-orderflow/internal/domain"
	"github.com/nsridhar76/go-orderflow/internal/store"
)

// Transition describes one edge of the state machine.
type Transition struct {
	Kind string
	From domain.OrderState
	To   domain.OrderState
}

// The two defined lifecycle edges. Nothing transitions out of shipped.
var (
	Approve = Transition{Kind: domain.TransitionApprove, From: domain.StateCreated, To: domain.StateApproved}
	Ship    = Transition{Kind: domain.TransitionShip, From: domain.StateApproved, To: domain.StateShipped}
)

// Mutator updates transition-specific fields on the aggregate before it is
// persisted. It must not touch State; the engine owns the state change.
type Mutator func(order *domain.Order)

// Engine applies guarded, validated, history-recorded transitions. It holds
// no mutable state of its own; concurrent transitions on the same order are
// serialized by the store's versioned save.
type Engine struct {
	store      store.Store
	validators map[string]Validator
	logger     *slog.Logger
	now        func() time.Time
}

func New(s store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:      s,
		validators: make(map[string]Validator),
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterValidator binds a validator to a transition kind, replacing any
// previous binding. Absence of a validator means the kind always passes.
func (e *Engine) RegisterValidator(kind string, v Validator) {
	e.validators[kind] = v
}

// Apply runs one transition end to end: load, state guard, validator,
// mutate, versioned save plus history append. The save and the history
// record commit in the same unit of work. On a concurrency conflict the
// caller may re-read and retry; the engine never retries on its own.
func (e *Engine) Apply(ctx context.Context, orderID string, tr Transition, mutate Mutator, actor string) (domain.TransitionResult, error) {
	order, version, err := e.store.Load(ctx, orderID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if order.State != tr.From {
		return domain.TransitionResult{}, &domain.StateTransitionError{
			OrderID:    orderID,
			Transition: tr.Kind,
			Expected:   tr.From,
			Actual:     order.State,
		}
	}
	if v, ok := e.validators[tr.Kind]; ok {
		if result := v(order); !result.Passed {
			return domain.TransitionResult{}, &domain.ValidationError{Transition: tr.Kind, Reason: result.Reason}
		}
	}

	if mutate != nil {
		mutate(&order)
	}
	order.State = tr.To

	record := domain.TransitionRecord{
		OrderID:    orderID,
		Transition: tr.Kind,
		FromState:  tr.From,
		ToState:    tr.To,
		OccurredAt: e.now().UTC(),
		Actor:      actor,
	}
	newVersion, err := e.store.Save(ctx, order, version, record)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("apply %s: %w", tr.Kind, err)
	}

	e.logger.Info("transition applied",
		"order_id", orderID,
		"transition", tr.Kind,
		"from", tr.From,
		"to", tr.To,
		"version", newVersion,
	)
	return domain.TransitionResult{
		OrderID:   orderID,
		FromState: tr.From,
		ToState:   tr.To,
		Order:     order,
	}, nil
}

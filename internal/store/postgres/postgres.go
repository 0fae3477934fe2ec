// Package postgres implements the order Store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id TEXT PRIMARY KEY,
    data     JSONB NOT NULL,
    version  BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_state_history (
    id          BIGSERIAL PRIMARY KEY,
    order_id    TEXT NOT NULL REFERENCES orders (order_id),
    transition  TEXT NOT NULL,
    from_state  TEXT NOT NULL,
    to_state    TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    actor       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_order_state_history_order
    ON order_state_history (order_id, id);
`

// Store persists aggregates as JSONB rows guarded by a version column. The
// versioned UPDATE plus the history INSERT run in one transaction, so a
// lost-update race leaves neither row behind.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the order tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate order schema: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, order domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.OrderID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (order_id, data, version) VALUES ($1, $2, 1)`,
		order.OrderID, data)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, orderID string) (domain.Order, int64, error) {
	var (
		data    []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM orders WHERE order_id = $1`, orderID).
		Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, 0, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, 0, fmt.Errorf("load order %s: %w", orderID, err)
	}
	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return domain.Order{}, 0, fmt.Errorf("unmarshal order %s: %w", orderID, err)
	}
	return order, version, nil
}

func (s *Store) Save(ctx context.Context, order domain.Order, expectedVersion int64, record domain.TransitionRecord) (int64, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return 0, fmt.Errorf("marshal order %s: %w", order.OrderID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var newVersion int64
	err = tx.QueryRow(ctx,
		`UPDATE orders SET data = $2, version = version + 1
		 WHERE order_id = $1 AND version = $3
		 RETURNING version`,
		order.OrderID, data, expectedVersion).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or another writer advanced the version.
		var current int64
		probe := s.pool.QueryRow(ctx,
			`SELECT version FROM orders WHERE order_id = $1`, order.OrderID).Scan(&current)
		if errors.Is(probe, pgx.ErrNoRows) {
			return 0, fmt.Errorf("order %s: %w", order.OrderID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("order %s at version %d, expected %d: %w",
			order.OrderID, current, expectedVersion, domain.ErrConcurrencyConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("update order %s: %w", order.OrderID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_state_history (order_id, transition, from_state, to_state, occurred_at, actor)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.OrderID, record.Transition, record.FromState, record.ToState,
		record.OccurredAt, record.Actor)
	if err != nil {
		return 0, fmt.Errorf("append history for order %s: %w", order.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit save tx: %w", err)
	}
	return newVersion, nil
}

func (s *Store) History(ctx context.Context, orderID string) ([]domain.TransitionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT order_id, transition, from_state, to_state, occurred_at, actor
		 FROM order_state_history WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query history for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var records []domain.TransitionRecord
	for rows.Next() {
		var r domain.TransitionRecord
		if err := rows.Scan(&r.OrderID, &r.Transition, &r.FromState, &r.ToState, &r.OccurredAt, &r.Actor); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

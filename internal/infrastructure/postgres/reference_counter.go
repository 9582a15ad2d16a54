package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.ReferenceCounter = (*ReferenceCounter)(nil)

// ReferenceCounter contador por prefijo en la tabla reference_counters.
// El upsert es atómico; fuera de transacción cada llamada consume un valor aunque el movimiento falle.
type ReferenceCounter struct {
	q Querier
}

func NewReferenceCounter(q Querier) *ReferenceCounter {
	return &ReferenceCounter{q: q}
}

// Next incrementa y devuelve el siguiente valor del prefijo.
func (c *ReferenceCounter) Next(ctx context.Context, prefix string) (int64, error) {
	query := `
		INSERT INTO reference_counters (prefix, value) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET value = reference_counters.value + 1
		RETURNING value`
	var v int64
	if err := c.q.QueryRow(ctx, query, prefix).Scan(&v); err != nil {
		return 0, fmt.Errorf("next reference %s: %w", prefix, err)
	}
	return v, nil
}

package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// MovementRepository puerto del libro de movimientos (append-mostly).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetByIdempotencyKey devuelve nil, nil si no hay movimiento con esa llave.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error)
	ListByReference(ctx context.Context, referenceNo string) ([]*entity.Movement, error)
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error)
	// ListRecent los limit movimientos más recientes (más nuevo primero).
	ListRecent(ctx context.Context, limit int) ([]*entity.Movement, error)
	// Update corrige un movimiento; falla con domain.ErrConflict si Version no coincide.
	Update(ctx context.Context, movement *entity.Movement) error
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// CountSessionRepository puerto de persistencia para sesiones de conteo.
type CountSessionRepository interface {
	Create(ctx context.Context, session *entity.CountSession) error
	GetByID(ctx context.Context, id string) (*entity.CountSession, error)
	GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error)
	// Update persiste con control optimista: falla con domain.ErrConflict si Version cambió.
	Update(ctx context.Context, session *entity.CountSession) error
	ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.CountSession, error)
}

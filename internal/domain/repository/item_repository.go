package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ItemRepository puerto del catálogo de ítems (productos terminados y materias primas).
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	GetByCode(ctx context.Context, code string) (*entity.Item, error)
	List(ctx context.Context, itemType string, limit, offset int) ([]*entity.Item, error)
}

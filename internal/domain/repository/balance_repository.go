package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// BalanceRepository puerto del almacén de saldos.
// Las escrituras de cantidad solo las hace el publicador de movimientos dentro de una unidad de trabajo.
type BalanceRepository interface {
	// Get devuelve el saldo; si no existe devuelve un saldo en cero con Version 0.
	Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)
	// GetForUpdate igual que Get pero bloquea/registra la fila para la transacción en curso.
	GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)
	// Upsert inserta o actualiza el saldo (cantidad y umbral mínimo). Falla con domain.ErrConflict si Version no coincide.
	Upsert(ctx context.Context, balance *entity.Balance) error
	// Delete purga administrativa del saldo.
	Delete(ctx context.Context, key entity.BalanceKey) error
	ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Balance, error)
	List(ctx context.Context) ([]*entity.Balance, error)
}

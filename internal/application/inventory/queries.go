package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// QueryService lecturas de saldos y libro. Son snapshots fuera de transacción,
// nunca se usan para decidir una escritura.
type QueryService struct {
	balances  repository.BalanceRepository
	movements repository.MovementRepository
}

func NewQueryService(balances repository.BalanceRepository, movements repository.MovementRepository) *QueryService {
	return &QueryService{balances: balances, movements: movements}
}

// GetBalances saldos de una bodega, o de todas si warehouseID está vacío.
func (q *QueryService) GetBalances(ctx context.Context, warehouseID string) ([]*entity.Balance, error) {
	if warehouseID == "" {
		return q.balances.List(ctx)
	}
	return q.balances.ListByWarehouse(ctx, warehouseID)
}

// GetBalance saldo de una llave (en cero si no hay movimientos).
func (q *QueryService) GetBalance(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	if key.WarehouseID == "" || key.ItemID == "" || !entity.ValidItemType(key.ItemType) {
		return nil, domain.Invalid("key", "bodega, tipo e ítem son requeridos")
	}
	return q.balances.Get(ctx, key)
}

// GetTransactions movimientos del libro, más nuevo primero.
func (q *QueryService) GetTransactions(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	if filter.Type != "" && !entity.ValidMovementType(filter.Type) {
		return nil, domain.Invalid("type", "tipo de movimiento desconocido")
	}
	if filter.ItemType != "" && !entity.ValidItemType(filter.ItemType) {
		return nil, domain.Invalid("item_type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return q.movements.List(ctx, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

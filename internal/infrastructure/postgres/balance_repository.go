package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `warehouse_id, item_type, item_id, quantity, min_stock, last_updated, version`

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	err := row.Scan(&b.WarehouseID, &b.ItemType, &b.ItemID, &b.Quantity, &b.MinStock, &b.LastUpdated, &b.Version)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) get(ctx context.Context, key entity.BalanceKey, forUpdate bool) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances
		WHERE warehouse_id = $1 AND item_type = $2 AND item_id = $3`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.WarehouseID, key.ItemType, key.ItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewBalance(key), nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Get obtiene el saldo; si no existe devuelve uno en cero (Version 0).
func (r *BalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	return r.get(ctx, key, false)
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE).
func (r *BalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	return r.get(ctx, key, true)
}

// Upsert inserta (Version 0) o actualiza con control de versión.
func (r *BalanceRepo) Upsert(ctx context.Context, b *entity.Balance) error {
	if b.Version == 0 {
		query := `
			INSERT INTO balances (` + balanceColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, 1)`
		_, err := r.q.Exec(ctx, query, b.WarehouseID, b.ItemType, b.ItemID, b.Quantity, b.MinStock, b.LastUpdated)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert balance %s: %w", b.Key().String(), domain.ErrConflict)
			}
			return fmt.Errorf("insert balance: %w", err)
		}
		b.Version = 1
		return nil
	}
	query := `
		UPDATE balances SET quantity = $4, min_stock = $5, last_updated = $6, version = version + 1
		WHERE warehouse_id = $1 AND item_type = $2 AND item_id = $3 AND version = $7`
	cmd, err := r.q.Exec(ctx, query, b.WarehouseID, b.ItemType, b.ItemID, b.Quantity, b.MinStock, b.LastUpdated, b.Version)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update balance %s: %w", b.Key().String(), domain.ErrConflict)
	}
	b.Version++
	return nil
}

// Delete purga el saldo.
func (r *BalanceRepo) Delete(ctx context.Context, key entity.BalanceKey) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM balances WHERE warehouse_id = $1 AND item_type = $2 AND item_id = $3`,
		key.WarehouseID, key.ItemType, key.ItemID)
	if err != nil {
		return fmt.Errorf("delete balance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("saldo %s: %w", key.String(), domain.ErrNotFound)
	}
	return nil
}

// ListByWarehouse saldos de una bodega.
func (r *BalanceRepo) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE warehouse_id = $1 ORDER BY item_type, item_id`
	return r.list(ctx, query, warehouseID)
}

// List todos los saldos.
func (r *BalanceRepo) List(ctx context.Context) ([]*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances ORDER BY warehouse_id, item_type, item_id`
	return r.list(ctx, query)
}

func (r *BalanceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Balance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Balance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

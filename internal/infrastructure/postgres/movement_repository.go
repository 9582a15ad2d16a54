package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, warehouse_id, item_type, item_id, type, quantity, reference_no,
	linked_movement_id, transfer_direction, reversal_of_id, idempotency_key, source_document,
	note, created_by, created_at, updated_by, updated_at, version`

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	err := row.Scan(
		&m.ID, &m.WarehouseID, &m.ItemType, &m.ItemID, &m.Type, &m.Quantity, &m.ReferenceNo,
		&m.LinkedMovementID, &m.TransferDirection, &m.ReversalOfID, &m.IdempotencyKey, &m.SourceDocument,
		&m.Note, &m.CreatedBy, &m.CreatedAt, &m.UpdatedBy, &m.UpdatedAt, &m.Version,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create persiste un movimiento. Una llave de idempotencia tomada por otra transacción
// se reporta como conflicto: al reintentar, la búsqueda por llave encuentra el existente.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.WarehouseID, m.ItemType, m.ItemID, m.Type, m.Quantity, m.ReferenceNo,
		m.LinkedMovementID, m.TransferDirection, m.ReversalOfID, m.IdempotencyKey, m.SourceDocument,
		m.Note, m.CreatedBy, m.CreatedAt, m.UpdatedBy, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert movement %s: %w", m.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	m.Version = 1
	return nil
}

func (r *MovementRepo) getOne(ctx context.Context, where string, arg any) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByIdempotencyKey nil, nil si no existe.
func (r *MovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	if key == "" {
		return nil, nil
	}
	return r.getOne(ctx, `idempotency_key = $1`, key)
}

// ListByReference piernas y movimientos de una referencia, bloqueados para la transacción.
func (r *MovementRepo) ListByReference(ctx context.Context, referenceNo string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE reference_no = $1 ORDER BY created_at, id FOR UPDATE`
	return r.list(ctx, query, referenceNo)
}

// List consulta el libro con filtros opcionales, más nuevo primero.
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.ItemType != "" {
		add("item_type = $%d", f.ItemType)
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.ReferenceNo != "" {
		add("reference_no = $%d", f.ReferenceNo)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	query := `SELECT ` + movementColumns + ` FROM movements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	return r.list(ctx, query, args...)
}

// ListRecent los limit movimientos más recientes.
func (r *MovementRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Movement, error) {
	return r.List(ctx, entity.MovementFilter{Limit: limit})
}

// Update corrige cantidad y auditoría con control de versión.
func (r *MovementRepo) Update(ctx context.Context, m *entity.Movement) error {
	query := `
		UPDATE movements SET quantity = $2, note = $3, updated_by = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6`
	cmd, err := r.q.Exec(ctx, query, m.ID, m.Quantity, m.Note, m.UpdatedBy, m.UpdatedAt, m.Version)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update movement %s: %w", m.ID, domain.ErrConflict)
	}
	m.Version++
	return nil
}

// Delete elimina un movimiento (solo flujos de corrección).
func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.CountSessionRepository = (*CountSessionRepo)(nil)

// CountSessionRepo sesiones de conteo; las líneas se guardan como JSONB.
type CountSessionRepo struct {
	q Querier
}

func NewCountSessionRepository(q Querier) *CountSessionRepo {
	return &CountSessionRepo{q: q}
}

const countColumns = `id, warehouse_id, status, lines, created_by, created_at, updated_at, approved_by, approved_at, version`

func scanCount(row pgx.Row) (*entity.CountSession, error) {
	var s entity.CountSession
	var lines []byte
	err := row.Scan(&s.ID, &s.WarehouseID, &s.Status, &lines, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
		&s.ApprovedBy, &s.ApprovedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &s.Lines); err != nil {
		return nil, fmt.Errorf("decode count lines: %w", err)
	}
	return &s, nil
}

func (r *CountSessionRepo) Create(ctx context.Context, s *entity.CountSession) error {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return fmt.Errorf("encode count lines: %w", err)
	}
	query := `
		INSERT INTO count_sessions (` + countColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)`
	_, err = r.q.Exec(ctx, query, s.ID, s.WarehouseID, s.Status, lines, s.CreatedBy, s.CreatedAt, s.UpdatedAt,
		s.ApprovedBy, s.ApprovedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert count session: %w", err)
	}
	s.Version = 1
	return nil
}

func (r *CountSessionRepo) get(ctx context.Context, id, suffix string) (*entity.CountSession, error) {
	s, err := scanCount(r.q.QueryRow(ctx, `SELECT `+countColumns+` FROM count_sessions WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get count session: %w", err)
	}
	return s, nil
}

func (r *CountSessionRepo) GetByID(ctx context.Context, id string) (*entity.CountSession, error) {
	return r.get(ctx, id, "")
}

func (r *CountSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *CountSessionRepo) Update(ctx context.Context, s *entity.CountSession) error {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return fmt.Errorf("encode count lines: %w", err)
	}
	query := `
		UPDATE count_sessions SET status = $2, lines = $3, updated_at = $4, approved_by = $5, approved_at = $6,
			version = version + 1
		WHERE id = $1 AND version = $7`
	cmd, err := r.q.Exec(ctx, query, s.ID, s.Status, lines, s.UpdatedAt, s.ApprovedBy, s.ApprovedAt, s.Version)
	if err != nil {
		return fmt.Errorf("update count session: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update count session %s: %w", s.ID, domain.ErrConflict)
	}
	s.Version++
	return nil
}

func (r *CountSessionRepo) ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.CountSession, error) {
	query := `SELECT ` + countColumns + ` FROM count_sessions WHERE warehouse_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, warehouseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list count sessions: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.CountSession, 0)
	for rows.Next() {
		s, err := scanCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan count session: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

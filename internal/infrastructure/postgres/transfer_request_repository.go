package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.TransferRequestRepository = (*TransferRequestRepo)(nil)

// TransferRequestRepo solicitudes de traslado; las líneas se guardan como JSONB.
type TransferRequestRepo struct {
	q Querier
}

// NewTransferRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRequestRepository(q Querier) *TransferRequestRepo {
	return &TransferRequestRepo{q: q}
}

const transferColumns = `id, from_warehouse_id, to_warehouse_id, reference_no, lines, status, note,
	created_by, created_at, approved_by, approved_at, rejected_by, rejected_at, reject_reason,
	cancelled_by, cancelled_at, cancel_reason, version`

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var t entity.TransferRequest
	var lines []byte
	err := row.Scan(
		&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &t.ReferenceNo, &lines, &t.Status, &t.Note,
		&t.CreatedBy, &t.CreatedAt, &t.ApprovedBy, &t.ApprovedAt, &t.RejectedBy, &t.RejectedAt, &t.RejectReason,
		&t.CancelledBy, &t.CancelledAt, &t.CancelReason, &t.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &t.Lines); err != nil {
		return nil, fmt.Errorf("decode transfer lines: %w", err)
	}
	return &t, nil
}

// Create persiste una solicitud nueva.
func (r *TransferRequestRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	lines, err := json.Marshal(t.Lines)
	if err != nil {
		return fmt.Errorf("encode transfer lines: %w", err)
	}
	query := `
		INSERT INTO transfer_requests (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)`
	_, err = r.q.Exec(ctx, query,
		t.ID, t.FromWarehouseID, t.ToWarehouseID, t.ReferenceNo, lines, t.Status, t.Note,
		t.CreatedBy, t.CreatedAt, t.ApprovedBy, t.ApprovedAt, t.RejectedBy, t.RejectedAt, t.RejectReason,
		t.CancelledBy, t.CancelledAt, t.CancelReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert transfer request: %w", err)
	}
	t.Version = 1
	return nil
}

func (r *TransferRequestRepo) get(ctx context.Context, id, suffix string) (*entity.TransferRequest, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer request: %w", err)
	}
	return t, nil
}

// GetByID obtiene una solicitud por ID.
func (r *TransferRequestRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene la solicitud bloqueando la fila.
func (r *TransferRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// Update persiste estado y auditoría con control de versión.
func (r *TransferRequestRepo) Update(ctx context.Context, t *entity.TransferRequest) error {
	lines, err := json.Marshal(t.Lines)
	if err != nil {
		return fmt.Errorf("encode transfer lines: %w", err)
	}
	query := `
		UPDATE transfer_requests SET lines = $2, status = $3, note = $4,
			approved_by = $5, approved_at = $6, rejected_by = $7, rejected_at = $8, reject_reason = $9,
			cancelled_by = $10, cancelled_at = $11, cancel_reason = $12, version = version + 1
		WHERE id = $1 AND version = $13`
	cmd, err := r.q.Exec(ctx, query,
		t.ID, lines, t.Status, t.Note,
		t.ApprovedBy, t.ApprovedAt, t.RejectedBy, t.RejectedAt, t.RejectReason,
		t.CancelledBy, t.CancelledAt, t.CancelReason, t.Version,
	)
	if err != nil {
		return fmt.Errorf("update transfer request: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update transfer request %s: %w", t.ID, domain.ErrConflict)
	}
	t.Version++
	return nil
}

// List solicitudes por estado y bodega (origen o destino), más reciente primero.
func (r *TransferRequestRepo) List(ctx context.Context, f entity.TransferRequestFilter) ([]*entity.TransferRequest, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.WarehouseID != "" {
		args = append(args, f.WarehouseID)
		where = append(where, fmt.Sprintf("(from_warehouse_id = $%d OR to_warehouse_id = $%d)", len(args), len(args)))
	}
	query := `SELECT ` + transferColumns + ` FROM transfer_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.TransferRequest, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// CountReconciliation sesiones de conteo físico: snapshot, conteo y aprobación con ajustes.
type CountReconciliation struct {
	txRunner   TxRunner
	poster     *MovementPoster
	counts     repository.CountSessionRepository
	balances   repository.BalanceRepository
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	refs       ReferenceAllocator
	log        zerolog.Logger
}

func NewCountReconciliation(
	txRunner TxRunner,
	poster *MovementPoster,
	counts repository.CountSessionRepository,
	balances repository.BalanceRepository,
	warehouses repository.WarehouseRepository,
	items repository.ItemRepository,
	refs ReferenceAllocator,
	log zerolog.Logger,
) *CountReconciliation {
	return &CountReconciliation{
		txRunner:   txRunner,
		poster:     poster,
		counts:     counts,
		balances:   balances,
		warehouses: warehouses,
		items:      items,
		refs:       refs,
		log:        log,
	}
}

// CountedLine cantidad contada para un ítem.
type CountedLine struct {
	ItemType   string
	ItemID     string
	CountedQty decimal.Decimal
}

// CreateSession abre una sesión con el snapshot de todos los saldos de la bodega (esperado = contado).
func (c *CountReconciliation) CreateSession(ctx context.Context, warehouseID, createdBy string) (*entity.CountSession, error) {
	if warehouseID == "" {
		return nil, domain.Invalid("warehouse_id", "es requerido")
	}
	if err := checkWarehouse(ctx, c.warehouses, warehouseID); err != nil {
		return nil, err
	}
	balances, err := c.balances.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	lines := make([]entity.CountLine, 0, len(balances))
	for _, b := range balances {
		lines = append(lines, entity.CountLine{
			ItemType:    b.ItemType,
			ItemID:      b.ItemID,
			ExpectedQty: b.Quantity,
			CountedQty:  b.Quantity,
		})
	}
	now := time.Now()
	session := &entity.CountSession{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		Status:      entity.CountStatusOpen,
		Lines:       lines,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.txRunner.Run(ctx, func(r TxRepos) error {
		return r.Counts.Create(ctx, session)
	}); err != nil {
		return nil, err
	}
	c.log.Info().Str("count_session_id", session.ID).Str("warehouse_id", warehouseID).Int("lines", len(lines)).Msg("sesión de conteo creada")
	return session, nil
}

// SaveLines registra cantidades contadas. Ítems fuera del snapshot se agregan con esperado 0.
// No afecta saldos.
func (c *CountReconciliation) SaveLines(ctx context.Context, sessionID string, lines []CountedLine, savedBy string) (*entity.CountSession, error) {
	if sessionID == "" {
		return nil, domain.Invalid("id", "es requerido")
	}
	for _, l := range lines {
		if !entity.ValidItemType(l.ItemType) {
			return nil, domain.Invalid("item_type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
		}
		if l.ItemID == "" {
			return nil, domain.Invalid("item_id", "es requerido")
		}
		if l.CountedQty.IsNegative() {
			return nil, domain.Invalid("counted_qty", "no puede ser negativa")
		}
	}
	var saved *entity.CountSession
	err := c.txRunner.Run(ctx, func(r TxRepos) error {
		s, err := r.Counts.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("sesión %s: %w", sessionID, domain.ErrNotFound)
		}
		if s.Status == entity.CountStatusApproved {
			return &domain.InvalidStateError{Entity: "sesión de conteo", ID: sessionID, Current: s.Status, Action: "guardar conteo"}
		}
		for _, l := range lines {
			if i := s.LineIndex(l.ItemType, l.ItemID); i >= 0 {
				s.Lines[i].CountedQty = l.CountedQty
				continue
			}
			if err := checkItem(ctx, c.items, l.ItemType, l.ItemID); err != nil {
				return err
			}
			s.Lines = append(s.Lines, entity.CountLine{
				ItemType:    l.ItemType,
				ItemID:      l.ItemID,
				ExpectedQty: decimal.Zero,
				CountedQty:  l.CountedQty,
			})
		}
		s.Status = entity.CountStatusCounted
		s.UpdatedAt = time.Now()
		if err := r.Counts.Update(ctx, s); err != nil {
			return err
		}
		saved = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("count_session_id", sessionID).Str("saved_by", savedBy).Int("lines", len(lines)).Msg("conteo guardado")
	return saved, nil
}

// ApproveSession publica un ADJUSTMENT por cada línea con diferencia y aprueba la sesión.
// Ajustes y cambio de estado se confirman juntos; una sesión aprobada no se vuelve a aprobar.
func (c *CountReconciliation) ApproveSession(ctx context.Context, sessionID, approvedBy string) (*entity.CountSession, error) {
	if sessionID == "" {
		return nil, domain.Invalid("id", "es requerido")
	}
	var ref string
	var approved *entity.CountSession
	var changed []entity.Balance
	posted := 0
	err := c.txRunner.Run(ctx, func(r TxRepos) error {
		s, err := r.Counts.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("sesión %s: %w", sessionID, domain.ErrNotFound)
		}
		if s.Status == entity.CountStatusApproved {
			return &domain.InvalidStateError{Entity: "sesión de conteo", ID: sessionID, Current: s.Status, Action: "aprobar"}
		}
		if ref == "" && hasDifferences(s) {
			ref, err = c.refs.Next(ctx, PrefixCount)
			if err != nil {
				return fmt.Errorf("asignar referencia: %w", err)
			}
		}
		now := time.Now()
		changed, posted = changed[:0], 0
		for _, line := range s.Lines {
			diff := line.Diff()
			if diff.IsZero() {
				continue
			}
			key := entity.BalanceKey{WarehouseID: s.WarehouseID, ItemType: line.ItemType, ItemID: line.ItemID}
			res, err := c.poster.postInTx(ctx, r, PostMovementInput{
				WarehouseID:    s.WarehouseID,
				ItemType:       line.ItemType,
				ItemID:         line.ItemID,
				Type:           entity.MovementTypeADJUSTMENT,
				Quantity:       diff,
				ReferenceNo:    ref,
				IdempotencyKey: keyPrefixCountSession + s.ID + ":" + key.String(),
				SourceDocument: "count_session:" + s.ID,
				CreatedBy:      approvedBy,
			}, now)
			if err != nil {
				return fmt.Errorf("ajuste %s: %w", key.String(), err)
			}
			changed = append(changed, res.Balances...)
			posted++
		}
		s.Status = entity.CountStatusApproved
		s.ApprovedBy = approvedBy
		s.ApprovedAt = &now
		s.UpdatedAt = now
		if err := r.Counts.Update(ctx, s); err != nil {
			return err
		}
		approved = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.poster.notify(ctx, changed)
	c.log.Info().Str("count_session_id", sessionID).Str("reference_no", ref).Int("adjustments", posted).Str("approved_by", approvedBy).Msg("sesión de conteo aprobada")
	return approved, nil
}

func hasDifferences(s *entity.CountSession) bool {
	for _, l := range s.Lines {
		if !l.Diff().IsZero() {
			return true
		}
	}
	return false
}

// GetSession devuelve la sesión o ErrNotFound.
func (c *CountReconciliation) GetSession(ctx context.Context, id string) (*entity.CountSession, error) {
	if id == "" {
		return nil, domain.Invalid("id", "es requerido")
	}
	s, err := c.counts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("sesión %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// ListSessions sesiones de una bodega, más reciente primero.
func (c *CountReconciliation) ListSessions(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.CountSession, error) {
	if warehouseID == "" {
		return nil, domain.Invalid("warehouse_id", "es requerido")
	}
	if offset < 0 {
		offset = 0
	}
	return c.counts.ListByWarehouse(ctx, warehouseID, clampLimit(limit), offset)
}

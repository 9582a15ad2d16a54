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

// TransferWorkflow flujo de solicitudes de traslado en dos fases:
// crear (sin efecto en saldos) y aprobar (publica las piernas), con rechazo y cancelación.
type TransferWorkflow struct {
	txRunner   TxRunner
	poster     *MovementPoster
	transfers  repository.TransferRequestRepository
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	refs       ReferenceAllocator
	log        zerolog.Logger
}

func NewTransferWorkflow(
	txRunner TxRunner,
	poster *MovementPoster,
	transfers repository.TransferRequestRepository,
	warehouses repository.WarehouseRepository,
	items repository.ItemRepository,
	refs ReferenceAllocator,
	log zerolog.Logger,
) *TransferWorkflow {
	return &TransferWorkflow{
		txRunner:   txRunner,
		poster:     poster,
		transfers:  transfers,
		warehouses: warehouses,
		items:      items,
		refs:       refs,
		log:        log,
	}
}

// CreateTransferInput entrada para crear una solicitud.
type CreateTransferInput struct {
	FromWarehouseID string
	ToWarehouseID   string
	Lines           []entity.TransferLine
	Note            string
	CreatedBy       string
}

// ApproveOptions opciones de aprobación. AllowNegativeSource solo tiene efecto
// si la bodega origen está configurada como exenta.
type ApproveOptions struct {
	AllowNegativeSource bool
}

// CreateRequest crea una solicitud pendiente. Las líneas con cantidad <= 0 se descartan.
func (w *TransferWorkflow) CreateRequest(ctx context.Context, in CreateTransferInput) (*entity.TransferRequest, error) {
	if in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return nil, domain.Invalid("warehouse_id", "origen y destino son requeridos")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.Invalid("to_warehouse_id", "debe ser distinta a la bodega origen")
	}
	lines := make([]entity.TransferLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return nil, domain.Invalid("lines", "la solicitud no tiene líneas con cantidad positiva")
	}
	if err := w.checkDirectory(ctx, in.FromWarehouseID, in.ToWarehouseID, lines); err != nil {
		return nil, err
	}
	ref, err := w.refs.Next(ctx, PrefixTransfer)
	if err != nil {
		return nil, fmt.Errorf("asignar referencia: %w", err)
	}
	req := &entity.TransferRequest{
		ID:              uuid.New().String(),
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		ReferenceNo:     ref,
		Lines:           lines,
		Status:          entity.TransferStatusPending,
		Note:            in.Note,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       time.Now(),
	}
	if err := w.txRunner.Run(ctx, func(r TxRepos) error {
		return r.Transfers.Create(ctx, req)
	}); err != nil {
		return nil, err
	}
	w.log.Info().Str("transfer_request_id", req.ID).Str("reference_no", ref).Int("lines", len(lines)).Msg("solicitud de traslado creada")
	return req, nil
}

func (w *TransferWorkflow) checkDirectory(ctx context.Context, from, to string, lines []entity.TransferLine) error {
	if err := checkWarehouse(ctx, w.warehouses, from); err != nil {
		return err
	}
	if err := checkWarehouse(ctx, w.warehouses, to); err != nil {
		return err
	}
	for _, l := range lines {
		if !entity.ValidItemType(l.ItemType) {
			return domain.Invalid("item_type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
		}
		if err := checkItem(ctx, w.items, l.ItemType, l.ItemID); err != nil {
			return err
		}
	}
	return nil
}

// sourceTransferRequest prefijo de SourceDocument en las piernas publicadas por una solicitud.
const sourceTransferRequest = "transfer_request:"

// lineIdempotencyKey llave estable por línea: un reintento de la aprobación devuelve lo ya publicado.
func lineIdempotencyKey(requestID string, line int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefixTransferRequest, requestID, line)
}

// ApproveRequest publica un TRANSFER por línea con la referencia de la solicitud.
// Líneas y cambio de estado se confirman juntos: o se aprueba todo o nada.
func (w *TransferWorkflow) ApproveRequest(ctx context.Context, id, approvedBy string, opts ApproveOptions) (*entity.TransferRequest, error) {
	current, err := w.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.checkDirectory(ctx, current.FromWarehouseID, current.ToWarehouseID, current.Lines); err != nil {
		return nil, err
	}

	var approved *entity.TransferRequest
	var changed []entity.Balance
	err = w.txRunner.Run(ctx, func(r TxRepos) error {
		req, err := r.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
		}
		if !req.CanTransition(entity.TransferStatusApproved) {
			return &domain.InvalidStateError{Entity: "solicitud de traslado", ID: id, Current: req.Status, Action: "aprobar"}
		}
		now := time.Now()
		latest := make(map[string]entity.Balance)
		var order []string
		for i, line := range req.Lines {
			res, err := w.poster.postInTx(ctx, r, PostMovementInput{
				WarehouseID:    req.FromWarehouseID,
				ToWarehouseID:  req.ToWarehouseID,
				ItemType:       line.ItemType,
				ItemID:         line.ItemID,
				Type:           entity.MovementTypeTRANSFER,
				Quantity:       line.Quantity,
				AllowNegative:  opts.AllowNegativeSource,
				ReferenceNo:    req.ReferenceNo,
				IdempotencyKey: lineIdempotencyKey(req.ID, i),
				SourceDocument: sourceTransferRequest + req.ID,
				Note:           req.Note,
				CreatedBy:      approvedBy,
			}, now)
			if err != nil {
				return fmt.Errorf("línea %d: %w", i+1, err)
			}
			for _, b := range res.Balances {
				k := b.Key().String()
				if _, ok := latest[k]; !ok {
					order = append(order, k)
				}
				latest[k] = b
			}
		}
		req.Status = entity.TransferStatusApproved
		req.ApprovedBy = approvedBy
		req.ApprovedAt = &now
		if err := r.Transfers.Update(ctx, req); err != nil {
			return err
		}
		changed = changed[:0]
		for _, k := range order {
			changed = append(changed, latest[k])
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.poster.notify(ctx, changed)
	w.log.Info().Str("transfer_request_id", id).Str("reference_no", approved.ReferenceNo).Str("approved_by", approvedBy).Msg("solicitud de traslado aprobada")
	return approved, nil
}

// RejectRequest rechaza una solicitud pendiente. No afecta saldos.
func (w *TransferWorkflow) RejectRequest(ctx context.Context, id, rejectedBy, reason string) (*entity.TransferRequest, error) {
	var rejected *entity.TransferRequest
	err := w.txRunner.Run(ctx, func(r TxRepos) error {
		req, err := r.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
		}
		if !req.CanTransition(entity.TransferStatusRejected) {
			return &domain.InvalidStateError{Entity: "solicitud de traslado", ID: id, Current: req.Status, Action: "rechazar"}
		}
		now := time.Now()
		req.Status = entity.TransferStatusRejected
		req.RejectedBy = rejectedBy
		req.RejectedAt = &now
		req.RejectReason = reason
		if err := r.Transfers.Update(ctx, req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.log.Info().Str("transfer_request_id", id).Str("rejected_by", rejectedBy).Msg("solicitud de traslado rechazada")
	return rejected, nil
}

// CancelRequest cancela una solicitud aprobada revirtiendo todas sus piernas por referencia.
// Reversión y cambio de estado se confirman juntos.
func (w *TransferWorkflow) CancelRequest(ctx context.Context, id, cancelledBy, reason string) (*entity.TransferRequest, error) {
	var cancelled *entity.TransferRequest
	var changed []entity.Balance
	err := w.txRunner.Run(ctx, func(r TxRepos) error {
		req, err := r.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
		}
		if !req.CanTransition(entity.TransferStatusCancelled) {
			return &domain.InvalidStateError{Entity: "solicitud de traslado", ID: id, Current: req.Status, Action: "cancelar"}
		}
		if req.ReferenceNo == "" {
			return domain.Invalid("reference_no", "la solicitud no tiene referencia para revertir")
		}
		now := time.Now()
		changed, err = w.poster.reverseInTx(ctx, r, req.ReferenceNo, cancelledBy, reason, now)
		if err != nil {
			return err
		}
		req.Status = entity.TransferStatusCancelled
		req.CancelledBy = cancelledBy
		req.CancelledAt = &now
		req.CancelReason = reason
		if err := r.Transfers.Update(ctx, req); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.poster.notify(ctx, changed)
	w.log.Info().Str("transfer_request_id", id).Str("reference_no", cancelled.ReferenceNo).Str("cancelled_by", cancelledBy).Msg("solicitud de traslado cancelada")
	return cancelled, nil
}

// GetRequest devuelve la solicitud o ErrNotFound.
func (w *TransferWorkflow) GetRequest(ctx context.Context, id string) (*entity.TransferRequest, error) {
	if id == "" {
		return nil, domain.Invalid("id", "es requerido")
	}
	req, err := w.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
	}
	return req, nil
}

// ListRequests lista solicitudes por estado y/o bodega (origen o destino).
func (w *TransferWorkflow) ListRequests(ctx context.Context, filter entity.TransferRequestFilter) ([]*entity.TransferRequest, error) {
	switch filter.Status {
	case "", entity.TransferStatusPending, entity.TransferStatusApproved, entity.TransferStatusRejected, entity.TransferStatusCancelled:
	default:
		return nil, domain.Invalid("status", "estado desconocido")
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return w.transfers.List(ctx, filter)
}

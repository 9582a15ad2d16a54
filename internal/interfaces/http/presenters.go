package http

import (
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

func toBalanceResponse(b *entity.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		Key:          b.Key().String(),
		WarehouseID:  b.WarehouseID,
		ItemType:     b.ItemType,
		ItemID:       b.ItemID,
		Quantity:     b.Quantity,
		MinStock:     b.MinStock,
		BelowMinimum: b.BelowMinimum(),
		LastUpdated:  b.LastUpdated,
		Version:      b.Version,
	}
}

func toMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:                m.ID,
		WarehouseID:       m.WarehouseID,
		ItemType:          m.ItemType,
		ItemID:            m.ItemID,
		Type:              m.Type,
		Quantity:          m.Quantity,
		ReferenceNo:       m.ReferenceNo,
		LinkedMovementID:  m.LinkedMovementID,
		TransferDirection: m.TransferDirection,
		ReversalOfID:      m.ReversalOfID,
		SourceDocument:    m.SourceDocument,
		Note:              m.Note,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedBy:         m.UpdatedBy,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toTransferResponse(r *entity.TransferRequest) dto.TransferRequestResponse {
	lines := make([]dto.TransferLineResponse, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, dto.TransferLineResponse{ItemType: l.ItemType, ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return dto.TransferRequestResponse{
		ID:              r.ID,
		FromWarehouseID: r.FromWarehouseID,
		ToWarehouseID:   r.ToWarehouseID,
		ReferenceNo:     r.ReferenceNo,
		Status:          r.Status,
		Lines:           lines,
		Note:            r.Note,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectedBy:      r.RejectedBy,
		RejectedAt:      r.RejectedAt,
		RejectReason:    r.RejectReason,
		CancelledBy:     r.CancelledBy,
		CancelledAt:     r.CancelledAt,
		CancelReason:    r.CancelReason,
	}
}

func toCountResponse(s *entity.CountSession) dto.CountSessionResponse {
	lines := make([]dto.CountLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, dto.CountLineResponse{
			ItemType:    l.ItemType,
			ItemID:      l.ItemID,
			ExpectedQty: l.ExpectedQty,
			CountedQty:  l.CountedQty,
			Difference:  l.Diff(),
		})
	}
	return dto.CountSessionResponse{
		ID:          s.ID,
		WarehouseID: s.WarehouseID,
		Status:      s.Status,
		Lines:       lines,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		ApprovedBy:  s.ApprovedBy,
		ApprovedAt:  s.ApprovedAt,
	}
}

// pageParams limit/offset de la query con los topes de los listados.
func pageParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

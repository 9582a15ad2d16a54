package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferLineRequest línea de una solicitud. Las líneas con cantidad <= 0 se descartan al crear.
type TransferLineRequest struct {
	ItemType string          `json:"item_type" validate:"required,oneof=FINISHED_GOOD RAW_MATERIAL"`
	ItemID   string          `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateTransferRequest body para POST /api/transfer-requests.
type CreateTransferRequest struct {
	FromWarehouseID string                `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string                `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Lines           []TransferLineRequest `json:"lines" validate:"required,min=1,dive"`
	Note            string                `json:"note" validate:"max=500"`
}

// ApproveTransferRequest body opcional para POST /api/transfer-requests/:id/approve.
type ApproveTransferRequest struct {
	AllowNegativeSource bool `json:"allow_negative_source"`
}

// ReasonRequest body para rechazar o cancelar.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TransferLineResponse línea de la solicitud.
type TransferLineResponse struct {
	ItemType string          `json:"item_type"`
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TransferRequestResponse solicitud de traslado con su auditoría.
type TransferRequestResponse struct {
	ID              string                 `json:"id"`
	FromWarehouseID string                 `json:"from_warehouse_id"`
	ToWarehouseID   string                 `json:"to_warehouse_id"`
	ReferenceNo     string                 `json:"reference_no"`
	Status          string                 `json:"status"`
	Lines           []TransferLineResponse `json:"lines"`
	Note            string                 `json:"note,omitempty"`
	CreatedBy       string                 `json:"created_by"`
	CreatedAt       time.Time              `json:"created_at"`
	ApprovedBy      string                 `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time             `json:"approved_at,omitempty"`
	RejectedBy      string                 `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time             `json:"rejected_at,omitempty"`
	RejectReason    string                 `json:"reject_reason,omitempty"`
	CancelledBy     string                 `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CancelReason    string                 `json:"cancel_reason,omitempty"`
}

// TransferRequestListResponse página de solicitudes.
type TransferRequestListResponse struct {
	Items []TransferRequestResponse `json:"items"`
	Page  PageResponse              `json:"page"`
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCountSessionRequest body para POST /api/count-sessions.
type CreateCountSessionRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
}

// CountedLineRequest cantidad contada de un ítem.
type CountedLineRequest struct {
	ItemType   string          `json:"item_type" validate:"required,oneof=FINISHED_GOOD RAW_MATERIAL"`
	ItemID     string          `json:"item_id" validate:"required"`
	CountedQty decimal.Decimal `json:"counted_qty" validate:"gte=0"`
}

// SaveCountLinesRequest body para PUT /api/count-sessions/:id/lines.
type SaveCountLinesRequest struct {
	Lines []CountedLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CountLineResponse línea esperada vs contada.
type CountLineResponse struct {
	ItemType    string          `json:"item_type"`
	ItemID      string          `json:"item_id"`
	ExpectedQty decimal.Decimal `json:"expected_qty"`
	CountedQty  decimal.Decimal `json:"counted_qty"`
	Difference  decimal.Decimal `json:"difference"`
}

// CountSessionResponse sesión de conteo.
type CountSessionResponse struct {
	ID          string              `json:"id"`
	WarehouseID string              `json:"warehouse_id"`
	Status      string              `json:"status"`
	Lines       []CountLineResponse `json:"lines"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ApprovedBy  string              `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time          `json:"approved_at,omitempty"`
}

// CountSessionListResponse página de sesiones.
type CountSessionListResponse struct {
	Items []CountSessionResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostMovementRequest body para POST /api/inventory/movements.
// Para TRANSFER warehouse_id es el origen y to_warehouse_id el destino.
type PostMovementRequest struct {
	WarehouseID    string          `json:"warehouse_id" validate:"required"`
	ToWarehouseID  string          `json:"to_warehouse_id" validate:"required_if=Type TRANSFER,omitempty,nefield=WarehouseID"`
	ItemType       string          `json:"item_type" validate:"required,oneof=FINISHED_GOOD RAW_MATERIAL"`
	ItemID         string          `json:"item_id" validate:"required"`
	Type           string          `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT TRANSFER"`
	Quantity       decimal.Decimal `json:"quantity" validate:"ne=0"`
	AllowNegative  bool            `json:"allow_negative"`
	ReferenceNo    string          `json:"reference_no" validate:"max=64"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
	Note           string          `json:"note" validate:"max=500"`
}

// PostMovementResponse id del movimiento (pierna OUT en traslados).
type PostMovementResponse struct {
	MovementID string `json:"movement_id"`
}

// UpdateMovementRequest body para PUT /api/inventory/movements/:id.
type UpdateMovementRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"ne=0"`
}

// SetMinStockRequest body para PUT /api/inventory/balances/min-stock.
type SetMinStockRequest struct {
	WarehouseID string          `json:"warehouse_id" validate:"required"`
	ItemType    string          `json:"item_type" validate:"required,oneof=FINISHED_GOOD RAW_MATERIAL"`
	ItemID      string          `json:"item_id" validate:"required"`
	MinStock    decimal.Decimal `json:"min_stock" validate:"gte=0"`
}

// BalanceResponse saldo de una llave.
type BalanceResponse struct {
	Key          string          `json:"key"`
	WarehouseID  string          `json:"warehouse_id"`
	ItemType     string          `json:"item_type"`
	ItemID       string          `json:"item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinStock     decimal.Decimal `json:"min_stock"`
	BelowMinimum bool            `json:"below_minimum"`
	LastUpdated  time.Time       `json:"last_updated"`
	Version      int64           `json:"version"`
}

// BalanceListResponse saldos de una bodega o de todas.
type BalanceListResponse struct {
	Items []BalanceResponse `json:"items"`
	Total int               `json:"total"`
}

// MovementResponse fila del libro.
type MovementResponse struct {
	ID                string          `json:"id"`
	WarehouseID       string          `json:"warehouse_id"`
	ItemType          string          `json:"item_type"`
	ItemID            string          `json:"item_id"`
	Type              string          `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReferenceNo       string          `json:"reference_no"`
	LinkedMovementID  string          `json:"linked_movement_id,omitempty"`
	TransferDirection string          `json:"transfer_direction,omitempty"`
	ReversalOfID      string          `json:"reversal_of_id,omitempty"`
	SourceDocument    string          `json:"source_document,omitempty"`
	Note              string          `json:"note,omitempty"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedBy         string          `json:"updated_by,omitempty"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
}

// MovementListResponse página del libro.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

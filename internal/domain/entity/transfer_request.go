package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una solicitud de traslado.
const (
	TransferStatusPending   = "pending"
	TransferStatusApproved  = "approved"
	TransferStatusRejected  = "rejected"
	TransferStatusCancelled = "cancelled"
)

// transiciones permitidas: pending -> {approved, rejected}; approved -> {cancelled}.
var transferTransitions = map[string][]string{
	TransferStatusPending:  {TransferStatusApproved, TransferStatusRejected},
	TransferStatusApproved: {TransferStatusCancelled},
}

// TransferLine una línea de la solicitud (cantidad > 0).
type TransferLine struct {
	ItemType string          `json:"item_type"`
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// TransferRequest propuesta de traslado que solo afecta saldos al aprobarse.
type TransferRequest struct {
	ID              string
	FromWarehouseID string
	ToWarehouseID   string
	ReferenceNo     string
	Lines           []TransferLine
	Status          string
	Note            string
	CreatedBy       string
	CreatedAt       time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectReason    string
	CancelledBy     string
	CancelledAt     *time.Time
	CancelReason    string
	Version         int64
}

// CanTransition indica si la solicitud puede pasar al estado indicado.
func (r *TransferRequest) CanTransition(to string) bool {
	for _, s := range transferTransitions[r.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal rejected y cancelled no admiten más transiciones.
func (r *TransferRequest) IsTerminal() bool {
	return len(transferTransitions[r.Status]) == 0
}

// TransferRequestFilter filtros de listado.
type TransferRequestFilter struct {
	Status      string
	WarehouseID string // origen o destino
	Limit       int
	Offset      int
}

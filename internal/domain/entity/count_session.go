package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una sesión de conteo físico.
const (
	CountStatusOpen     = "open"
	CountStatusCounted  = "counted"
	CountStatusApproved = "approved"
)

// CountLine línea de conteo: cantidad esperada (snapshot) vs contada.
type CountLine struct {
	ItemType    string          `json:"item_type"`
	ItemID      string          `json:"item_id"`
	ExpectedQty decimal.Decimal `json:"expected_qty"`
	CountedQty  decimal.Decimal `json:"counted_qty"`
}

// Diff diferencia contada - esperada (cantidad del ajuste a publicar).
func (l CountLine) Diff() decimal.Decimal {
	return l.CountedQty.Sub(l.ExpectedQty)
}

// CountSession sesión de reconciliación por conteo físico de una bodega.
type CountSession struct {
	ID          string
	WarehouseID string
	Status      string
	Lines       []CountLine
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ApprovedBy  string
	ApprovedAt  *time.Time
	Version     int64
}

// LineIndex posición de la línea para el ítem, -1 si no existe.
func (s *CountSession) LineIndex(itemType, itemID string) int {
	for i, l := range s.Lines {
		if l.ItemType == itemType && l.ItemID == itemID {
			return i
		}
	}
	return -1
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"         // entrada
	MovementTypeOUT        = "OUT"        // salida
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste (el signo lo define quien llama)
	MovementTypeTRANSFER   = "TRANSFER"   // traslado entre bodegas (dos piernas)
)

// Dirección de una pierna de traslado.
const (
	TransferDirectionOUT = "OUT" // salida en bodega origen
	TransferDirectionIN  = "IN"  // entrada en bodega destino
)

// ValidMovementType indica si el tipo de movimiento es conocido.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUSTMENT, MovementTypeTRANSFER:
		return true
	}
	return false
}

// Movement registro inmutable de un cambio de cantidad con signo (entrada del libro).
// Para traslados cada pierna apunta a la otra con LinkedMovementID.
type Movement struct {
	ID                string
	WarehouseID       string
	ItemType          string
	ItemID            string
	Type              string
	Quantity          decimal.Decimal // positivo entrada, negativo salida
	ReferenceNo       string
	LinkedMovementID  string
	TransferDirection string
	ReversalOfID      string // pierna original que esta fila compensa
	IdempotencyKey    string
	SourceDocument    string // p.ej. "count_session:<id>"
	Note              string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedBy         string
	UpdatedAt         *time.Time
	Version           int64
}

// BalanceKey llave del saldo que afecta el movimiento.
func (m *Movement) BalanceKey() BalanceKey {
	return BalanceKey{WarehouseID: m.WarehouseID, ItemType: m.ItemType, ItemID: m.ItemID}
}

// IsTransferLeg indica si el movimiento es una pierna de traslado.
func (m *Movement) IsTransferLeg() bool {
	return m.Type == MovementTypeTRANSFER
}

// IsReversal indica si el movimiento compensa una pierna anterior.
func (m *Movement) IsReversal() bool {
	return m.ReversalOfID != ""
}

// MovementFilter filtros para consultar el libro. Campos vacíos no filtran.
type MovementFilter struct {
	WarehouseID string
	ItemType    string
	ItemID      string
	Type        string
	ReferenceNo string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

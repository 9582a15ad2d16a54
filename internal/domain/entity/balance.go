package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de ítem del catálogo.
const (
	ItemTypeFinishedGood = "FINISHED_GOOD" // producto terminado
	ItemTypeRawMaterial  = "RAW_MATERIAL"  // materia prima
)

// ValidItemType indica si el tipo de ítem es conocido.
func ValidItemType(t string) bool {
	return t == ItemTypeFinishedGood || t == ItemTypeRawMaterial
}

// BalanceKey identifica un saldo: bodega + tipo de ítem + ítem.
type BalanceKey struct {
	WarehouseID string
	ItemType    string
	ItemID      string
}

// String devuelve la llave compuesta "bodega:tipo:item" con la que se persiste el saldo.
func (k BalanceKey) String() string {
	return k.WarehouseID + ":" + k.ItemType + ":" + k.ItemID
}

// ParseBalanceKey interpreta la llave compuesta generada por String.
func ParseBalanceKey(s string) (BalanceKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return BalanceKey{}, fmt.Errorf("llave de saldo inválida: %q", s)
	}
	return BalanceKey{WarehouseID: parts[0], ItemType: parts[1], ItemID: parts[2]}, nil
}

// Balance saldo actual de un ítem en una bodega.
// Quantity es la suma de todos los deltas aceptados del libro para la llave.
// Version se incrementa en cada escritura y sirve como control de concurrencia optimista;
// Version = 0 significa que el saldo aún no existe.
type Balance struct {
	WarehouseID string
	ItemType    string
	ItemID      string
	Quantity    decimal.Decimal
	MinStock    decimal.Decimal
	LastUpdated time.Time
	Version     int64
}

// NewBalance saldo vacío para una llave (se crea en el primer movimiento).
func NewBalance(key BalanceKey) *Balance {
	return &Balance{
		WarehouseID: key.WarehouseID,
		ItemType:    key.ItemType,
		ItemID:      key.ItemID,
		Quantity:    decimal.Zero,
		MinStock:    decimal.Zero,
	}
}

// Key llave compuesta del saldo.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{WarehouseID: b.WarehouseID, ItemType: b.ItemType, ItemID: b.ItemID}
}

// BelowMinimum indica si la cantidad está por debajo del stock mínimo configurado.
func (b *Balance) BelowMinimum() bool {
	return b.MinStock.GreaterThan(decimal.Zero) && b.Quantity.LessThan(b.MinStock)
}

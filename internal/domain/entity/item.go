package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item ítem del catálogo (producto terminado o materia prima).
// UnitsPerPackage convierte empaques a unidades base; 0 o 1 = sin empaque.
type Item struct {
	ID              string
	Type            string
	Code            string
	Name            string
	UnitsPerPackage decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ToBaseUnits convierte una cantidad en empaques a unidades base.
func (i *Item) ToBaseUnits(packages decimal.Decimal) decimal.Decimal {
	if i.UnitsPerPackage.LessThanOrEqual(decimal.NewFromInt(1)) {
		return packages
	}
	return packages.Mul(i.UnitsPerPackage)
}

package entity

import "time"

// Warehouse bodega del directorio. Las inactivas no aceptan movimientos.
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

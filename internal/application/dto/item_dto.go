package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un ítem del catálogo.
type CreateItemRequest struct {
	Type            string          `json:"type" validate:"required,oneof=FINISHED_GOOD RAW_MATERIAL"`
	Code            string          `json:"code" validate:"required,min=1,max=100"`
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	UnitsPerPackage decimal.Decimal `json:"units_per_package" validate:"gte=0"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	UnitsPerPackage decimal.Decimal `json:"units_per_package"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

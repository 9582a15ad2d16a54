package dto_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
)

func TestValidate_MovimientoValido(t *testing.T) {
	in := dto.PostMovementRequest{
		WarehouseID: "WH-MAIN", ItemType: "FINISHED_GOOD", ItemID: "FG-1",
		Type: "IN", Quantity: decimal.NewFromInt(5),
	}
	assert.NoError(t, dto.Validate(in))
}

func TestValidate_ErroresDeMovimiento(t *testing.T) {
	base := dto.PostMovementRequest{
		WarehouseID: "WH-MAIN", ItemType: "FINISHED_GOOD", ItemID: "FG-1",
		Type: "IN", Quantity: decimal.NewFromInt(5),
	}
	tests := []struct {
		name  string
		mod   func(r *dto.PostMovementRequest)
		field string
	}{
		{"sin bodega", func(r *dto.PostMovementRequest) { r.WarehouseID = "" }, "warehouse_id"},
		{"tipo de ítem desconocido", func(r *dto.PostMovementRequest) { r.ItemType = "SERVICE" }, "item_type"},
		{"tipo de movimiento desconocido", func(r *dto.PostMovementRequest) { r.Type = "LOAN" }, "type"},
		{"cantidad cero", func(r *dto.PostMovementRequest) { r.Quantity = decimal.Zero }, "quantity"},
		{"traslado sin destino", func(r *dto.PostMovementRequest) { r.Type = "TRANSFER" }, "to_warehouse_id"},
		{"traslado a la misma bodega", func(r *dto.PostMovementRequest) {
			r.Type = "TRANSFER"
			r.ToWarehouseID = r.WarehouseID
		}, "to_warehouse_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mod(&in)

			err := dto.Validate(in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_LineasDeConteoNoNegativas(t *testing.T) {
	in := dto.SaveCountLinesRequest{Lines: []dto.CountedLineRequest{
		{ItemType: "RAW_MATERIAL", ItemID: "RM-1", CountedQty: decimal.NewFromInt(-1)},
	}}

	err := dto.Validate(in)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "lines[0].counted_qty", verr.Field)
}

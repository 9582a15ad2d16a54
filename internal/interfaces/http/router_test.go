package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
)

const (
	whMain  = "WH-MAIN"
	whShop  = "WH-SHOP"
	fgShirt = "FG-SHIRT"
)

// buildAPI arma el router completo sobre el almacén en memoria.
func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()
	store := memory.NewStore(10, log)
	dir := store.Directory()
	items := dir.Items()

	require.NoError(t, dir.Create(ctx, &entity.Warehouse{ID: whMain, Code: "MAIN", Name: "Bodega principal", Active: true}))
	require.NoError(t, dir.Create(ctx, &entity.Warehouse{ID: whShop, Code: "SHOP", Name: "Tienda", Active: true}))
	require.NoError(t, items.Create(ctx, &entity.Item{ID: fgShirt, Type: entity.ItemTypeFinishedGood, Code: "CAM-01", Name: "Camisa"}))

	refs := inventory.NewSequenceAllocator(dir)
	poster := inventory.NewMovementPoster(store, dir, items, refs, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Poster:      poster,
		Queries:     inventory.NewQueryService(store.Balances(), store.Movements()),
		Transfers:   inventory.NewTransferWorkflow(store, poster, store.Transfers(), dir, items, refs, log),
		Counts:      inventory.NewCountReconciliation(store, poster, store.Counts(), store.Balances(), dir, items, refs, log),
		WarehouseUC: usecase.NewWarehouseUseCase(dir, poster),
		ItemUC:      usecase.NewItemUseCase(items),
		JWTSecret:   testJWTSecret,
		Log:         log,
	})
	return app
}

// call ejecuta una petición con el rol dado ("" = sin token) y devuelve status y cuerpo.
func call(t *testing.T, app *fiber.App, method, path, role string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func movementBody(movementType, wh string, q int64) dto.PostMovementRequest {
	return dto.PostMovementRequest{
		WarehouseID: wh,
		ItemType:    entity.ItemTypeFinishedGood,
		ItemID:      fgShirt,
		Type:        movementType,
		Quantity:    decimal.NewFromInt(q),
	}
}

func withKey(body dto.PostMovementRequest, key string) dto.PostMovementRequest {
	body.IdempotencyKey = key
	return body
}

func balanceOf(t *testing.T, app *fiber.App, wh string) decimal.Decimal {
	t.Helper()
	status, raw := call(t, app, http.MethodGet, "/api/inventory/balances/"+wh+":FINISHED_GOOD:"+fgShirt, apphttp.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	return decode[dto.BalanceResponse](t, raw).Quantity
}

func TestRouter_EntradaActualizaSaldo(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodPost, "/api/inventory/movements", apphttp.RoleBodeguero, movementBody("IN", whMain, 10))
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.NotEmpty(t, decode[dto.PostMovementResponse](t, raw).MovementID)

	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, app, whMain)))

	status, raw = call(t, app, http.MethodGet, "/api/inventory/movements?warehouse_id="+whMain, apphttp.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.MovementListResponse](t, raw).Items, 1)
}

func TestRouter_MapeoDeErrores(t *testing.T) {
	app := buildAPI(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"salida sin stock", http.MethodPost, "/api/inventory/movements", movementBody("OUT", whMain, 1), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"cantidad cero", http.MethodPost, "/api/inventory/movements", movementBody("IN", whMain, 0), http.StatusBadRequest, "VALIDATION"},
		{"bodega inexistente", http.MethodPost, "/api/inventory/movements", movementBody("IN", "WH-NONE", 1), http.StatusNotFound, "NOT_FOUND"},
		{"llave reservada", http.MethodPost, "/api/inventory/movements", withKey(movementBody("IN", whMain, 1), "transfer-request:x:0"), http.StatusBadRequest, "VALIDATION"},
		{"llave de saldo mal formada", http.MethodGet, "/api/inventory/balances/sin-separadores", nil, http.StatusBadRequest, "VALIDATION"},
		{"solicitud inexistente", http.MethodGet, "/api/transfer-requests/no-existe", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bodega no encontrada", http.MethodGet, "/api/warehouses/no-existe", nil, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := call(t, app, tt.method, tt.path, apphttp.RoleAdmin, tt.body)
			assert.Equal(t, tt.wantCode, status, string(raw))
			assert.Equal(t, tt.wantErr, decode[dto.ErrorResponse](t, raw).Code)
		})
	}
}

func TestRouter_CuerpoInvalidoDevuelve400(t *testing.T) {
	app := buildAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/inventory/movements", bytes.NewBufferString("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_PermisosPorRol(t *testing.T) {
	app := buildAPI(t)

	tests := []struct {
		name     string
		method   string
		path     string
		role     string
		body     any
		wantCode int
	}{
		{"sin token", http.MethodGet, "/api/inventory/balances", "", nil, http.StatusUnauthorized},
		{"vendedor consulta saldos", http.MethodGet, "/api/inventory/balances", apphttp.RoleVendedor, nil, http.StatusOK},
		{"vendedor no publica movimientos", http.MethodPost, "/api/inventory/movements", apphttp.RoleVendedor, movementBody("IN", whMain, 1), http.StatusForbidden},
		{"bodeguero no aprueba traslados", http.MethodPost, "/api/transfer-requests/x/approve", apphttp.RoleBodeguero, nil, http.StatusForbidden},
		{"bodeguero no borra movimientos", http.MethodDelete, "/api/inventory/movements/x", apphttp.RoleBodeguero, nil, http.StatusForbidden},
		{"bodeguero no crea bodegas", http.MethodPost, "/api/warehouses", apphttp.RoleBodeguero, dto.CreateWarehouseRequest{Code: "X", Name: "X"}, http.StatusForbidden},
		{"vendedor lista ítems", http.MethodGet, "/api/items", apphttp.RoleVendedor, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := call(t, app, tt.method, tt.path, tt.role, tt.body)
			assert.Equal(t, tt.wantCode, status, string(raw))
		})
	}
}

func TestRouter_TrasladoAprobadoMueveSaldos(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodPost, "/api/inventory/movements", apphttp.RoleBodeguero, movementBody("IN", whMain, 10))
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests", apphttp.RoleBodeguero, dto.CreateTransferRequest{
		FromWarehouseID: whMain,
		ToWarehouseID:   whShop,
		Lines: []dto.TransferLineRequest{
			{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, Quantity: decimal.NewFromInt(4)},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[dto.TransferRequestResponse](t, raw)
	assert.Equal(t, entity.TransferStatusPending, created.Status)

	// pendiente: no mueve saldos
	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, app, whMain)))

	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests/"+created.ID+"/approve", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, entity.TransferStatusApproved, decode[dto.TransferRequestResponse](t, raw).Status)

	assert.True(t, decimal.NewFromInt(6).Equal(balanceOf(t, app, whMain)))
	assert.True(t, decimal.NewFromInt(4).Equal(balanceOf(t, app, whShop)))

	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests/"+created.ID+"/approve", apphttp.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests/"+created.ID+"/cancel", apphttp.RoleAdmin, dto.ReasonRequest{Reason: "error de digitación"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, app, whMain)))
	assert.True(t, balanceOf(t, app, whShop).IsZero())
}

func TestRouter_ConteoGeneraAjuste(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodPost, "/api/inventory/movements", apphttp.RoleBodeguero, movementBody("IN", whMain, 10))
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = call(t, app, http.MethodPost, "/api/count-sessions", apphttp.RoleBodeguero, dto.CreateCountSessionRequest{WarehouseID: whMain})
	require.Equal(t, http.StatusCreated, status, string(raw))
	session := decode[dto.CountSessionResponse](t, raw)

	status, raw = call(t, app, http.MethodPut, "/api/count-sessions/"+session.ID+"/lines", apphttp.RoleBodeguero, dto.SaveCountLinesRequest{
		Lines: []dto.CountedLineRequest{{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: decimal.NewFromInt(7)}},
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(t, app, http.MethodPost, "/api/count-sessions/"+session.ID+"/approve", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decimal.NewFromInt(7).Equal(balanceOf(t, app, whMain)))

	status, _ = call(t, app, http.MethodPost, "/api/count-sessions/"+session.ID+"/approve", apphttp.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodGet, "/api/count-sessions", apphttp.RoleVendedor, nil)
	assert.Equal(t, http.StatusBadRequest, status, "listar sin bodega es inválido")
}

func TestRouter_DirectorioYCatalogo(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodPost, "/api/warehouses", apphttp.RoleAdmin, dto.CreateWarehouseRequest{Code: "nor", Name: "Norte"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	wh := decode[dto.WarehouseResponse](t, raw)
	assert.Equal(t, "NOR", wh.Code)
	assert.True(t, wh.Active)

	status, _ = call(t, app, http.MethodPost, "/api/warehouses", apphttp.RoleAdmin, dto.CreateWarehouseRequest{Code: "NOR", Name: "Otra"})
	assert.Equal(t, http.StatusConflict, status)

	inactive := false
	status, raw = call(t, app, http.MethodPut, "/api/warehouses/"+wh.ID, apphttp.RoleAdmin, dto.UpdateWarehouseRequest{Active: &inactive})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.False(t, decode[dto.WarehouseResponse](t, raw).Active)

	status, raw = call(t, app, http.MethodGet, "/api/items?type=FINISHED_GOOD", apphttp.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.ItemListResponse](t, raw).Items, 1)
}

func TestRouter_ReversionDeTrasladoPorReferencia(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodPost, "/api/inventory/movements", apphttp.RoleBodeguero, movementBody("IN", whMain, 10))
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests", apphttp.RoleBodeguero, dto.CreateTransferRequest{
		FromWarehouseID: whMain,
		ToWarehouseID:   whShop,
		Lines: []dto.TransferLineRequest{
			{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, Quantity: decimal.NewFromInt(3)},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[dto.TransferRequestResponse](t, raw)
	status, raw = call(t, app, http.MethodPost, "/api/transfer-requests/"+created.ID+"/approve", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	ref := decode[dto.TransferRequestResponse](t, raw).ReferenceNo
	require.NotEmpty(t, ref)

	path := "/api/inventory/transfers/" + ref + "/reverse"
	status, _ = call(t, app, http.MethodPost, path, apphttp.RoleBodeguero, dto.ReasonRequest{Reason: "x"})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, app, http.MethodPost, path, apphttp.RoleAdmin, dto.ReasonRequest{Reason: "error de digitación"})
	require.Equal(t, http.StatusNoContent, status, string(raw))
	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, app, whMain)))
	assert.True(t, balanceOf(t, app, whShop).IsZero())

	status, raw = call(t, app, http.MethodPost, path, apphttp.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_REVERSED", decode[dto.ErrorResponse](t, raw).Code)
}

package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// InventoryHandler saldos, libro de movimientos y correcciones (protegido).
type InventoryHandler struct {
	poster  *inventory.MovementPoster
	queries *inventory.QueryService
	log     zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(poster *inventory.MovementPoster, queries *inventory.QueryService, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{poster: poster, queries: queries, log: log}
}

// balanceKeyParam lee la llave compuesta "bodega:tipo:item" del path.
func balanceKeyParam(c *fiber.Ctx) (entity.BalanceKey, error) {
	raw, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return entity.BalanceKey{}, domain.Invalid("key", "no es válida")
	}
	key, err := entity.ParseBalanceKey(raw)
	if err != nil {
		return entity.BalanceKey{}, domain.Invalid("key", err.Error())
	}
	return key, nil
}

// GetBalances godoc
// @Summary      Listar saldos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega; vacío = todas"
// @Success      200  {object}  dto.BalanceListResponse
// @Router       /api/inventory/balances [get]
func (h *InventoryHandler) GetBalances(c *fiber.Ctx) error {
	list, err := h.queries.GetBalances(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.BalanceResponse, 0, len(list))
	for _, b := range list {
		items = append(items, toBalanceResponse(b))
	}
	return c.JSON(dto.BalanceListResponse{Items: items, Total: len(items)})
}

// GetBalance godoc
// @Summary      Saldo de una llave bodega:tipo:item
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        key  path  string  true  "bodega:tipo:item"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{key} [get]
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	key, err := balanceKeyParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	b, err := h.queries.GetBalance(c.UserContext(), key)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toBalanceResponse(b))
}

// SetMinStock godoc
// @Summary      Configurar stock mínimo
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SetMinStockRequest  true  "llave y umbral"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/min-stock [put]
func (h *InventoryHandler) SetMinStock(c *fiber.Ctx) error {
	var in dto.SetMinStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	key := entity.BalanceKey{WarehouseID: in.WarehouseID, ItemType: in.ItemType, ItemID: in.ItemID}
	b, err := h.poster.SetMinStock(c.UserContext(), key, in.MinStock)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toBalanceResponse(b))
}

// PurgeBalance godoc
// @Summary      Purgar un saldo en cero
// @Tags         inventory
// @Security     Bearer
// @Param        key  path  string  true  "bodega:tipo:item"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{key} [delete]
func (h *InventoryHandler) PurgeBalance(c *fiber.Ctx) error {
	key, err := balanceKeyParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.poster.PurgeBalance(c.UserContext(), key, GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListMovements godoc
// @Summary      Consultar libro de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        item_type     query  string  false  "FINISHED_GOOD | RAW_MATERIAL"
// @Param        item_id       query  string  false  "Ítem"
// @Param        type          query  string  false  "IN | OUT | ADJUSTMENT | TRANSFER"
// @Param        reference_no  query  string  false  "Referencia"
// @Param        limit         query  int     false  "Límite"  default(100)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	filter := entity.MovementFilter{
		WarehouseID: c.Query("warehouse_id"),
		ItemType:    c.Query("item_type"),
		ItemID:      c.Query("item_id"),
		Type:        c.Query("type"),
		ReferenceNo: c.Query("reference_no"),
		Limit:       c.QueryInt("limit", 100),
		Offset:      c.QueryInt("offset", 0),
	}
	list, err := h.queries.GetTransactions(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, toMovementResponse(m))
	}
	limit, offset := pageParams(filter.Limit, filter.Offset)
	return c.JSON(dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// PostMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PostMovementRequest  true  "warehouse_id (origen en TRANSFER), to_warehouse_id, item, type, quantity"
// @Success      201   {object}  dto.PostMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) PostMovement(c *fiber.Ctx) error {
	var in dto.PostMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	id, err := h.poster.PostMovement(c.UserContext(), inventory.PostMovementInput{
		WarehouseID:    in.WarehouseID,
		ToWarehouseID:  in.ToWarehouseID,
		ItemType:       in.ItemType,
		ItemID:         in.ItemID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		AllowNegative:  in.AllowNegative,
		ReferenceNo:    in.ReferenceNo,
		IdempotencyKey: in.IdempotencyKey,
		Note:           in.Note,
		CreatedBy:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PostMovementResponse{MovementID: id})
}

// UpdateMovement godoc
// @Summary      Corregir la cantidad de un movimiento (no traslados)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del movimiento"
// @Param        body  body  dto.UpdateMovementRequest  true  "nueva cantidad"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [put]
func (h *InventoryHandler) UpdateMovement(c *fiber.Ctx) error {
	var in dto.UpdateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	m, err := h.poster.UpdateMovement(c.UserContext(), c.Params("id"), in.Quantity, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toMovementResponse(m))
}

// DeleteMovement godoc
// @Summary      Eliminar un movimiento revirtiendo su efecto
// @Tags         inventory
// @Security     Bearer
// @Param        id  path  string  true  "ID del movimiento"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [delete]
func (h *InventoryHandler) DeleteMovement(c *fiber.Ctx) error {
	if err := h.poster.DeleteMovement(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteTransfer godoc
// @Summary      Eliminar un traslado por referencia (ambas piernas)
// @Tags         inventory
// @Security     Bearer
// @Param        reference  path  string  true  "Referencia TRF-000001"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{reference} [delete]
func (h *InventoryHandler) DeleteTransfer(c *fiber.Ctx) error {
	ref, err := url.PathUnescape(c.Params("reference"))
	if err != nil || ref == "" {
		return writeError(c, h.log, domain.Invalid("reference", "es requerida"))
	}
	if err := h.poster.DeleteTransferByReference(c.UserContext(), ref, GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReverseTransfer godoc
// @Summary      Revertir un traslado con pares compensatorios
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Param        reference  path  string             true   "Referencia TRF-000001"
// @Param        body       body  dto.ReasonRequest  false  "motivo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers/{reference}/reverse [post]
func (h *InventoryHandler) ReverseTransfer(c *fiber.Ctx) error {
	ref, err := url.PathUnescape(c.Params("reference"))
	if err != nil || ref == "" {
		return writeError(c, h.log, domain.Invalid("reference", "es requerida"))
	}
	var in dto.ReasonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		if err := dto.Validate(in); err != nil {
			return writeError(c, h.log, err)
		}
	}
	if err := h.poster.ReverseTransferByReference(c.UserContext(), ref, GetUserID(c), in.Reason); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

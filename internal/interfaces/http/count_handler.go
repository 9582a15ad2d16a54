package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
)

// CountHandler sesiones de conteo físico (protegido).
type CountHandler struct {
	counts *inventory.CountReconciliation
	log    zerolog.Logger
}

// NewCountHandler construye el handler.
func NewCountHandler(counts *inventory.CountReconciliation, log zerolog.Logger) *CountHandler {
	return &CountHandler{counts: counts, log: log}
}

// Create godoc
// @Summary      Abrir sesión de conteo con snapshot de saldos
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCountSessionRequest  true  "bodega"
// @Success      201   {object}  dto.CountSessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/count-sessions [post]
func (h *CountHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCountSessionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.counts.CreateSession(c.UserContext(), in.WarehouseID, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCountResponse(s))
}

// List godoc
// @Summary      Listar sesiones de una bodega
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  true   "Bodega"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.CountSessionListResponse
// @Router       /api/count-sessions [get]
func (h *CountHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	list, err := h.counts.ListSessions(c.UserContext(), c.Query("warehouse_id"), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.CountSessionResponse, 0, len(list))
	for _, s := range list {
		items = append(items, toCountResponse(s))
	}
	return c.JSON(dto.CountSessionListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// GetByID godoc
// @Summary      Obtener sesión de conteo
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountSessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id} [get]
func (h *CountHandler) GetByID(c *fiber.Ctx) error {
	s, err := h.counts.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toCountResponse(s))
}

// SaveLines godoc
// @Summary      Guardar cantidades contadas
// @Tags         count-sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la sesión"
// @Param        body  body  dto.SaveCountLinesRequest  true  "líneas contadas"
// @Success      200   {object}  dto.CountSessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/lines [put]
func (h *CountHandler) SaveLines(c *fiber.Ctx) error {
	var in dto.SaveCountLinesRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	lines := make([]inventory.CountedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.CountedLine{ItemType: l.ItemType, ItemID: l.ItemID, CountedQty: l.CountedQty})
	}
	s, err := h.counts.SaveLines(c.UserContext(), c.Params("id"), lines, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toCountResponse(s))
}

// Approve godoc
// @Summary      Aprobar sesión: publica un ajuste por diferencia
// @Tags         count-sessions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/count-sessions/{id}/approve [post]
func (h *CountHandler) Approve(c *fiber.Ctx) error {
	s, err := h.counts.ApproveSession(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toCountResponse(s))
}

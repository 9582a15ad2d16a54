package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// TransferHandler flujo de solicitudes de traslado (protegido).
type TransferHandler struct {
	workflow *inventory.TransferWorkflow
	log      zerolog.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(workflow *inventory.TransferWorkflow, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{workflow: workflow, log: log}
}

// Create godoc
// @Summary      Crear solicitud de traslado (sin efecto en saldos)
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "origen, destino y líneas"
// @Success      201   {object}  dto.TransferRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	lines := make([]entity.TransferLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, entity.TransferLine{ItemType: l.ItemType, ItemID: l.ItemID, Quantity: l.Quantity})
	}
	req, err := h.workflow.CreateRequest(c.UserContext(), inventory.CreateTransferInput{
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Lines:           lines,
		Note:            in.Note,
		CreatedBy:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(req))
}

// List godoc
// @Summary      Listar solicitudes de traslado
// @Tags         transfer-requests
// @Security     Bearer
// @Produce      json
// @Param        status        query  string  false  "pending | approved | rejected | cancelled"
// @Param        warehouse_id  query  string  false  "Bodega origen o destino"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransferRequestListResponse
// @Router       /api/transfer-requests [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	list, err := h.workflow.ListRequests(c.UserContext(), entity.TransferRequestFilter{
		Status:      c.Query("status"),
		WarehouseID: c.Query("warehouse_id"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.TransferRequestResponse, 0, len(list))
	for _, r := range list {
		items = append(items, toTransferResponse(r))
	}
	return c.JSON(dto.TransferRequestListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// GetByID godoc
// @Summary      Obtener solicitud de traslado
// @Tags         transfer-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.TransferRequestResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.workflow.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(req))
}

// Approve godoc
// @Summary      Aprobar solicitud: publica todas las líneas como traslados
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true   "ID de la solicitud"
// @Param        body  body  dto.ApproveTransferRequest  false  "allow_negative_source (solo bodegas exentas)"
// @Success      200   {object}  dto.TransferRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	var in dto.ApproveTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	req, err := h.workflow.ApproveRequest(c.UserContext(), c.Params("id"), GetUserID(c), inventory.ApproveOptions{
		AllowNegativeSource: in.AllowNegativeSource,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(req))
}

// Reject godoc
// @Summary      Rechazar solicitud pendiente
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID de la solicitud"
// @Param        body  body  dto.ReasonRequest  false  "motivo"
// @Success      200   {object}  dto.TransferRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	in, err := reason(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.workflow.RejectRequest(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(req))
}

// Cancel godoc
// @Summary      Cancelar solicitud aprobada revirtiendo sus traslados
// @Tags         transfer-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true   "ID de la solicitud"
// @Param        body  body  dto.ReasonRequest  false  "motivo"
// @Success      200   {object}  dto.TransferRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfer-requests/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	in, err := reason(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	req, err := h.workflow.CancelRequest(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransferResponse(req))
}

// reason lee el motivo opcional del cuerpo.
func reason(c *fiber.Ctx) (dto.ReasonRequest, error) {
	var in dto.ReasonRequest
	if len(c.Body()) == 0 {
		return in, nil
	}
	if err := c.BodyParser(&in); err != nil {
		return in, domain.Invalid("body", "cuerpo inválido")
	}
	return in, dto.Validate(in)
}

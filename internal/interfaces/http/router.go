package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Poster      *inventory.MovementPoster
	Queries     *inventory.QueryService
	Transfers   *inventory.TransferWorkflow
	Counts      *inventory.CountReconciliation
	WarehouseUC *usecase.WarehouseUseCase
	ItemUC      *usecase.ItemUseCase
	JWTSecret   string
	Log         zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token; las escrituras además un rol.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AccessLog(deps.Log), AuthMiddleware(deps.JWTSecret))

	admin := RequireRole(RoleAdmin)
	operator := RequireRole(RoleAdmin, RoleBodeguero)

	// Saldos, libro y correcciones
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Poster, deps.Queries, deps.Log)
	inv.Get("/balances", inventoryHandler.GetBalances)
	inv.Put("/balances/min-stock", operator, inventoryHandler.SetMinStock)
	inv.Get("/balances/:key", inventoryHandler.GetBalance)
	inv.Delete("/balances/:key", admin, inventoryHandler.PurgeBalance)
	inv.Get("/movements", inventoryHandler.ListMovements)
	inv.Post("/movements", operator, inventoryHandler.PostMovement)
	inv.Put("/movements/:id", admin, inventoryHandler.UpdateMovement)
	inv.Delete("/movements/:id", admin, inventoryHandler.DeleteMovement)
	inv.Delete("/transfers/:reference", admin, inventoryHandler.DeleteTransfer)
	inv.Post("/transfers/:reference/reverse", admin, inventoryHandler.ReverseTransfer)

	// Solicitudes de traslado
	transfers := api.Group("/transfer-requests")
	transferHandler := NewTransferHandler(deps.Transfers, deps.Log)
	transfers.Post("/", operator, transferHandler.Create)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/approve", admin, transferHandler.Approve)
	transfers.Post("/:id/reject", admin, transferHandler.Reject)
	transfers.Post("/:id/cancel", admin, transferHandler.Cancel)

	// Conteos físicos
	counts := api.Group("/count-sessions")
	countHandler := NewCountHandler(deps.Counts, deps.Log)
	counts.Post("/", operator, countHandler.Create)
	counts.Get("/", countHandler.List)
	counts.Get("/:id", countHandler.GetByID)
	counts.Put("/:id/lines", operator, countHandler.SaveLines)
	counts.Post("/:id/approve", admin, countHandler.Approve)

	// Directorio de bodegas
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC, deps.Log)
	warehouses.Post("/", admin, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", admin, warehouseHandler.Update)

	// Catálogo de ítems
	items := api.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC, deps.Log)
	items.Post("/", admin, itemHandler.Create)
	items.Get("/", itemHandler.List)
	items.Get("/:id", itemHandler.GetByID)
}

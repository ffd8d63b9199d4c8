package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/backoffice-api/internal/application/auth"
	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/application/order"
	"github.com/jhoicas/backoffice-api/internal/application/usecase"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	ProductUC   *usecase.ProductUseCase
	Engine      *inventory.AllocationEngine
	Ledger      *inventory.LedgerUseCase
	Recorder    *inventory.MovementRecorder
	Monitor     *inventory.ReorderMonitor
	Coordinator *order.FulfillmentCoordinator
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	const (
		admin     = entity.RoleAdmin
		bodeguero = entity.RoleBodeguero
		vendedor  = entity.RoleVendedor
	)
	api := app.Group("/api")
	authMW := AuthMiddleware(deps.JWTSecret)

	// Auth: login público, alta de usuarios solo admin
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/register", authMW, RequireRole(admin), authHandler.Register)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", authMW)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", RequireRole(admin), productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Inventory: las rutas fijas van antes de /:product_id
	inv := protected.Group("/inventory")
	invHandler := NewInventoryHandler(deps.Engine, deps.Ledger, deps.Recorder, deps.Monitor)
	writers := RequireRole(admin, bodeguero)
	inv.Get("/", invHandler.List)
	inv.Get("/stats", invHandler.Stats)
	inv.Get("/alerts", invHandler.Alerts)
	inv.Get("/replenishment-list", writers, invHandler.ReplenishmentList)
	inv.Get("/movements", invHandler.Movements)
	inv.Get("/movements/export", writers, invHandler.ExportMovements)
	inv.Post("/records", writers, invHandler.CreateRecord)
	inv.Post("/adjust", writers, invHandler.Adjust)
	inv.Post("/allocate", writers, invHandler.Allocate)
	inv.Post("/release", writers, invHandler.Release)
	inv.Post("/check-availability", invHandler.CheckAvailability)
	inv.Get("/:product_id", invHandler.Get)

	// Orders
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Coordinator)
	orders.Post("/", RequireRole(admin, vendedor), orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Get("/:id/history", orderHandler.History)
	orders.Get("/:id/packing-slip", RequireRole(admin, bodeguero), orderHandler.PackingSlip)
	orders.Post("/:id/cancel", RequireRole(admin, vendedor), orderHandler.Cancel)
	orders.Patch("/:id/status", RequireRole(admin, bodeguero), orderHandler.UpdateStatus)
}

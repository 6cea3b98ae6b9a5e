package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/Bodegas-api/internal/application/catalog"
	"github.com/jhoicas/Bodegas-api/internal/application/history"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/application/usecase"
)

// RouterDeps dependencias para el router. Metrics y MetricsHandler son opcionales.
type RouterDeps struct {
	WarehouseUC    *usecase.WarehouseUseCase
	Engine         *inventory.TransferUseCase
	Catalog        *catalog.Service
	Histories      *history.Recorder
	Metrics        RequestMetrics
	MetricsHandler nethttp.Handler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
	}
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")

	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC, deps.Engine, deps.Histories)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", warehouseHandler.Update)
	warehouses.Get("/:id/show", warehouseHandler.Show)
	warehouses.Patch("/:id/status", warehouseHandler.ChangeStatus)
	warehouses.Get("/:id/capacity", warehouseHandler.Capacity)
	warehouses.Get("/:id/products", warehouseHandler.Products)
	warehouses.Get("/:id/histories", warehouseHandler.Histories)

	// Las rutas fijas van antes de /:id para que no las capture el parámetro.
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.Engine, deps.Catalog, deps.Histories)
	products.Get("/resources", productHandler.Resources)
	products.Post("/", productHandler.Create)
	products.Post("/transfer", productHandler.TransferBatch)
	products.Post("/cart/transfer", productHandler.TransferCart)
	products.Post("/cart/send", productHandler.SendCart)
	products.Get("/:id", productHandler.GetByID)
	products.Get("/:id/histories", productHandler.Histories)
	products.Post("/:id/transfer", productHandler.Transfer)
	products.Post("/:id/send", productHandler.Send)
}

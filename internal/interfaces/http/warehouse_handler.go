package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Bodegas-api/internal/application/dto"
	"github.com/jhoicas/Bodegas-api/internal/application/history"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/application/usecase"
)

// WarehouseHandler maneja las peticiones HTTP para Warehouse.
type WarehouseHandler struct {
	uc        *usecase.WarehouseUseCase
	engine    *inventory.TransferUseCase
	histories *history.Recorder
}

// NewWarehouseHandler construye el handler.
func NewWarehouseHandler(uc *usecase.WarehouseUseCase, engine *inventory.TransferUseCase, histories *history.Recorder) *WarehouseHandler {
	return &WarehouseHandler{uc: uc, engine: engine, histories: histories}
}

// Create godoc
// @Summary      Crear bodega
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateWarehouseRequest  true  "Datos de la bodega"
// @Success      201   {object}  dto.WarehouseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/warehouses [post]
func (h *WarehouseHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateWarehouseRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if strings.TrimSpace(in.Name) == "" || in.MaximumCapacity < 1 {
		return badRequest(c, "VALIDATION", "name y maximum_capacity son requeridos")
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener bodega por ID
// @Tags         warehouses
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id} [get]
func (h *WarehouseHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar bodegas con su ocupación
// @Tags         warehouses
// @Produce      json
// @Success      200  {object}  dto.WarehouseListResponse
// @Router       /api/warehouses [get]
func (h *WarehouseHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar nombre o capacidad
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la bodega"
// @Param        body  body  dto.UpdateWarehouseRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.WarehouseResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.CapacityErrorResponse
// @Router       /api/warehouses/{id} [put]
func (h *WarehouseHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateWarehouseRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Show godoc
// @Summary      Detalle de bodega con productos e historial
// @Tags         warehouses
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.WarehouseDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/show [get]
func (h *WarehouseHandler) Show(c *fiber.Ctx) error {
	out, err := h.uc.Show(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ChangeStatus godoc
// @Summary      Cambiar estado; al cerrar se trasladan los productos a transfer_warehouse_id
// @Tags         warehouses
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la bodega"
// @Param        body  body  dto.ChangeStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.WarehouseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/status [patch]
func (h *WarehouseHandler) ChangeStatus(c *fiber.Ctx) error {
	var in dto.ChangeStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Status == "" {
		return badRequest(c, "VALIDATION", "status es requerido")
	}
	out, err := h.uc.ChangeStatus(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Capacity godoc
// @Summary      Ocupación actual
// @Tags         warehouses
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.CapacityResponse
// @Router       /api/warehouses/{id}/capacity [get]
func (h *WarehouseHandler) Capacity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.uc.GetByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	n, err := h.engine.GetCurrentCapacity(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CapacityResponse{WarehouseID: id, CapacityUtilization: n})
}

// Products godoc
// @Summary      Productos de la bodega
// @Tags         warehouses
// @Produce      json
// @Param        id   path   string  true   "ID de la bodega"
// @Param        all  query  bool    false  "Incluir enviados"
// @Success      200  {object}  dto.ProductListResponse
// @Router       /api/warehouses/{id}/products [get]
func (h *WarehouseHandler) Products(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.uc.GetByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	list := h.engine.ListByWarehouse
	if c.QueryBool("all", false) {
		list = h.engine.ListByWarehouseAll
	}
	products, err := list(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductListResponse(products))
}

// Histories godoc
// @Summary      Historial de la bodega (incluye traslados desde o hacia ella)
// @Tags         warehouses
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.HistoryListResponse
// @Router       /api/warehouses/{id}/histories [get]
func (h *WarehouseHandler) Histories(c *fiber.Ctx) error {
	views, err := h.histories.GetHistoriesByWarehouse(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewHistoryListResponse(views))
}

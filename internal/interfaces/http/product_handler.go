package http

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Bodegas-api/internal/application/catalog"
	"github.com/jhoicas/Bodegas-api/internal/application/dto"
	"github.com/jhoicas/Bodegas-api/internal/application/history"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// ProductHandler catálogo, llegadas, traslados y envíos de productos.
type ProductHandler struct {
	engine    *inventory.TransferUseCase
	catalog   *catalog.Service
	histories *history.Recorder
}

// NewProductHandler construye el handler.
func NewProductHandler(engine *inventory.TransferUseCase, catalog *catalog.Service, histories *history.Recorder) *ProductHandler {
	return &ProductHandler{engine: engine, catalog: catalog, histories: histories}
}

// Resources godoc
// @Summary      Catálogo de productos y sus categorías
// @Description  La primera consulta siembra el catálogo desde la API externa si está vacío.
// @Tags         products
// @Produce      json
// @Success      200  {object}  dto.CatalogResponse
// @Router       /api/products/resources [get]
func (h *ProductHandler) Resources(c *fiber.Ctx) error {
	res, err := h.catalog.GetResources(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewCatalogResponse(res.Categories, res.Items))
}

// Create godoc
// @Summary      Registrar llegada de unidades a una bodega
// @Description  options: id de ítem de catálogo -> cantidad. Cada unidad pasa por el control de capacidad; ante un rechazo las anteriores quedan creadas.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductsRequest  true  "Bodega y cantidades por ítem"
// @Success      201   {object}  dto.ProductListResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.CapacityErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductsRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.WarehouseID == "" || len(in.Options) == 0 {
		return badRequest(c, "VALIDATION", "warehouse_id y options son requeridos")
	}
	for _, amount := range in.Options {
		if amount < 1 {
			return badRequest(c, "VALIDATION", "cada cantidad debe ser mayor a 0")
		}
	}

	created, err := h.engine.CreateFromCatalog(c.UserContext(), in.WarehouseID, in.Options)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewProductListResponse(created))
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.engine.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductResponse(p))
}

// Histories godoc
// @Summary      Historial de un producto
// @Tags         products
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.HistoryListResponse
// @Router       /api/products/{id}/histories [get]
func (h *ProductHandler) Histories(c *fiber.Ctx) error {
	p, err := h.engine.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	views, err := h.histories.GetHistories(c.UserContext(), []*entity.Product{p})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewHistoryListResponse(views))
}

// Transfer godoc
// @Summary      Trasladar un producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del producto"
// @Param        body  body  dto.TransferProductRequest  true  "Bodega destino"
// @Success      200   {object}  dto.ProductResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.CapacityErrorResponse
// @Router       /api/products/{id}/transfer [post]
func (h *ProductHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.WarehouseID == "" {
		return badRequest(c, "VALIDATION", "warehouse_id es requerido")
	}
	p, err := h.engine.TransferOne(c.UserContext(), c.Params("id"), in.WarehouseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductResponse(p))
}

// TransferBatch godoc
// @Summary      Trasladar varios productos con un único control de capacidad
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferBatchRequest  true  "Destino y productos"
// @Success      200   {object}  dto.ProductListResponse
// @Failure      409   {object}  dto.CapacityErrorResponse
// @Router       /api/products/transfer [post]
func (h *ProductHandler) TransferBatch(c *fiber.Ctx) error {
	var in dto.TransferBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.WarehouseID == "" || len(in.ProductIDs) == 0 {
		return badRequest(c, "VALIDATION", "warehouse_id y product_ids son requeridos")
	}
	refs := make([]*entity.Product, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		refs = append(refs, &entity.Product{ID: id})
	}
	moved, err := h.engine.TransferBatch(c.UserContext(), refs, in.WarehouseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductListResponse(moved))
}

// TransferCart godoc
// @Summary      Trasladar por carrito (producto de referencia -> cantidad de similares)
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CartRequest  true  "Destino y carrito"
// @Success      200   {object}  dto.ProductListResponse
// @Failure      409   {object}  dto.CapacityErrorResponse
// @Router       /api/products/cart/transfer [post]
func (h *ProductHandler) TransferCart(c *fiber.Ctx) error {
	var in dto.CartRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.WarehouseID == "" || len(in.Items) == 0 {
		return badRequest(c, "VALIDATION", "warehouse_id e items son requeridos")
	}
	ids := make([]string, 0, len(in.Items))
	for id := range in.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var moved []*entity.Product
	for _, id := range ids {
		products, err := h.engine.TransferSimilar(c.UserContext(), id, in.Items[id], in.WarehouseID)
		if err != nil {
			return respondError(c, err)
		}
		moved = append(moved, products...)
	}
	return c.JSON(dto.NewProductListResponse(moved))
}

// Send godoc
// @Summary      Enviar un producto (libera su lugar de inmediato)
// @Tags         products
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/send [post]
func (h *ProductHandler) Send(c *fiber.Ctx) error {
	p, err := h.engine.Send(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductResponse(p))
}

// SendCart godoc
// @Summary      Enviar por carrito
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CartRequest  true  "Carrito"
// @Success      200   {object}  dto.ProductListResponse
// @Router       /api/products/cart/send [post]
func (h *ProductHandler) SendCart(c *fiber.Ctx) error {
	var in dto.CartRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if len(in.Items) == 0 {
		return badRequest(c, "VALIDATION", "items es requerido")
	}
	sent, err := h.engine.SendCart(c.UserContext(), in.Items)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewProductListResponse(sent))
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// CreateProductsRequest llegada de unidades a una bodega: id de ítem de catálogo -> cantidad.
type CreateProductsRequest struct {
	WarehouseID string         `json:"warehouse_id" validate:"required"`
	Options     map[string]int `json:"options" validate:"required,min=1"`
}

// TransferProductRequest traslado de un producto a otra bodega.
type TransferProductRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
}

// TransferBatchRequest traslado de varios productos en un solo chequeo de capacidad.
type TransferBatchRequest struct {
	WarehouseID string   `json:"warehouse_id" validate:"required"`
	ProductIDs  []string `json:"product_ids" validate:"required,min=1"`
}

// CartRequest carrito: id de producto de referencia -> cantidad de unidades similares.
// WarehouseID solo aplica al trasladar.
type CartRequest struct {
	WarehouseID string         `json:"warehouse_id"`
	Items       map[string]int `json:"items" validate:"required,min=1"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	WarehouseID string          `json:"warehouse_id"`
	Status      string          `json:"status"`
	CatalogID   int             `json:"catalog_id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse listado de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
}

// CapacityResponse ocupación actual de una bodega.
type CapacityResponse struct {
	WarehouseID         string `json:"warehouse_id"`
	CapacityUtilization int    `json:"capacity_utilization"`
}

// NewProductResponse mapea un producto.
func NewProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		WarehouseID: p.WarehouseID,
		Status:      p.Status,
		CatalogID:   p.CatalogID,
		Title:       p.Title,
		Category:    p.Category,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProductListResponse mapea una lista de productos.
func NewProductListResponse(list []*entity.Product) ProductListResponse {
	items := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, NewProductResponse(p))
	}
	return ProductListResponse{Items: items}
}

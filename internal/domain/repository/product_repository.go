package repository

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// ProductFilter criterios de búsqueda de productos. Campos vacíos no filtran.
type ProductFilter struct {
	WarehouseID string
	Status      string
	CatalogID   *int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID devuelve (nil, nil) si el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// Find devuelve los productos que cumplen el filtro en orden de creación; limit <= 0 no limita.
	Find(ctx context.Context, filter ProductFilter, limit int) ([]*entity.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	// UpdateWarehouse y MarkSent solo aplican si el producto sigue en tienda en la bodega indicada:
	// ErrNotFound si no existe, ErrConflict si ya se movió o se envió.
	UpdateWarehouse(ctx context.Context, productID, fromWarehouseID, toWarehouseID string) error
	MarkSent(ctx context.Context, productID, warehouseID string) error
}

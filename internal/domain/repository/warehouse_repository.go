package repository

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
// GetByID devuelve (nil, nil) si la bodega no existe.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	Update(ctx context.Context, warehouse *entity.Warehouse) error
	// ListWithCapacity agrega el conteo de productos en tienda y la capacidad disponible de cada bodega.
	ListWithCapacity(ctx context.Context) ([]entity.WarehouseCapacity, error)
}

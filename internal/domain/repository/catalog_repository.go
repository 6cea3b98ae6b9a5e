package repository

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// CatalogRepository define el puerto de persistencia del catálogo de productos.
// GetByID devuelve (nil, nil) si el ítem no existe.
type CatalogRepository interface {
	// CreateMany inserta los ítems; los que repiten CatalogID se ignoran.
	CreateMany(ctx context.Context, items []*entity.CatalogItem) error
	GetByID(ctx context.Context, id string) (*entity.CatalogItem, error)
	// List devuelve el catálogo en orden de alta.
	List(ctx context.Context) ([]*entity.CatalogItem, error)
	Count(ctx context.Context) (int, error)
}

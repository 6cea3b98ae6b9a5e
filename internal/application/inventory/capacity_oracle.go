package inventory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Bodegas-api/internal/domain/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

// CapacityOracle decide si una bodega admite n unidades más leyendo el conteo actual en tienda.
// No guarda nada entre llamadas.
type CapacityOracle struct {
	warehouses repository.WarehouseRepository
	products   repository.ProductRepository
}

// NewCapacityOracle construye el oráculo sobre los repositorios compartidos.
func NewCapacityOracle(warehouses repository.WarehouseRepository, products repository.ProductRepository) *CapacityOracle {
	return &CapacityOracle{warehouses: warehouses, products: products}
}

// CountInStore cuenta los productos en tienda de la bodega.
func (o *CapacityOracle) CountInStore(ctx context.Context, warehouseID string) (int, error) {
	return countInStore(ctx, o.products, warehouseID)
}

// CheckCapacity rechaza con *domain.CapacityError si la bodega no tiene requested unidades libres.
func (o *CapacityOracle) CheckCapacity(ctx context.Context, warehouseID string, requested int) error {
	w, err := o.warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return domain.Persistence("obtener bodega", err)
	}
	if w == nil {
		return domain.ErrNotFound
	}
	return o.check(ctx, o.products, w, requested)
}

// check evalúa la regla contra el repositorio dado (el compartido o el de una tx).
func (o *CapacityOracle) check(ctx context.Context, products repository.ProductRepository, w *entity.Warehouse, requested int) error {
	inStore, err := countInStore(ctx, products, w.ID)
	if err != nil {
		return err
	}
	return domaininv.CheckCapacity(w.ID, w.MaximumCapacity, inStore, requested)
}

func countInStore(ctx context.Context, products repository.ProductRepository, warehouseID string) (int, error) {
	n, err := products.Count(ctx, repository.ProductFilter{
		WarehouseID: warehouseID,
		Status:      entity.ProductStatusInStore,
	})
	if err != nil {
		return 0, domain.Persistence("contar productos en tienda", err)
	}
	return n, nil
}

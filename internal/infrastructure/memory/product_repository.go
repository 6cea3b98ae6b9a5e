package memory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos en memoria; Find respeta el orden de creación.
type ProductRepo struct {
	s *Store
}

// Create guarda una copia del producto.
func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *p
	r.s.products[p.ID] = &cp
	r.s.productOrder = append(r.s.productOrder, p.ID)
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Find productos que cumplen el filtro; limit <= 0 no limita.
func (r *ProductRepo) Find(_ context.Context, filter repository.ProductFilter, limit int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Product
	for _, id := range r.s.productOrder {
		p := r.s.products[id]
		if !matchProduct(p, filter) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count cantidad de productos que cumplen el filtro.
func (r *ProductRepo) Count(_ context.Context, filter repository.ProductFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.products {
		if matchProduct(p, filter) {
			n++
		}
	}
	return n, nil
}

// UpdateWarehouse reasigna la bodega dueña del producto si sigue en tienda en from.
func (r *ProductRepo) UpdateWarehouse(_ context.Context, productID, fromWarehouseID, toWarehouseID string) error {
	return r.updateInStore(productID, fromWarehouseID, func(p *entity.Product) { p.WarehouseID = toWarehouseID })
}

// MarkSent marca el producto como enviado si sigue en tienda en la bodega.
func (r *ProductRepo) MarkSent(_ context.Context, productID, warehouseID string) error {
	return r.updateInStore(productID, warehouseID, func(p *entity.Product) { p.Status = entity.ProductStatusSent })
}

func (r *ProductRepo) updateInStore(id, warehouseID string, apply func(p *entity.Product)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !p.InStore() || p.WarehouseID != warehouseID {
		return domain.ErrConflict
	}
	apply(p)
	return nil
}

func matchProduct(p *entity.Product, f repository.ProductFilter) bool {
	if f.WarehouseID != "" && p.WarehouseID != f.WarehouseID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.CatalogID != nil && p.CatalogID != *f.CatalogID {
		return false
	}
	return true
}

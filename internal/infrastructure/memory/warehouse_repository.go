package memory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Bodegas-api/internal/domain/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo bodegas en memoria. El nombre es único sin distinguir mayúsculas.
type WarehouseRepo struct {
	s *Store
}

// Create guarda una copia de la bodega; ErrDuplicate si el id o el nombre ya existen.
func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.warehouses[w.ID]; ok {
		return domain.ErrDuplicate
	}
	key := r.s.normalize(w.Name)
	if _, ok := r.s.names[key]; ok {
		return domain.ErrDuplicate
	}
	cp := *w
	r.s.warehouses[w.ID] = &cp
	r.s.warehouseOrder = append(r.s.warehouseOrder, w.ID)
	r.s.names[key] = w.ID
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// Update reemplaza nombre, estado y capacidad. ErrNotFound si no existe.
func (r *WarehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.warehouses[w.ID]
	if !ok {
		return domain.ErrNotFound
	}
	oldKey := r.s.normalize(current.Name)
	newKey := r.s.normalize(w.Name)
	if newKey != oldKey {
		if _, taken := r.s.names[newKey]; taken {
			return domain.ErrDuplicate
		}
		delete(r.s.names, oldKey)
		r.s.names[newKey] = w.ID
	}
	cp := *w
	cp.CreatedAt = current.CreatedAt
	r.s.warehouses[w.ID] = &cp
	return nil
}

// ListWithCapacity cuenta los productos en tienda de cada bodega en la misma lectura.
func (r *WarehouseRepo) ListWithCapacity(_ context.Context) ([]entity.WarehouseCapacity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	used := make(map[string]int, len(r.s.warehouses))
	for _, p := range r.s.products {
		if p.InStore() {
			used[p.WarehouseID]++
		}
	}
	out := make([]entity.WarehouseCapacity, 0, len(r.s.warehouseOrder))
	for _, id := range r.s.warehouseOrder {
		cp := *r.s.warehouses[id]
		out = append(out, entity.WarehouseCapacity{
			Warehouse:           &cp,
			CapacityUtilization: used[id],
			AvailableCapacity:   domaininv.Available(cp.MaximumCapacity, used[id]),
		})
	}
	return out, nil
}

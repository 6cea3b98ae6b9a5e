package memory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo catálogo en memoria.
type CatalogRepo struct {
	s *Store
}

// CreateMany guarda copias de los ítems; un CatalogID ya presente se ignora.
func (r *CatalogRepo) CreateMany(_ context.Context, items []*entity.CatalogItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		if _, ok := r.s.catalogKeys[item.CatalogID]; ok {
			continue
		}
		cp := *item
		r.s.catalog[item.ID] = &cp
		r.s.catalogKeys[item.CatalogID] = item.ID
		r.s.catalogOrder = append(r.s.catalogOrder, item.ID)
	}
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *CatalogRepo) GetByID(_ context.Context, id string) (*entity.CatalogItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.catalog[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

// List ítems en orden de alta.
func (r *CatalogRepo) List(_ context.Context) ([]*entity.CatalogItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.CatalogItem, 0, len(r.s.catalogOrder))
	for _, id := range r.s.catalogOrder {
		cp := *r.s.catalog[id]
		out = append(out, &cp)
	}
	return out, nil
}

// Count cantidad de ítems.
func (r *CatalogRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.catalog), nil
}

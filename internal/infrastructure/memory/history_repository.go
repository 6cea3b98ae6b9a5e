package memory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo historial solo-inserción en memoria.
type HistoryRepo struct {
	s *Store
}

// Create agrega el registro al final.
func (r *HistoryRepo) Create(_ context.Context, h *entity.History) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *h
	r.s.histories = append(r.s.histories, &cp)
	return nil
}

// Find recorre de atrás hacia adelante: el orden de inserción coincide con el de CreatedAt.
func (r *HistoryRepo) Find(_ context.Context, filter repository.HistoryFilter) ([]*entity.History, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var products map[string]struct{}
	if len(filter.ProductIDs) > 0 {
		products = make(map[string]struct{}, len(filter.ProductIDs))
		for _, id := range filter.ProductIDs {
			products[id] = struct{}{}
		}
	}

	var out []*entity.History
	for i := len(r.s.histories) - 1; i >= 0; i-- {
		h := r.s.histories[i]
		if products != nil {
			if h.ProductID == nil {
				continue
			}
			if _, ok := products[*h.ProductID]; !ok {
				continue
			}
		}
		if w := filter.WarehouseID; w != "" && h.WarehouseID != w && h.Details.From != w && h.Details.To != w {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}

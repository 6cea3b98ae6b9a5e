package repository

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// HistoryFilter criterios del historial. WarehouseID coincide con la bodega del registro
// o con cualquiera de los extremos de un traslado.
type HistoryFilter struct {
	ProductIDs  []string
	WarehouseID string
}

// HistoryRepository define el puerto de persistencia del historial de movimientos (solo inserción).
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.History) error
	// Find devuelve los registros del más reciente al más antiguo.
	Find(ctx context.Context, filter HistoryFilter) ([]*entity.History, error)
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo historial de movimientos sobre PostgreSQL. Solo inserción.
type HistoryRepo struct {
	q Querier
}

// NewHistoryRepository construye el adaptador del historial.
func NewHistoryRepository(q Querier) *HistoryRepo {
	return &HistoryRepo{q: q}
}

// Create inserta un registro.
func (r *HistoryRepo) Create(ctx context.Context, h *entity.History) error {
	query := `
		INSERT INTO histories (id, kind, product_id, warehouse_id, from_warehouse_id, to_warehouse_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.Kind, h.ProductID, h.WarehouseID,
		nullIfEmpty(h.Details.From), nullIfEmpty(h.Details.To), h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// Find registros del más reciente al más antiguo.
func (r *HistoryRepo) Find(ctx context.Context, filter repository.HistoryFilter) ([]*entity.History, error) {
	where, args := historyWhere(filter)
	query := `
		SELECT id, kind, product_id, warehouse_id, from_warehouse_id, to_warehouse_id, created_at
		FROM histories` + where + ` ORDER BY seq DESC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find histories: %w", err)
	}
	defer rows.Close()
	var list []*entity.History
	for rows.Next() {
		var h entity.History
		var from, to *string
		if err := rows.Scan(&h.ID, &h.Kind, &h.ProductID, &h.WarehouseID, &from, &to, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Details = entity.HistoryDetails{From: deref(from), To: deref(to)}
		list = append(list, &h)
	}
	return list, rows.Err()
}

// historyWhere la bodega coincide con la del registro o con cualquier extremo del traslado.
func historyWhere(filter repository.HistoryFilter) (string, []any) {
	var conds []string
	var args []any
	if len(filter.ProductIDs) > 0 {
		args = append(args, filter.ProductIDs)
		conds = append(conds, fmt.Sprintf("product_id = ANY($%d)", len(args)))
	}
	if filter.WarehouseID != "" {
		args = append(args, filter.WarehouseID)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(warehouse_id = $%d OR from_warehouse_id = $%d OR to_warehouse_id = $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

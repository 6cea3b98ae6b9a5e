package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Bodegas-api/internal/domain/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

const warehouseColumns = `id, name, status, maximum_capacity, created_at, updated_at`

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste una nueva bodega. El índice sobre lower(name) hace único el nombre.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, name, status, maximum_capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, w.ID, w.Name, w.Status, w.MaximumCapacity, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1`
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.Name, &w.Status, &w.MaximumCapacity, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}

// Update actualiza nombre, estado y capacidad.
func (r *WarehouseRepo) Update(ctx context.Context, w *entity.Warehouse) error {
	query := `
		UPDATE warehouses SET name = $2, status = $3, maximum_capacity = $4, updated_at = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, w.ID, w.Name, w.Status, w.MaximumCapacity, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update warehouse: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListWithCapacity agrega en una sola consulta los productos en tienda por bodega.
func (r *WarehouseRepo) ListWithCapacity(ctx context.Context) ([]entity.WarehouseCapacity, error) {
	query := `
		SELECT w.id, w.name, w.status, w.maximum_capacity, w.created_at, w.updated_at,
		       COUNT(p.id) FILTER (WHERE p.status = $1) AS in_store
		FROM warehouses w
		LEFT JOIN products p ON p.warehouse_id = w.id
		GROUP BY w.id
		ORDER BY w.seq`
	rows, err := r.q.Query(ctx, query, entity.ProductStatusInStore)
	if err != nil {
		return nil, fmt.Errorf("list warehouses with capacity: %w", err)
	}
	defer rows.Close()
	var list []entity.WarehouseCapacity
	for rows.Next() {
		var w entity.Warehouse
		var used int
		if err := rows.Scan(&w.ID, &w.Name, &w.Status, &w.MaximumCapacity, &w.CreatedAt, &w.UpdatedAt, &used); err != nil {
			return nil, fmt.Errorf("scan warehouse capacity: %w", err)
		}
		list = append(list, entity.WarehouseCapacity{
			Warehouse:           &w,
			CapacityUtilization: used,
			AvailableCapacity:   domaininv.Available(w.MaximumCapacity, used),
		})
	}
	return list, rows.Err()
}

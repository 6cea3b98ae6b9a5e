package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, warehouse_id, status, catalog_id, title, category, description, image, price, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.WarehouseID, p.Status, p.CatalogID, p.Title, p.Category, p.Description, p.Image,
		p.Price, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Find productos que cumplen el filtro en orden de creación.
func (r *ProductRepo) Find(ctx context.Context, filter repository.ProductFilter, limit int) ([]*entity.Product, error) {
	where, args := productWhere(filter)
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY seq`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Count cantidad de productos que cumplen el filtro.
func (r *ProductRepo) Count(ctx context.Context, filter repository.ProductFilter) (int, error) {
	where, args := productWhere(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// UpdateWarehouse reasigna la bodega dueña del producto si sigue en tienda en from.
func (r *ProductRepo) UpdateWarehouse(ctx context.Context, productID, fromWarehouseID, toWarehouseID string) error {
	return r.updateInStore(ctx, "warehouse_id", productID, fromWarehouseID, toWarehouseID)
}

// MarkSent marca el producto como enviado si sigue en tienda en la bodega.
func (r *ProductRepo) MarkSent(ctx context.Context, productID, warehouseID string) error {
	return r.updateInStore(ctx, "status", productID, warehouseID, entity.ProductStatusSent)
}

// updateInStore escribe la columna solo si la fila sigue en tienda en warehouseID.
func (r *ProductRepo) updateInStore(ctx context.Context, column, productID, warehouseID, value string) error {
	query := `
		UPDATE products SET ` + column + ` = $3, updated_at = now()
		WHERE id = $1 AND warehouse_id = $2 AND status = $4`
	cmd, err := r.q.Exec(ctx, query, productID, warehouseID, value, entity.ProductStatusInStore)
	if err != nil {
		return fmt.Errorf("update product %s: %w", column, err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return fmt.Errorf("update product %s: %w", column, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// productWhere arma la cláusula WHERE con parámetros posicionales.
func productWhere(filter repository.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.WarehouseID != "" {
		args = append(args, filter.WarehouseID)
		conds = append(conds, fmt.Sprintf("warehouse_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CatalogID != nil {
		args = append(args, *filter.CatalogID)
		conds = append(conds, fmt.Sprintf("catalog_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.WarehouseID, &p.Status, &p.CatalogID, &p.Title, &p.Category, &p.Description, &p.Image,
		&p.Price, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

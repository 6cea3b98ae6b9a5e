package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

const catalogColumns = `id, catalog_id, title, category, description, image, price, rating_rate, rating_count, created_at`

// CatalogRepo implementación del puerto CatalogRepository sobre PostgreSQL.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador del catálogo.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// CreateMany inserta todos los ítems en una sola sentencia; los CatalogID repetidos se ignoran,
// así dos instancias que siembran a la vez no duplican el catálogo.
func (r *CatalogRepo) CreateMany(ctx context.Context, items []*entity.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	query, args := catalogInsert(items)
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert catalog items: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *CatalogRepo) GetByID(ctx context.Context, id string) (*entity.CatalogItem, error) {
	item, err := scanCatalogItem(r.q.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	return item, nil
}

// List ítems en orden de alta.
func (r *CatalogRepo) List(ctx context.Context) ([]*entity.CatalogItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+catalogColumns+` FROM catalog_items ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()
	var list []*entity.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// Count cantidad de ítems.
func (r *CatalogRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count catalog items: %w", err)
	}
	return n, nil
}

// catalogInsert arma un INSERT multi-fila con parámetros posicionales.
func catalogInsert(items []*entity.CatalogItem) (string, []any) {
	const cols = 10
	rows := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)
	for i, it := range items {
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			it.ID, it.CatalogID, it.Title, it.Category, it.Description, it.Image,
			it.Price, it.RatingRate, it.RatingCount, it.CreatedAt,
		)
	}
	query := `INSERT INTO catalog_items (` + catalogColumns + `) VALUES ` +
		strings.Join(rows, ", ") + ` ON CONFLICT (catalog_id) DO NOTHING`
	return query, args
}

func scanCatalogItem(row pgx.Row) (*entity.CatalogItem, error) {
	var it entity.CatalogItem
	err := row.Scan(
		&it.ID, &it.CatalogID, &it.Title, &it.Category, &it.Description, &it.Image,
		&it.Price, &it.RatingRate, &it.RatingCount, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

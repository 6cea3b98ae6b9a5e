package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodegas-api/internal/application/catalog"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que Client implementa catalog.Source.
var _ catalog.Source = (*Client)(nil)

// Client lee el catálogo inicial desde la API externa de productos (GET {baseURL}/products).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient construye el cliente. timeout aplica a cada petición.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteProduct struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Rating      struct {
		Rate  decimal.Decimal `json:"rate"`
		Count int             `json:"count"`
	} `json:"rating"`
}

// Fetch descarga el catálogo completo. Los ítems salen sin ID interno ni fecha de alta.
func (c *Client) Fetch(ctx context.Context) ([]*entity.CatalogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, fmt.Errorf("catálogo: crear request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("catálogo: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("catálogo: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("catálogo: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catálogo: HTTP %d", resp.StatusCode)
	}

	var remote []remoteProduct
	if err := json.Unmarshal(body, &remote); err != nil {
		return nil, fmt.Errorf("catálogo: deserializar respuesta: %w", err)
	}
	items := make([]*entity.CatalogItem, 0, len(remote))
	for _, r := range remote {
		items = append(items, &entity.CatalogItem{
			CatalogID:   r.ID,
			Title:       r.Title,
			Category:    r.Category,
			Description: r.Description,
			Image:       r.Image,
			Price:       r.Price,
			RatingRate:  r.Rating.Rate,
			RatingCount: r.Rating.Count,
		})
	}
	return items, nil
}

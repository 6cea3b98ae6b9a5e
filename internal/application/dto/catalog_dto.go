package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// RatingResponse valoración del ítem en el catálogo externo.
type RatingResponse struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// CatalogItemResponse salida de un ítem del catálogo.
type CatalogItemResponse struct {
	ID          string          `json:"id"`
	CatalogID   int             `json:"catalog_id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Rating      RatingResponse  `json:"rating"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CatalogResponse catálogo con sus categorías.
type CatalogResponse struct {
	Categories []string              `json:"categories"`
	Items      []CatalogItemResponse `json:"items"`
}

// NewCatalogResponse mapea el catálogo.
func NewCatalogResponse(categories []string, list []*entity.CatalogItem) CatalogResponse {
	items := make([]CatalogItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, CatalogItemResponse{
			ID:          it.ID,
			CatalogID:   it.CatalogID,
			Title:       it.Title,
			Category:    it.Category,
			Description: it.Description,
			Image:       it.Image,
			Price:       it.Price,
			Rating:      RatingResponse{Rate: it.RatingRate, Count: it.RatingCount},
			CreatedAt:   it.CreatedAt,
		})
	}
	if categories == nil {
		categories = []string{}
	}
	return CatalogResponse{Categories: categories, Items: items}
}

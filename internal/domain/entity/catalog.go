package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem producto del catálogo del que se crean unidades físicas al recibir mercancía.
type CatalogItem struct {
	ID          string
	CatalogID   int // id en el catálogo externo
	Title       string
	Category    string
	Description string
	Image       string
	Price       decimal.Decimal
	RatingRate  decimal.Decimal
	RatingCount int
	CreatedAt   time.Time
}

// Payload datos descriptivos que se copian a cada unidad creada desde este ítem.
func (c *CatalogItem) Payload() ProductPayload {
	return ProductPayload{
		CatalogID:   c.CatalogID,
		Title:       c.Title,
		Category:    c.Category,
		Description: c.Description,
		Image:       c.Image,
		Price:       c.Price,
	}
}

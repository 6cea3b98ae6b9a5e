package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un producto.
const (
	ProductStatusInStore = "in-store"
	ProductStatusSent    = "sent" // terminal: fuera del conteo de capacidad y de traslados
)

// Product representa una unidad física ubicada en exactamente una bodega.
// WarehouseID y Status solo los escribe el motor de traslados; el resto es carga descriptiva.
type Product struct {
	ID          string
	WarehouseID string
	Status      string
	CatalogID   int // id del producto en el catálogo de origen
	Title       string
	Category    string
	Description string
	Image       string
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InStore indica si el producto ocupa capacidad en su bodega.
func (p *Product) InStore() bool {
	return p.Status == ProductStatusInStore
}

// ProductPayload datos descriptivos con los que llega una unidad; el motor los trata como opacos.
type ProductPayload struct {
	CatalogID   int
	Title       string
	Category    string
	Description string
	Image       string
	Price       decimal.Decimal
}

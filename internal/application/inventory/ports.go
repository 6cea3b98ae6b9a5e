package inventory

import (
	"context"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando el repositorio de productos
// atado a esa tx. Garantiza que un traslado por lotes se aplique completo o no se aplique.
type TxRunner interface {
	Run(ctx context.Context, fn func(products repository.ProductRepository) error) error
}

// CatalogReader resuelve ítems del catálogo; ErrNotFound si no existe.
type CatalogReader interface {
	Get(ctx context.Context, id string) (*entity.CatalogItem, error)
}

// Publisher publica eventos en el bus interno sin esperar a los suscriptores.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// Locker serializa las mutaciones que afectan la capacidad de una misma bodega.
// unlock debe llamarse siempre que err sea nil.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Metrics observa los movimientos del motor. nil = sin métricas.
type Metrics interface {
	MovementRecorded(kind string, units int)
	CapacityRejected(warehouseID string)
}

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(string, int) {}
func (nopMetrics) CapacityRejected(string)      {}

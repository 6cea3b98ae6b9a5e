package entity

import "time"

// Tópicos del bus de eventos interno.
const (
	TopicProductMovement        = "product.movement"
	TopicBatchTransferRequested = "warehouse.batch_transfer_requested"
)

// MovementEvent notificación efímera de llegada, traslado o envío de un producto.
// Product puede ser nil en eventos agregados.
type MovementEvent struct {
	Kind        string
	Product     *Product
	WarehouseID string
	From        string
	To          string
	OccurredAt  time.Time
}

// BatchTransferRequested solicitud de reubicar todos los productos en tienda de una bodega a otra.
type BatchTransferRequested struct {
	FromWarehouseID string
	ToWarehouseID   string
}

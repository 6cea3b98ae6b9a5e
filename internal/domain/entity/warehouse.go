package entity

import "time"

// Estados de una bodega.
const (
	WarehouseStatusOpen              = "open"
	WarehouseStatusTemporaryClosed   = "temporary-closed"
	WarehouseStatusPermanentlyClosed = "permanently-closed"
)

// Warehouse representa una bodega con capacidad máxima de unidades en tienda (multi-bodega).
type Warehouse struct {
	ID              string
	Name            string
	Status          string
	MaximumCapacity int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen indica si la bodega acepta entradas y traslados.
func (w *Warehouse) IsOpen() bool {
	return w.Status == WarehouseStatusOpen
}

// ValidWarehouseStatus indica si s es uno de los estados conocidos.
func ValidWarehouseStatus(s string) bool {
	switch s {
	case WarehouseStatusOpen, WarehouseStatusTemporaryClosed, WarehouseStatusPermanentlyClosed:
		return true
	}
	return false
}

// CanTransition valida la máquina de estados de la bodega.
// open → temporary-closed | permanently-closed; temporary-closed → open.
// permanently-closed es terminal.
func CanTransition(from, to string) bool {
	switch from {
	case WarehouseStatusOpen:
		return to == WarehouseStatusTemporaryClosed || to == WarehouseStatusPermanentlyClosed
	case WarehouseStatusTemporaryClosed:
		return to == WarehouseStatusOpen
	}
	return false
}

// WarehouseCapacity lectura derivada: ocupación y disponible calculados al consultar, nunca persistidos.
type WarehouseCapacity struct {
	Warehouse           *Warehouse
	CapacityUtilization int
	AvailableCapacity   int
}

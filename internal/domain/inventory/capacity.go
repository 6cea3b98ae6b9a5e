package inventory

import "github.com/jhoicas/Bodegas-api/internal/domain"

// CheckCapacity implementa la regla de admisión de capacidad (servicio de dominio, sin I/O).
// Disponible = CapacidadMáxima - EnTienda; rechaza si Disponible < Solicitadas.
func CheckCapacity(warehouseID string, maximumCapacity, inStore, requested int) error {
	if requested < 0 {
		return domain.ErrInvalidInput
	}
	if maximumCapacity-inStore < requested {
		return &domain.CapacityError{
			WarehouseID: warehouseID,
			Requested:   requested,
			Available:   Available(maximumCapacity, inStore),
		}
	}
	return nil
}

// Available unidades libres; nunca negativo aunque la bodega esté sobreocupada.
func Available(maximumCapacity, inStore int) int {
	if inStore >= maximumCapacity {
		return 0
	}
	return maximumCapacity - inStore
}

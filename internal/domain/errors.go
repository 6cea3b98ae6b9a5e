package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrCapacityExceeded  = errors.New("capacidad de la bodega excedida")
	ErrWarehouseClosed   = errors.New("la bodega no está abierta")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrProductSent       = errors.New("el producto ya fue enviado")
	ErrPersistence       = errors.New("fallo de persistencia")
)

// CapacityError rechazo del control de capacidad. Lleva la bodega y las unidades
// pedidas/disponibles para diagnóstico; errors.Is(err, ErrCapacityExceeded) es true.
type CapacityError struct {
	WarehouseID string
	Requested   int
	Available   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("bodega %s sin capacidad: solicitadas %d, disponibles %d",
		e.WarehouseID, e.Requested, e.Available)
}

// Is permite comparar contra ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// Persistence envuelve un error de I/O del almacén para que coincida con ErrPersistence
// sin perder la causa original.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrPersistence, err))
}

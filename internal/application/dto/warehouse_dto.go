package dto

import (
	"time"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// CreateWarehouseRequest entrada para crear una bodega (nace abierta).
type CreateWarehouseRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=200"`
	MaximumCapacity int    `json:"maximum_capacity" validate:"required,min=1"`
}

// UpdateWarehouseRequest entrada para actualizar nombre o capacidad.
type UpdateWarehouseRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	MaximumCapacity *int    `json:"maximum_capacity" validate:"omitempty,min=1"`
}

// ChangeStatusRequest entrada para cambiar el estado. TransferWarehouseID es obligatorio al cerrar.
type ChangeStatusRequest struct {
	Status              string `json:"status" validate:"required,oneof=open temporary-closed permanently-closed"`
	TransferWarehouseID string `json:"transfer_warehouse_id"`
}

// WarehouseResponse salida de una bodega con su ocupación actual.
type WarehouseResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Status              string    `json:"status"`
	MaximumCapacity     int       `json:"maximum_capacity"`
	CapacityUtilization int       `json:"capacity_utilization"`
	AvailableCapacity   int       `json:"available_capacity"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// WarehouseListResponse listado de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
}

// ProductWithHistory producto con su historial, del más reciente al más antiguo.
type ProductWithHistory struct {
	ProductResponse
	Histories []HistoryResponse `json:"histories"`
}

// WarehouseDetailResponse bodega con sus productos en tienda y el historial de cada uno.
type WarehouseDetailResponse struct {
	Warehouse WarehouseResponse    `json:"warehouse"`
	Products  []ProductWithHistory `json:"products"`
}

// NewWarehouseResponse mapea la bodega y su lectura de capacidad.
func NewWarehouseResponse(c entity.WarehouseCapacity) WarehouseResponse {
	w := c.Warehouse
	return WarehouseResponse{
		ID:                  w.ID,
		Name:                w.Name,
		Status:              w.Status,
		MaximumCapacity:     w.MaximumCapacity,
		CapacityUtilization: c.CapacityUtilization,
		AvailableCapacity:   c.AvailableCapacity,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}

package dto

import (
	"time"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
)

// WarehouseRefResponse bodega referenciada por un traslado. Missing = la bodega ya no existe.
type WarehouseRefResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// HistoryResponse registro de auditoría.
type HistoryResponse struct {
	ID          string                `json:"id"`
	Type        string                `json:"type"`
	ProductID   *string               `json:"product_id"`
	WarehouseID string                `json:"warehouse_id"`
	From        *WarehouseRefResponse `json:"from,omitempty"`
	To          *WarehouseRefResponse `json:"to,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// HistoryListResponse listado de historial.
type HistoryListResponse struct {
	Items []HistoryResponse `json:"items"`
}

// NewHistoryResponse mapea un registro con sus referencias resueltas.
func NewHistoryResponse(v entity.HistoryView) HistoryResponse {
	return HistoryResponse{
		ID:          v.ID,
		Type:        v.Kind,
		ProductID:   v.ProductID,
		WarehouseID: v.WarehouseID,
		From:        refResponse(v.From),
		To:          refResponse(v.To),
		CreatedAt:   v.CreatedAt,
	}
}

// NewHistoryListResponse mapea una lista de registros.
func NewHistoryListResponse(list []entity.HistoryView) HistoryListResponse {
	items := make([]HistoryResponse, 0, len(list))
	for _, v := range list {
		items = append(items, NewHistoryResponse(v))
	}
	return HistoryListResponse{Items: items}
}

func refResponse(r *entity.WarehouseRef) *WarehouseRefResponse {
	if r == nil {
		return nil
	}
	return &WarehouseRefResponse{ID: r.ID, Name: r.Name, Missing: r.Missing}
}

package entity

import "time"

// Tipos de movimiento registrados en el historial.
const (
	MovementArrived     = "arrived"
	MovementTransferred = "transferred"
	MovementSent        = "sent"
)

// HistoryDetails detalle del movimiento; From/To solo aplican a traslados.
type HistoryDetails struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// History registro de auditoría inmutable derivado de un evento de movimiento.
// ProductID es nulo en registros agregados o de esquemas anteriores.
type History struct {
	ID          string
	Kind        string
	ProductID   *string
	WarehouseID string // bodega donde terminó el movimiento
	Details     HistoryDetails
	CreatedAt   time.Time
}

// WarehouseRef referencia a bodega resuelta de forma perezosa al leer el historial.
// Missing indica que el id ya no existe (referencia colgante).
type WarehouseRef struct {
	ID      string
	Name    string
	Missing bool
}

// HistoryView registro de historial con las bodegas de origen/destino resueltas.
type HistoryView struct {
	History
	From *WarehouseRef
	To   *WarehouseRef
}

package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CapacityErrorResponse cuerpo de error cuando una bodega no tiene capacidad.
type CapacityErrorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	WarehouseID string `json:"warehouse_id"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

package binance

// DTOs raw de la API de Binance. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// depthResponse es la respuesta de GET /api/v3/depth y también el payload
// del stream de profundidad parcial (<symbol>@depth<N>@100ms).
type depthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // [precio, cantidad]
	Asks         [][]string `json:"asks"`
}

// streamEnvelope envuelve cada mensaje de /stream?streams=...
type streamEnvelope struct {
	Stream string        `json:"stream"`
	Data   depthResponse `json:"data"`
}

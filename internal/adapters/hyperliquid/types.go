package hyperliquid

// DTOs raw de la API de Hyperliquid.

// l2Request es el body de POST /info para el libro L2.
type l2Request struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// l2Book es la respuesta de l2Book (REST) y el campo data del canal ws.
// Levels[0] son bids y Levels[1] asks.
type l2Book struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"` // ms
	Levels [][]l2Level `json:"levels"`
}

type l2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"` // número de órdenes en el nivel
}

type subscribeMsg struct {
	Method       string    `json:"method"`
	Subscription l2Request `json:"subscription"`
}

// wsMessage es el sobre de todo mensaje del servidor.
type wsMessage struct {
	Channel string `json:"channel"`
	Data    l2Book `json:"data"`
}

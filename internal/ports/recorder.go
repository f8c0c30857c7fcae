package ports

import (
	"time"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// Recorder recibe métricas del loop de monitorización.
type Recorder interface {
	// ObserveFetch registra la latencia de una llamada al adapter; err es nil si tuvo éxito.
	ObserveFetch(exchange domain.ExchangeID, latency time.Duration, err error)

	// ObserveQuote registra el último top-of-book conocido del exchange.
	ObserveQuote(exchange domain.ExchangeID, quote domain.Quote)

	// ObserveCycle registra la duración de un ciclo completo.
	ObserveCycle(d time.Duration)

	// ObserveOpportunity registra una oportunidad detectada.
	ObserveOpportunity(report domain.OpportunityReport)
}

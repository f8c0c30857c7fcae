package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// Stats resume la sesión del monitor desde que arrancó.
type Stats struct {
	StartedAt     time.Time
	Cycles        uint64
	Opportunities uint64
	Miscalibrated uint64
	FetchFailures map[domain.ExchangeID]uint64
	EmptyBooks    map[domain.ExchangeID]uint64

	// Best es la oportunidad con mayor profit de la sesión (nil si no hubo).
	Best *domain.OpportunityReport
}

func newStats(a, b domain.ExchangeID) Stats {
	return Stats{
		FetchFailures: map[domain.ExchangeID]uint64{a: 0, b: 0},
		EmptyBooks:    map[domain.ExchangeID]uint64{a: 0, b: 0},
	}
}

func (s *Stats) record(r domain.OpportunityReport) {
	s.Opportunities++
	if r.Miscalibrated {
		s.Miscalibrated++
	}
	if s.Best == nil || r.Profit.GreaterThan(s.Best.Profit) {
		best := r
		s.Best = &best
	}
}

// BestProfit devuelve el mayor profit visto, o cero.
func (s Stats) BestProfit() decimal.Decimal {
	if s.Best == nil {
		return decimal.Zero
	}
	return s.Best.Profit
}

// Stats devuelve una copia de las estadísticas actuales.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.stats
	out.FetchFailures = make(map[domain.ExchangeID]uint64, len(m.stats.FetchFailures))
	for k, v := range m.stats.FetchFailures {
		out.FetchFailures[k] = v
	}
	out.EmptyBooks = make(map[domain.ExchangeID]uint64, len(m.stats.EmptyBooks))
	for k, v := range m.stats.EmptyBooks {
		out.EmptyBooks[k] = v
	}
	if m.stats.Best != nil {
		best := *m.stats.Best
		out.Best = &best
	}
	return out
}

package ports

import (
	"context"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
)

// Notifier presenta cada oportunidad detectada al usuario.
type Notifier interface {
	// Notify se llama una vez por oportunidad, dentro del ciclo que la detecta.
	Notify(ctx context.Context, report domain.OpportunityReport) error
}

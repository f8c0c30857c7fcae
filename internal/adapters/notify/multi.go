package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/spreadwatch/internal/domain"
	"github.com/alejandrodnm/spreadwatch/internal/ports"
)

// Multi reenvía cada oportunidad a todos los notifiers. Un fallo no impide
// que el resto reciba el report.
type Multi []ports.Notifier

func (m Multi) Notify(ctx context.Context, r domain.OpportunityReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

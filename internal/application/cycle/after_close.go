package cycle

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/job"
)

// Rollover cierra el ciclo activo y abre el siguiente de inmediato. Es el
// handler del trabajo programado de medianoche (OPEN_CLOSE_EC): el actor es el
// sistema y el cierre no se marca como manual.
func (s *Service) Rollover(ctx context.Context, businessID string) error {
	if _, _, err := s.Close(ctx, businessID, "", false); err != nil {
		return err
	}
	_, err := s.Open(ctx, businessID, "", nil)
	return err
}

// AfterClose es el handler del trabajo diferido posterior al cierre: encola un
// rollup diario por cada cuenta tocada por el posteo del cierre.
func (s *Service) AfterClose(ctx context.Context, params job.AfterCloseParams) error {
	for _, accountID := range params.AccountIDs {
		p := job.DailyBalanceParams{AccountID: accountID, Date: params.ClosedAt}
		if err := s.queue.Enqueue(ctx, job.CodeDailyBalance, p); err != nil {
			return err
		}
	}
	s.log.Info().
		Str("business_id", params.BusinessID).
		Str("cycle_id", params.EconomicCycleID).
		Int("accounts", len(params.AccountIDs)).
		Msg("rollups diarios encolados tras el cierre")
	return nil
}

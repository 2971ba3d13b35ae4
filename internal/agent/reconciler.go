package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/codepulse/codepulse/internal/model"
)

// SummaryFetcher is the slice of the API client the reconciler needs.
type SummaryFetcher interface {
	FetchDailySummary(ctx context.Context, midnightOffsetSeconds int) (model.DailySummary, error)
}

// Reconciler keeps the local total aligned with the server's
// authoritative "today" figure. On success the server total replaces the
// acknowledged baseline and the unsynced accumulator resets; on failure
// the last good baseline is kept so the display never collapses to zero
// over a transient fetch error.
type Reconciler struct {
	client SummaryFetcher
	tally  *Tally
}

func NewReconciler(client SummaryFetcher, tally *Tally) *Reconciler {
	return &Reconciler{client: client, tally: tally}
}

func (r *Reconciler) Tick(ctx context.Context, now time.Time) error {
	summary, err := r.client.FetchDailySummary(ctx, utcOffsetSeconds(now))
	if err != nil {
		return fmt.Errorf("fetch daily summary: %w", err)
	}
	r.tally.Adopt(summary.TotalSeconds)
	return nil
}

// utcOffsetSeconds is the client's UTC offset, sent so the server cuts
// "today" at the client's midnight rather than its own.
func utcOffsetSeconds(now time.Time) int {
	_, offset := now.Zone()
	return offset
}

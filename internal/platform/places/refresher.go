package places

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/domain/facility"
)

// RatingFetcher is the slice of Client the refresher needs; tests substitute
// a stub.
type RatingFetcher interface {
	FetchRating(ctx context.Context, placeID string) (*Rating, error)
}

// Refresher periodically rewrites the Google rating columns of every
// facility that carries a place id. A failure on one facility is logged and
// skipped; the sweep continues.
type Refresher struct {
	fetcher    RatingFetcher
	facilities facility.Repository
	interval   time.Duration
	logger     zerolog.Logger
}

func NewRefresher(fetcher RatingFetcher, facilities facility.Repository, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		fetcher:    fetcher,
		facilities: facilities,
		interval:   interval,
		logger:     logger.With().Str("component", "places_refresher").Logger(),
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("external rating refresh started")

	if err := r.RefreshAll(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial rating sweep failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("external rating refresh stopped")
			return
		case <-ticker.C:
			if err := r.RefreshAll(ctx); err != nil {
				r.logger.Error().Err(err).Msg("rating sweep failed")
			}
		}
	}
}

// RefreshAll updates every facility with a place id. Only listing failures
// abort the sweep.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	facilities, err := r.facilities.ListWithPlaceIDs(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for _, f := range facilities {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rating, err := r.fetcher.FetchRating(ctx, f.GooglePlaceID)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("facility_id", f.ID.String()).
				Str("place_id", f.GooglePlaceID).
				Msg("rating fetch failed, skipping")
			continue
		}
		if err := r.facilities.UpdateGoogleRating(ctx, f.ID, rating.Rating, rating.Count); err != nil {
			r.logger.Warn().Err(err).
				Str("facility_id", f.ID.String()).
				Msg("rating update failed, skipping")
			continue
		}
		updated++
	}
	r.logger.Info().Int("facilities", len(facilities)).Int("updated", updated).Msg("rating sweep finished")
	return nil
}

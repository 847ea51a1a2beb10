package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"uocsclub.net/aocstats/internal/database"
	"uocsclub.net/aocstats/internal/fetcher"
	"uocsclub.net/aocstats/internal/metrics"
)

// refresher fetches the configured leaderboard and stores it. It is shared by
// the scheduled job and the refresh endpoint so both respect one rate limit.
type refresher struct {
	client  *fetcher.Client
	db      *database.DatabaseInst
	metrics *metrics.Manager
	logger  *slog.Logger
}

func (r *refresher) Refresh(ctx context.Context) error {
	data, err := r.client.Fetch(ctx)
	switch {
	case errors.Is(err, fetcher.ErrRateLimited):
		r.observe(metrics.FetchRateLimited)
		return err
	case err != nil:
		r.observe(metrics.FetchError)
		return err
	}
	r.observe(metrics.FetchOK)

	return r.db.StoreLeaderboard(ctx, data, time.Now())
}

func (r *refresher) observe(result string) {
	if r.metrics != nil {
		r.metrics.ObserveFetch(result)
	}
}

// job is the scheduled form of Refresh, which only logs failures.
func (r *refresher) job(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		if errors.Is(err, fetcher.ErrRateLimited) {
			r.logger.Debug("skipped fetch", slog.Any("error", err))
			return
		}
		r.logger.Error("failed to refresh leaderboard", slog.Any("error", err))
	}
}

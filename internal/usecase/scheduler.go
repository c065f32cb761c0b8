package usecase

import (
	"context"
	"log/slog"
	"time"

	"PaperTracker/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	listingURL func(time.Time) string
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs. listingURL maps
// the trigger time to the listing page that run should crawl.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, listingURL func(time.Time) string, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, listingURL: listingURL, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil || s.listingURL == nil {
		return nil
	}

	job := func(trigger time.Time) {
		url := s.listingURL(trigger)
		if _, err := s.pipeline.Run(ctx, url); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "listing_url", url, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

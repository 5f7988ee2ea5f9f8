package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/pkg/logger"
)

var (
	sampleAuthors = []string{"satoshi", "vitalik", "polly", "kea", "macaw"}
	sampleTexts   = []string{
		"prices are moving again",
		"just saw something wild",
		"this is a test tweet",
		"who else is watching this?",
	}
)

// Generate returns n synthetic events spread across topics. Ids are unique.
func Generate(n int, topics []string) []model.ClassifiedEvent {
	if len(topics) == 0 {
		topics = []string{"Test"}
	}
	now := time.Now().UTC()
	events := make([]model.ClassifiedEvent, n)
	for i := range n {
		events[i] = model.ClassifiedEvent{
			ID:        uuid.NewString(),
			Topic:     topics[rand.IntN(len(topics))],
			Author:    sampleAuthors[rand.IntN(len(sampleAuthors))],
			CreatedAt: now.Add(-time.Duration(i) * time.Second).Format(time.RubyDate),
			Text:      sampleTexts[rand.IntN(len(sampleTexts))],
		}
	}
	return events
}

// LoadConfig tunes Submit.
type LoadConfig struct {
	BatchSize int
	Workers   int
}

// LoadStats summarises a Submit run.
type LoadStats struct {
	Batches    int64         `json:"batches"`
	Accepted   int64         `json:"accepted"`
	Duplicates int64         `json:"duplicates"`
	Rejected   int64         `json:"rejected"`
	Failed     int64         `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Submit posts events to /events in batches with bounded concurrency.
// Backpressure replies are counted as rejected; other errors as failed.
// Only context cancellation aborts the run.
func Submit(ctx context.Context, c *Client, events []model.ClassifiedEvent, cfg LoadConfig) (LoadStats, error) {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	log := logger.Get().Named("loadgen")
	start := time.Now()

	var batches, accepted, duplicates, rejected, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for lo := 0; lo < len(events); lo += cfg.BatchSize {
		chunk := events[lo:min(lo+cfg.BatchSize, len(events))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batches.Add(1)
			res, err := c.Ingest(gctx, chunk)
			switch {
			case err == nil:
				accepted.Add(int64(res.Accepted))
				duplicates.Add(int64(res.Duplicates))
			case errors.Is(err, ErrBackpressure):
				rejected.Add(int64(len(chunk)))
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failed.Add(int64(len(chunk)))
				log.Warn(gctx, "batch submit failed", logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	stats := LoadStats{
		Batches:    batches.Load(),
		Accepted:   accepted.Load(),
		Duplicates: duplicates.Load(),
		Rejected:   rejected.Load(),
		Failed:     failed.Load(),
		Elapsed:    time.Since(start),
	}
	log.Info(ctx, "load run finished",
		logger.Int64("accepted", stats.Accepted),
		logger.Int64("rejected", stats.Rejected),
		logger.Int64("failed", stats.Failed),
		logger.Duration("elapsed", stats.Elapsed))
	if err != nil {
		return stats, fmt.Errorf("load run interrupted: %w", err)
	}
	return stats, nil
}

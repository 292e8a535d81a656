package webhooksim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/commitquest/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrNoSenders is returned when Config.Senders is empty.
var ErrNoSenders = errors.New("at least one sender id is required")

// Run generates deliveries, submits them concurrently, then fetches the
// leaderboard. First deliveries go out before any redelivery so every copy
// is expected to be reported as a duplicate.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if len(cfg.Senders) == 0 {
		return nil, ErrNoSenders
	}
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Secret, cfg.Timeout)

	log.Info(ctx, "starting webhook simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("deliveries", cfg.Deliveries),
		logger.Int("senders", len(cfg.Senders)),
		logger.Int("workers", cfg.Workers),
		logger.Bool("signed", cfg.Secret != ""))

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Seed, cfg.Repo, cfg.Senders)
	first := gen.Generate(cfg.Deliveries)
	again := gen.Redeliveries(first, cfg.Redeliver)
	stats.Generated = len(first) + len(again)

	submit(ctx, client, cfg, log, first, stats)
	submit(ctx, client, cfg, log, again, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	lb, err := client.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Leaderboard = lb

	if cfg.OutputFile != "" {
		if err := saveDeliveries(cfg.OutputFile, append(first, again...)); err != nil {
			log.Warn(ctx, "failed to save deliveries", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// submit posts ds through a worker pool and folds the acks into stats.
func submit(ctx context.Context, client *Client, cfg *Config, log logger.Logger, ds []Delivery, stats *Stats) {
	var (
		submitted, credited, duplicate, uncredited, mismatched, failed atomic.Int64
		expectedXP, creditedXP                                         atomic.Int64
	)

	workers := max(1, cfg.Workers)
	ch := make(chan Delivery, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range ch {
				submitted.Add(1)
				expectedXP.Add(d.ExpectedXP)
				ack, err := client.Deliver(ctx, d)
				if err != nil {
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "delivery failed", logger.String("id", d.ID), logger.Error(err))
					}
					continue
				}
				creditedXP.Add(ack.XPAdded)
				switch {
				case ack.Duplicate:
					duplicate.Add(1)
				case ack.XPAdded > 0:
					credited.Add(1)
				default:
					uncredited.Add(1)
				}
				if ack.XPAdded != d.ExpectedXP {
					mismatched.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "unexpected xp",
							logger.String("id", d.ID),
							logger.String("event", d.Event),
							logger.Int64("expected", d.ExpectedXP),
							logger.Int64("got", ack.XPAdded),
							logger.String("message", ack.Message))
					}
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, d := range ds {
			select {
			case <-ctx.Done():
				return
			case ch <- d:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += int(submitted.Load())
	stats.Credited += int(credited.Load())
	stats.Duplicate += int(duplicate.Load())
	stats.Uncredited += int(uncredited.Load())
	stats.Mismatched += int(mismatched.Load())
	stats.Failed += int(failed.Load())
	stats.ExpectedXP += expectedXP.Load()
	stats.CreditedXP += creditedXP.Load()
}

func saveDeliveries(filename string, ds []Delivery) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, s *Stats) {
	var perSecond float64
	if s.Duration > 0 {
		perSecond = float64(s.Submitted) / s.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", s.Generated),
		logger.Int("submitted", s.Submitted),
		logger.Int("credited", s.Credited),
		logger.Int("duplicate", s.Duplicate),
		logger.Int("uncredited", s.Uncredited),
		logger.Int("mismatched", s.Mismatched),
		logger.Int("failed", s.Failed),
		logger.Int64("expectedXP", s.ExpectedXP),
		logger.Int64("creditedXP", s.CreditedXP),
		logger.Int("leaderboardEntries", len(s.Leaderboard)),
		logger.Duration("duration", s.Duration),
		logger.Float64("deliveriesPerSecond", perSecond))
	for _, e := range s.Leaderboard {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Int64("xp", e.XP),
			logger.Int("level", e.Level))
	}
}

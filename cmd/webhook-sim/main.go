package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/okian/commitquest/internal/webhooksim"
	"github.com/okian/commitquest/pkg/logger"
)

// Default configuration constants.
const (
	defaultDeliveries = 1000
	defaultTopN       = 20
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultRedeliver  = 0.05
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		secret     = flag.String("secret", os.Getenv("QUEST_WEBHOOK_SECRET"), "Webhook secret")
		senders    = flag.String("senders", "", "Comma separated GitHub account ids")
		repo       = flag.String("repo", "org/repo", "Repository full name")
		deliveries = flag.Int("deliveries", defaultDeliveries, "Number of deliveries to generate")
		redeliver  = flag.Float64("redeliver", defaultRedeliver, "Fraction of deliveries sent twice")
		seed       = flag.Uint64("seed", 0, "Generator seed, 0 for random")
		topN       = flag.Int("top", defaultTopN, "Leaderboard entries to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated deliveries")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		webhooksim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("webhook-sim")

	ids, err := parseSenders(*senders)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	stats, err := webhooksim.Run(ctx, &webhooksim.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		Secret:     *secret,
		Deliveries: *deliveries,
		Senders:    ids,
		Repo:       *repo,
		Redeliver:  *redeliver,
		Seed:       *seed,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.Failed > 0 || stats.Mismatched > 0 {
		os.Exit(1)
	}
}

func parseSenders(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.ParseUint(part, 10, 64); err != nil {
			return nil, fmt.Errorf("sender id %q is not numeric", part)
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil, webhooksim.ErrNoSenders
	}
	return out, nil
}

package webhooksim

import (
	"os"
)

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`commitquest webhook simulator
=============================

Generates signed GitHub deliveries (push, pull_request, issues and others),
posts them concurrently and reports credited XP against the scoring table.
Senders must already be registered (see questctl register).

Usage:
  webhook-sim -senders 101,102 [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -secret string      Webhook secret (default $QUEST_WEBHOOK_SECRET)
  -senders string     Comma separated GitHub account ids
  -repo string        Repository full name (default "org/repo")
  -deliveries int     Number of deliveries (default 1000)
  -redeliver float    Fraction redelivered to exercise dedupe (default 0.05)
  -seed uint          Generator seed, 0 for random
  -top int            Leaderboard entries to fetch (default 20)
  -workers int        Concurrent workers (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -output string      Save generated deliveries as JSON
  -verbose            Log every failure and mismatch
  -help               Show this help message
`)
}

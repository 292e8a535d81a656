// Package webhooksim replays signed GitHub deliveries against a running
// commitquest server and checks the XP it reports back.
package webhooksim

import (
	"encoding/json"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Secret     string        // Webhook secret; empty sends unsigned deliveries
	Deliveries int           // Number of deliveries to generate
	Senders    []string      // GitHub account ids to attribute deliveries to
	Repo       string        // Repository full name placed in every payload
	Redeliver  float64       // Fraction of deliveries sent a second time
	Seed       uint64        // Generator seed; 0 picks one from the clock
	TopN       int           // Leaderboard entries to fetch at the end
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated deliveries; empty skips saving
	Verbose    bool          // Enable verbose logging
}

// Delivery is one generated webhook with the XP the scoring table assigns it.
type Delivery struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Sender     string          `json:"sender"`
	Body       json.RawMessage `json:"body"`
	ExpectedXP int64           `json:"expectedXp"`
}

// Ack is the server's answer to a delivery.
type Ack struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	XPAdded   int64  `json:"xpAdded"`
	Duplicate bool   `json:"duplicate"`
}

// Entry is a leaderboard row.
type Entry struct {
	Rank              int    `json:"rank"`
	ID                string `json:"id"`
	Name              string `json:"name"`
	XP                int64  `json:"xp"`
	Level             int    `json:"level"`
	ContributionCount int64  `json:"contributionCount"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Credited    int
	Duplicate   int
	Uncredited  int
	Mismatched  int
	Failed      int
	ExpectedXP  int64
	CreditedXP  int64
	Leaderboard []Entry
	StartTime   time.Time
	Duration    time.Duration
}

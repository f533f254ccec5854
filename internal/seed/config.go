// Package seed submits generated evaluations to a running server and checks
// that every stored record shows up in the roster with the expected score.
package seed

import (
	"time"

	"github.com/okian/fitscore/internal/domain/scoring"
)

// Config holds configuration for a seed run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Count        int           // Number of evaluations to submit
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Visibility   time.Duration // How long to wait for records to appear in the roster
	PollInterval time.Duration // Roster polling interval
	Verbose      bool          // Log every submission
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Successful int
	Failed     int
	Visible    int
	Mismatched int
	ByLabel    map[scoring.Label]int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "http://localhost:9080"
	}
	if out.Count < 1 {
		out.Count = 1
	}
	if out.Workers < 1 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.Visibility <= 0 {
		out.Visibility = 30 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 250 * time.Millisecond
	}
	return &out
}

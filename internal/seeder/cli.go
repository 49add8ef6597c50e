// Package seeder generates synthetic athletes with realistic training logs and
// submits them to a running pulselog service.
package seeder

import "os"

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Pulselog Log Seeder
===================

Creates synthetic athletes, schedules their meets and submits daily logs to a
running pulselog service, then reads each dashboard back.

Athletes cycle through four archetypes: steady, overreaching, short_sleeper
and tapering. Each is shaped to trigger a different insight rule.

Usage:
  go run ./cmd/seed-logs [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -athletes int
        Number of athletes to create (default 20)
  -days int
        Days of history per athlete, ending today (default 21)
  -workers int
        Athletes seeded concurrently (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Wait before reading dashboards back (default 2s)
  -seed uint
        Generator seed (default 1)
  -output string
        Write the generated plans to this JSON file
  -verbose
        Log every athlete
  -help
        Show this help message

Examples:
  go run ./cmd/seed-logs -athletes 100 -days 28
  go run ./cmd/seed-logs -url http://localhost:8080 -output plans.json
`)
}

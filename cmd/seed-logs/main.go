package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pulselog/internal/seeder"
	"github.com/okian/pulselog/pkg/logger"
)

// Default configuration constants.
const (
	defaultAthletes = 20
	defaultDays     = 21
	defaultTimeout  = 10 * time.Second
	defaultSettle   = 2 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		athletes = flag.Int("athletes", defaultAthletes, "Number of athletes to create")
		days     = flag.Int("days", defaultDays, "Days of history per athlete, ending today")
		workers  = flag.Int("workers", runtime.NumCPU(), "Athletes seeded concurrently")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettle, "Wait before reading dashboards back")
		seed     = flag.Uint64("seed", 1, "Generator seed")
		output   = flag.String("output", "", "Write the generated plans to this JSON file")
		verbose  = flag.Bool("verbose", false, "Log every athlete")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	stats, err := seeder.Run(ctx, seeder.Config{
		BaseURL:    *baseURL,
		Athletes:   *athletes,
		Days:       *days,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.Failures > 0 {
		os.Exit(1)
	}
}

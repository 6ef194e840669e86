package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/eddiefleurent/riskround/internal/config"
	"github.com/eddiefleurent/riskround/internal/observability"
	"github.com/eddiefleurent/riskround/internal/tournament"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath string
		seed       string
		sessions   int
		workers    int
		asJSON     bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&seed, "seed", "", "Tournament seed (defaults to market.seed, then \"tournament\")")
	flag.IntVar(&sessions, "sessions", 0, "Number of sessions (overrides tournament.sessions)")
	flag.IntVar(&workers, "workers", 0, "Parallel workers (overrides tournament.workers)")
	flag.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel())

	if sessions <= 0 {
		sessions = cfg.Tournament.Sessions
	}
	if workers <= 0 {
		workers = cfg.Tournament.Workers
	}
	if seed == "" {
		seed = cfg.Market.Seed
	}
	if seed == "" {
		seed = "tournament"
	}

	runner, err := tournament.NewRunner(cfg.SessionConfig(), observability.NewMetrics(""), logger)
	if err != nil {
		logger.Fatalf("Invalid tournament config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, seed, sessions, workers)
	if err != nil {
		logger.Fatalf("Tournament failed: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatalf("Encoding report: %v", err)
		}
		return
	}
	if err := printReport(os.Stdout, report); err != nil {
		logger.Fatalf("Printing report: %v", err)
	}
}

func printReport(w io.Writer, report *tournament.Report) error {
	fmt.Fprintf(w, "Sessions: %d  Seed: %s  Duration: %s\n\n", report.Sessions, report.Seed, report.Duration)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tSEATS\tWINS\tWIN RATE\tAVG FINAL\tBEST FINAL\tBANKRUPT")
	for _, r := range report.Strategies {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%s\t%s\t%d\n",
			r.Strategy, r.Seats, r.Wins, r.WinRate*100,
			r.AverageFinalBalance.StringFixed(2), r.BestFinalBalance.StringFixed(2), r.Bankruptcies)
	}
	return tw.Flush()
}

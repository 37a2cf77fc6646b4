// Command analyze runs the full analysis over a CSV or XLSX file and prints
// the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-insight/internal/config"
	"sales-insight/internal/observability"
	"sales-insight/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file     = fs.String("file", "", "CSV or XLSX dataset to analyse (required)")
		cfgPath  = fs.String("config", "", "YAML file overriding analysis thresholds")
		pretty   = fs.Bool("pretty", false, "indent the JSON report")
		logLevel = fs.String("log-level", "warn", "log level: debug, info, warn, error")
		timeout  = fs.Duration("timeout", 2*time.Minute, "analysis timeout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "analyze: -file is required")
		fs.Usage()
		return 2
	}

	logger := observability.NewLogger(config.LoggerConfig{Level: *logLevel, Format: "text"}, stderr)

	analysis, err := config.LoadAnalysis(*cfgPath)
	if err != nil {
		logger.Error("failed to load analysis config", "error", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	report, err := services.NewAnalytics(analysis, logger).AnalyzeFile(ctx, *file)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("analysis timed out", "timeout", *timeout)
		} else {
			logger.Error("analysis failed", "error", err)
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}
	return 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var (
	serverURL   = flag.String("server", "http://localhost:8080", "API base URL")
	storeID     = flag.String("store", "ST01", "Store ID to open transactions for")
	count       = flag.Int("n", 50, "Number of transactions to create")
	concurrency = flag.Int("concurrency", 10, "Concurrent clients")
	token       = flag.String("token", "", "Bearer token for /api/v1")
	fullFlow    = flag.Bool("full", false, "Run calibration, credential, one item and finalize per transaction")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	simulator := NewSimulator(&SimulatorConfig{
		ServerURL:   *serverURL,
		StoreID:     *storeID,
		Count:       *count,
		Concurrency: *concurrency,
		Token:       *token,
		FullFlow:    *fullFlow,
	}, logger)

	logger.Info("Starting load run",
		zap.String("server", *serverURL),
		zap.String("store_id", *storeID),
		zap.Int("n", *count),
		zap.Int("concurrency", *concurrency),
	)

	report := simulator.Run(ctx)

	fmt.Printf("created:    %d\n", report.Created)
	fmt.Printf("failed:     %d\n", report.Failed)
	fmt.Printf("duplicates: %d\n", len(report.Duplicates))
	fmt.Printf("id range:   %s .. %s\n", report.FirstID(), report.LastID())
	fmt.Printf("elapsed:    %s\n", report.Elapsed)

	if len(report.Duplicates) > 0 || report.Failed > 0 {
		for _, id := range report.Duplicates {
			fmt.Printf("duplicate id: %s\n", id)
		}
		os.Exit(1)
	}
}

// Package main provides learning-inspect, an offline CLI for reading the
// hard-isolated learning store. It is the only process other than the
// server's own migrator allowed to open a connection to the learning
// database directly; domain/learning/readapi.Reader does the actual
// querying, and this file is nothing more than a flag-driven front end
// over it, in the shape of cmd/migrate-schema's standalone bun.NewDB
// bootstrap.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/emergent-company/codeforge/domain/learning"
	"github.com/emergent-company/codeforge/domain/learning/readapi"
	"github.com/emergent-company/codeforge/internal/config"
)

func main() {
	runID := flag.String("run", "", "list failures for this run ID, oldest first")
	class := flag.String("class", "", "list failures for this canon class (e.g. F1_invariant_violation), newest first")
	recent := flag.Int("recent", 0, "list the N most recent failures across all runs and classes")
	limit := flag.Int("limit", 50, "max records returned by -class or -recent")
	driftReport := flag.Bool("drift-report", false, "report every stored failure whose interpretation context hash no longer matches the current canon")
	flag.Parse()

	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	modes := 0
	for _, on := range []bool{*runID != "", *class != "", *recent > 0, *driftReport} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewConfig(log)
	if err != nil {
		log.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Learning.DSN())))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	reader := readapi.NewReader(db)
	ctx := context.Background()

	switch {
	case *runID != "":
		records, err := reader.ListByRun(ctx, *runID)
		exitOnErr(log, "list by run", err)
		printRecords(records)

	case *class != "":
		records, err := reader.ListByClass(ctx, learning.FailureClass(*class), *limit)
		exitOnErr(log, "list by class", err)
		printRecords(records)

	case *recent > 0:
		records, err := reader.ListRecent(ctx, *recent)
		exitOnErr(log, "list recent", err)
		printRecords(records)

	case *driftReport:
		drifted, err := reader.ReportDrift(ctx)
		exitOnErr(log, "drift report", err)
		printDrift(drifted)
	}
}

func exitOnErr(log *slog.Logger, action string, err error) {
	if err != nil {
		log.Error(action, slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printRecords(records []learning.FailureRecord) {
	if len(records) == 0 {
		fmt.Println("no failure records found")
		return
	}
	for _, r := range records {
		fmt.Printf("%s  run=%-20s step=%-20s class=%-28s scope=%-12s retry=%d hard=%v\n",
			r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			r.RunID, r.Step, r.PrimaryClass, r.Scope, r.RetryIndex, r.IsHardFailure)
		if r.RawError != "" {
			fmt.Printf("    error: %s\n", r.RawError)
		}
	}
	fmt.Printf("\n%d record(s)\n", len(records))
}

func printDrift(drifted []readapi.DriftReport) {
	if len(drifted) == 0 {
		fmt.Println("no drift: every stored interpretation context hash matches the current canon")
		return
	}
	for _, d := range drifted {
		fmt.Printf("DRIFT failure=%s run=%s step=%s stored=%s current=%s\n",
			d.FailureID, d.RunID, d.Step, d.StoredHash, d.CurrentHash)
	}
	fmt.Printf("\n%d drifted record(s)\n", len(drifted))
}

func printUsage() {
	fmt.Println("learning-inspect: offline reader for the hard-isolated learning store")
	fmt.Println("\nUsage (exactly one mode):")
	fmt.Println("  learning-inspect -run <run-id>")
	fmt.Println("  learning-inspect -class F1_invariant_violation [-limit 50]")
	fmt.Println("  learning-inspect -recent 20")
	fmt.Println("  learning-inspect -drift-report")
}

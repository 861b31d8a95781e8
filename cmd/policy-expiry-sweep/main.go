package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/reports"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/mmdatafocus/brokerage_backend/workflow"
)

// Marks policies past their end date as expired. Safe to run repeatedly;
// meant for a daily scheduler when EXPIRY_SWEEP_INTERVAL_MINUTES is 0.
func main() {
	dryRun := flag.Bool("dry-run", false, "Report candidates without changing any policy.")
	asOfRaw := flag.String("as-of", "", "Optional: sweep date (YYYY-MM-DD or RFC3339). Defaults to now.")
	reportPath := flag.String("report", "", "Optional: write an .xlsx report of the run to this path.")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before sweeping.")
	flag.Parse()

	asOf, err := utils.ParseAsOf(*asOfRaw, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --as-of: %v\n", err)
		os.Exit(2)
	}

	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := utils.SetUserNameInContext(context.Background(), "PolicyExpirySweep")
	report, err := workflow.NewEngine(db, logger).ExpirePolicies(ctx, asOf, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expiry sweep failed: %v\n", err)
		os.Exit(1)
	}

	mode := "applied"
	if report.DryRun {
		mode = "dry-run"
	}
	fmt.Printf("Expiry sweep as_of=%s mode=%s candidates=%d expired=%d\n",
		report.AsOf.Format("2006-01-02"), mode, len(report.Candidates), report.Expired)
	for _, c := range report.Candidates {
		fmt.Printf("  %s end=%s previous=%q expired=%t\n", c.PolicyNumber, c.EndDate.Format("2006-01-02"), c.PreviousStatus, c.Expired)
	}

	if path := strings.TrimSpace(*reportPath); path != "" {
		var writeErr error
		if strings.HasSuffix(strings.ToLower(path), ".json") {
			writeErr = writeJSON(path, report)
		} else {
			writeErr = reports.SaveExpiryWorkbook(path, report)
		}
		if writeErr != nil {
			fmt.Fprintf(os.Stderr, "write report %s: %v\n", path, writeErr)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", path)
	}
}

func writeJSON(path string, report *workflow.ExpiryReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

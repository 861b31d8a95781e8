// seed-lines-of-business upserts the rating configuration (lines of business
// and their sub-lines) from a JSON file, or a starter catalogue when no file
// is given. Re-running it updates rows in place.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-lines-of-business --file lines.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/shopspring/decimal"
)

func starterCatalogue() []models.LineOfBusiness {
	dec := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	commercialMin := dec("75000")
	return []models.LineOfBusiness{
		{
			Code: "FIRE", Name: "Fire & Special Perils", RateBasis: "per_mille",
			RatingInputs: `{"rate": 1.5, "bands": [{"up_to": 50000000, "rate": 2}]}`,
			MinPremium:   dec("25000"), DefaultBrokeragePct: dec("20"), DefaultVatPct: dec("7.5"), IsActive: true,
		},
		{
			Code: "MOTOR", Name: "Motor Comprehensive", RateBasis: "percentage",
			RatingInputs: `{"rate": 5}`,
			MinPremium:   dec("15000"), DefaultBrokeragePct: dec("12.5"), DefaultVatPct: dec("7.5"), IsActive: true,
			SubLines: []models.SubLineOfBusiness{{Name: "Commercial Vehicles", MinPremium: &commercialMin}},
		},
		{
			Code: "MARINE", Name: "Marine Cargo", RateBasis: "percentage",
			RatingInputs: `{"rate": 0.3}`,
			MinPremium:   dec("10000"), DefaultBrokeragePct: dec("15"), DefaultVatPct: dec("7.5"), IsActive: true,
		},
	}
}

func main() {
	file := flag.String("file", "", "Optional: JSON array of lines of business. Defaults to the starter catalogue.")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before seeding.")
	flag.Parse()

	lines := starterCatalogue()
	if path := strings.TrimSpace(*file); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			os.Exit(1)
		}
		lines = nil
		if err := json.Unmarshal(data, &lines); err != nil {
			fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	ids, err := models.SeedLinesOfBusiness(ctx, db, lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d lines of business\n", len(ids))

	// Cached ratings would otherwise serve the old configuration until TTL.
	if !config.RedisConfigured() {
		return
	}
	config.ConnectRedisWithRetry(ctx)
	cache := workflow.CachedRatingSource{Redis: config.GetRedisDB(), Logger: config.GetLogger()}
	for _, id := range ids {
		if err := cache.Invalidate(ctx, id, nil); err != nil {
			fmt.Fprintf(os.Stderr, "invalidate rating cache for line %d: %v\n", id, err)
		}
		var subLines []models.SubLineOfBusiness
		if err := db.Where("line_of_business_id = ?", id).Find(&subLines).Error; err != nil {
			fmt.Fprintf(os.Stderr, "list sub-lines of line %d: %v\n", id, err)
			continue
		}
		for _, sub := range subLines {
			subId := sub.ID
			if err := cache.Invalidate(ctx, id, &subId); err != nil {
				fmt.Fprintf(os.Stderr, "invalidate rating cache for sub-line %d: %v\n", subId, err)
			}
		}
	}
}

package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// SeedLinesOfBusiness upserts lines by code and their sub-lines by name in one
// transaction. Rating inputs are parsed first so a bad table never lands.
// It returns the ids of the lines it touched.
func SeedLinesOfBusiness(ctx context.Context, db *gorm.DB, lines []LineOfBusiness) ([]int, error) {
	for _, line := range lines {
		if strings.TrimSpace(line.Code) == "" {
			return nil, fmt.Errorf("line of business %q has no code", line.Name)
		}
		if _, err := line.Rating(); err != nil {
			return nil, fmt.Errorf("line of business %s: %w", line.Code, err)
		}
		for _, sub := range line.SubLines {
			if _, err := sub.Override(); err != nil {
				return nil, fmt.Errorf("line of business %s sub-line %q: %w", line.Code, sub.Name, err)
			}
		}
	}

	ids := make([]int, 0, len(lines))
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			var existing LineOfBusiness
			err := tx.Where("code = ?", line.Code).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				subLines := line.SubLines
				line.ID = 0
				line.SubLines = nil
				if err := tx.Create(&line).Error; err != nil {
					return err
				}
				existing = line
				line.SubLines = subLines
			case err != nil:
				return err
			default:
				if err := tx.Model(&LineOfBusiness{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
					"name":                  line.Name,
					"rate_basis":            line.RateBasis,
					"rating_inputs":         line.RatingInputs,
					"min_premium":           line.MinPremium,
					"default_brokerage_pct": line.DefaultBrokeragePct,
					"default_vat_pct":       line.DefaultVatPct,
					"is_active":             line.IsActive,
				}).Error; err != nil {
					return err
				}
			}

			for _, sub := range line.SubLines {
				sub.ID = 0
				sub.LineOfBusinessId = existing.ID
				var current SubLineOfBusiness
				err := tx.Where("line_of_business_id = ? AND name = ?", existing.ID, sub.Name).First(&current).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					if err := tx.Create(&sub).Error; err != nil {
						return err
					}
					continue
				}
				if err != nil {
					return err
				}
				if err := tx.Model(&SubLineOfBusiness{}).Where("id = ?", current.ID).Updates(map[string]interface{}{
					"rate_basis":    sub.RateBasis,
					"rating_inputs": sub.RatingInputs,
					"min_premium":   sub.MinPremium,
					"brokerage_pct": sub.BrokeragePct,
					"vat_pct":       sub.VatPct,
				}).Error; err != nil {
					return err
				}
			}
			ids = append(ids, existing.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

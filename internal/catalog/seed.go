package catalog

import (
	"context"
	"fmt"

	"eco-loop-rewards-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// SeedHubs inserts the configured hubs, leaving existing ids untouched.
func (s *Store) SeedHubs(ctx context.Context, hubs []models.HubConfig) (int, error) {
	created := 0
	for _, h := range hubs {
		result := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Hub{ID: h.Id, Name: h.Name, Location: h.Location, Distance: h.Distance})
		if result.Error != nil {
			return created, fmt.Errorf("failed to seed hub %s: %w", h.Id, result.Error)
		}
		created += int(result.RowsAffected)
	}

	zap.L().Info("Hubs seeded", zap.Int("created", created), zap.Int("configured", len(hubs)))
	return created, nil
}

// SeedImpact loads starting impact rows into an empty impact table.
func (s *Store) SeedImpact(ctx context.Context, seeds []models.ImpactSeed) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ImpactRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count impact records: %w", err)
	}
	if count > 0 || len(seeds) == 0 {
		return 0, nil
	}

	records := make([]models.ImpactRecord, 0, len(seeds))
	for _, seed := range seeds {
		waste, err := decimal.NewFromString(seed.WasteDivertedKg)
		if err != nil {
			return 0, fmt.Errorf("invalid waste_diverted_kg %q for %s: %w", seed.WasteDivertedKg, seed.Month, err)
		}
		co2, err := decimal.NewFromString(seed.Co2SavedKg)
		if err != nil {
			return 0, fmt.Errorf("invalid co2_saved_kg %q for %s: %w", seed.Co2SavedKg, seed.Month, err)
		}
		records = append(records, models.ImpactRecord{
			Category:        seed.Category,
			Outcome:         seed.Outcome,
			Items:           seed.Items,
			WasteDivertedKg: waste,
			Co2SavedKg:      co2,
			Month:           seed.Month,
		})
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return 0, fmt.Errorf("failed to seed impact records: %w", err)
	}
	zap.L().Info("Impact records seeded", zap.Int("count", len(records)))
	return len(records), nil
}

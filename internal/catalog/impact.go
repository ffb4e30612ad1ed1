package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

const OutcomeReused = "reused"

// FallbackDashboard is served while no impact has been recorded.
func FallbackDashboard() *models.ImpactDashboard {
	return &models.ImpactDashboard{
		ItemsReused:       150,
		WasteDivertedKg:   decimal.NewFromInt(250),
		Co2SavedKg:        decimal.NewFromInt(50),
		ReuseTransactions: 45,
		WasteOutcomes:     map[string]int{"reused": 60, "recycled": 30, "composted": 10},
		GrowthData: models.ImpactGrowthData{
			Labels: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"},
			Values: []int{10, 25, 40, 55, 70, 85},
		},
		Fallback: true,
	}
}

// RecordImpact stores one impact row. Month defaults to the current month.
func (s *Store) RecordImpact(ctx context.Context, record models.ImpactRecord) (*models.ImpactRecord, error) {
	record.Category = strings.TrimSpace(record.Category)
	record.Outcome = strings.ToLower(strings.TrimSpace(record.Outcome))
	if record.Category == "" || record.Outcome == "" {
		return nil, invalid("Missing required fields")
	}
	if record.Items < 0 || record.WasteDivertedKg.IsNegative() || record.Co2SavedKg.IsNegative() {
		return nil, invalid("Impact quantities cannot be negative")
	}
	if record.Month == "" {
		record.Month = s.now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", record.Month); err != nil {
		return nil, invalid("month must be YYYY-MM")
	}

	record.ID = 0
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to record impact: %w", err)
	}
	return &record, nil
}

// ImpactDashboard aggregates the impact table: totals, outcome shares in
// percent of items, and cumulative items per month.
func (s *Store) ImpactDashboard(ctx context.Context) (*models.ImpactDashboard, error) {
	var records []models.ImpactRecord
	if err := s.db.WithContext(ctx).Order("month, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load impact records: %w", err)
	}
	if len(records) == 0 {
		return FallbackDashboard(), nil
	}

	var reuseTransactions int64
	if err := s.db.WithContext(ctx).Model(&models.Redemption{}).Count(&reuseTransactions).Error; err != nil {
		return nil, fmt.Errorf("failed to count redemptions: %w", err)
	}

	dashboard := &models.ImpactDashboard{
		WasteDivertedKg:   decimal.Zero,
		Co2SavedKg:        decimal.Zero,
		ReuseTransactions: int(reuseTransactions),
		WasteOutcomes:     map[string]int{},
		GrowthData:        models.ImpactGrowthData{Labels: []string{}, Values: []int{}},
	}

	itemsByOutcome := map[string]int{}
	totalItems := 0
	for _, r := range records {
		dashboard.WasteDivertedKg = dashboard.WasteDivertedKg.Add(r.WasteDivertedKg)
		dashboard.Co2SavedKg = dashboard.Co2SavedKg.Add(r.Co2SavedKg)
		if r.Outcome == OutcomeReused {
			dashboard.ItemsReused += r.Items
		}
		itemsByOutcome[r.Outcome] += r.Items
		totalItems += r.Items

		// records are ordered by month
		growth := &dashboard.GrowthData
		if n := len(growth.Labels); n > 0 && growth.Labels[n-1] == r.Month {
			growth.Values[n-1] += r.Items
		} else {
			previous := 0
			if n > 0 {
				previous = growth.Values[n-1]
			}
			growth.Labels = append(growth.Labels, r.Month)
			growth.Values = append(growth.Values, previous+r.Items)
		}
	}

	for outcome, items := range itemsByOutcome {
		share := 0
		if totalItems > 0 {
			share = int(decimal.NewFromInt(int64(items * 100)).Div(decimal.NewFromInt(int64(totalItems))).Round(0).IntPart())
		}
		dashboard.WasteOutcomes[outcome] = share
	}

	return dashboard, nil
}

package workflow

import (
	"fmt"

	"github.com/duitrumah/household_backend/models"
)

type AlertType string

const (
	AlertTypeOverspent AlertType = "OVERSPENT"
	AlertTypeThreshold AlertType = "THRESHOLD"
)

// Threshold percentages for warning/critical utilization alerts.
const (
	ThresholdWarningPercent  int64 = 75
	ThresholdCriticalPercent int64 = 90
)

// BudgetAlert is a pure value object handed to the notification sink. This
// engine owns neither delivery nor deduplication.
type BudgetAlert struct {
	Type         AlertType         `json:"type"`
	Level        models.AlertLevel `json:"level"`
	BudgetId     int               `json:"budget_id"`
	CategoryId   int               `json:"category_id"`
	CategoryName string            `json:"category_name"`
	Message      string            `json:"message"`
	Utilization  float64           `json:"utilization"`
	Remaining    int64             `json:"remaining"`
}

// crossedThreshold compares in integer minor units: spent*100 >= total*pct.
// Floating-point utilization is display-only and never used here.
func crossedThreshold(spent, totalAllocated, percent int64) bool {
	if totalAllocated <= 0 {
		return false
	}
	return spent*100 >= totalAllocated*percent
}

// EvaluateBudgetAlerts derives at most one alert per category, in priority
// order: exceeded, then the 90% threshold, then the 75% threshold. The
// result depends only on the progress snapshot, so the on-demand and
// post-mutation paths always agree.
func EvaluateBudgetAlerts(progress *BudgetProgress) []BudgetAlert {
	alerts := make([]BudgetAlert, 0)
	for _, c := range progress.Categories {
		switch {
		case c.Spent > c.TotalAllocated:
			alerts = append(alerts, BudgetAlert{
				Type:         AlertTypeOverspent,
				Level:        models.AlertLevelCritical,
				BudgetId:     progress.BudgetId,
				CategoryId:   c.CategoryId,
				CategoryName: c.CategoryName,
				Message:      fmt.Sprintf("budget exceeded by %d", c.OverspentAmount),
				Utilization:  c.Utilization,
				Remaining:    c.Remaining,
			})
		case crossedThreshold(c.Spent, c.TotalAllocated, ThresholdCriticalPercent):
			alerts = append(alerts, BudgetAlert{
				Type:         AlertTypeThreshold,
				Level:        models.AlertLevelCritical,
				BudgetId:     progress.BudgetId,
				CategoryId:   c.CategoryId,
				CategoryName: c.CategoryName,
				Message:      fmt.Sprintf("category %s reached %d%% of its budget", c.CategoryName, ThresholdCriticalPercent),
				Utilization:  c.Utilization,
				Remaining:    c.Remaining,
			})
		case crossedThreshold(c.Spent, c.TotalAllocated, ThresholdWarningPercent):
			alerts = append(alerts, BudgetAlert{
				Type:         AlertTypeThreshold,
				Level:        models.AlertLevelWarning,
				BudgetId:     progress.BudgetId,
				CategoryId:   c.CategoryId,
				CategoryName: c.CategoryName,
				Message:      fmt.Sprintf("category %s reached %d%% of its budget", c.CategoryName, ThresholdWarningPercent),
				Utilization:  c.Utilization,
				Remaining:    c.Remaining,
			})
		}
	}
	return alerts
}

package analysis

import (
	"time"

	"github.com/fleetwatch/safety-backend-go/internal/models"
)

// Summarize computes request-level aggregates over the signal set.
// The summary feeds the insight stage and is always present in the
// response, even when every optional stage is disabled.
func Summarize(signals []models.SignalData) models.SummaryStats {
	summary := models.SummaryStats{
		TotalSignals: len(signals),
		BySeverity:   map[string]int{},
	}

	drivers := make(map[string]bool)
	vehicles := make(map[string]bool)
	var first, last time.Time

	for _, s := range signals {
		summary.BySeverity[s.Severity]++
		if s.DriverID != "" {
			drivers[s.DriverID] = true
		}
		if s.VehicleID != "" {
			vehicles[s.VehicleID] = true
		}
		if t, ok := s.ParseOccurredAt(); ok {
			if first.IsZero() || t.Before(first) {
				first = t
			}
			if last.IsZero() || t.After(last) {
				last = t
			}
		}
	}

	summary.DistinctDrivers = len(drivers)
	summary.DistinctVehicles = len(vehicles)

	if !first.IsZero() {
		summary.StartDate = first.Format("2006-01-02")
		summary.EndDate = last.Format("2006-01-02")
		spanDays := last.Sub(first).Hours()/24 + 1
		if spanDays < 1 {
			spanDays = 1
		}
		summary.AvgPerDay = float64(len(signals)) / spanDays
	}

	return summary
}

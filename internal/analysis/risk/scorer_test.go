package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/safety-backend-go/internal/models"
)

func signal(driver, severity, behavior, occurredAt string) models.SignalData {
	return models.SignalData{
		DriverID:      driver,
		DriverName:    "Driver " + driver,
		Severity:      severity,
		BehaviorLabel: behavior,
		OccurredAt:    occurredAt,
	}
}

func TestCalculateScoresEmptyInput(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	result := scorer.CalculateScores(nil)

	require.NotNil(t, result.Scores)
	require.Empty(t, result.Scores)
	require.Zero(t, result.FleetAvgScore)
	require.Zero(t, result.HighRiskCount)
}

func TestScoreDriverWorseningHistory(t *testing.T) {
	// 10 signals over a 10 day window, criticals concentrated at the end:
	// frequency 10 + severity 25.2 + trend 20 lands in the high band
	var signals []models.SignalData
	for i := 0; i < 4; i++ {
		signals = append(signals, signal("d1", "warning", "HarshBraking",
			fmt.Sprintf("2025-06-%02dT08:00:00Z", i+1)))
	}
	for i := 4; i < 10; i++ {
		signals = append(signals, signal("d1", "critical", "HarshBraking",
			fmt.Sprintf("2025-06-%02dT08:00:00Z", i+1)))
	}

	scorer := NewScorer(Config{PeriodDays: 10})
	result := scorer.CalculateScores(signals)

	require.Len(t, result.Scores, 1)
	score := result.Scores[0]
	require.InDelta(t, 55.2, score.RiskScore, 0.01)
	require.Equal(t, models.RiskLevelHigh, score.RiskLevel)
	require.Equal(t, models.TrendWorsening, score.Trend)
	require.Equal(t, 6, score.CriticalCount)
	require.Equal(t, 4, score.WarningCount)
	require.Equal(t, 1, result.HighRiskCount)
}

func TestScoreBoundsAndFactorSum(t *testing.T) {
	var signals []models.SignalData
	// Heavy history: every factor at or near its cap
	for i := 0; i < 60; i++ {
		behavior := []string{"Crash", "NearCollision", "MobileUsage", "Drowsy"}[i%4]
		signals = append(signals, signal("d1", "critical", behavior,
			fmt.Sprintf("2025-06-%02dT%02d:00:00Z", i%28+1, i%24)))
	}

	scorer := NewScorer(DefaultConfig())
	result := scorer.CalculateScores(signals)

	require.Len(t, result.Scores, 1)
	score := result.Scores[0]
	require.GreaterOrEqual(t, score.RiskScore, 0.0)
	require.LessOrEqual(t, score.RiskScore, 100.0)
	require.Equal(t, models.RiskLevelCritical, score.RiskLevel)

	var sum float64
	for _, f := range score.Factors {
		sum += f.Points
	}
	require.InDelta(t, score.RiskScore, sum, 0.01)
}

func TestTrendInsufficientHistory(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "critical", "Crash", "2025-06-01T08:00:00Z"),
		signal("d1", "critical", "Crash", "2025-06-02T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-03T08:00:00Z"),
	}

	scorer := NewScorer(DefaultConfig())
	result := scorer.CalculateScores(signals)

	require.Len(t, result.Scores, 1)
	score := result.Scores[0]
	require.Equal(t, models.TrendInsufficientData, score.Trend)
	require.Zero(t, score.TrendDelta)
}

func TestTrendImprovingIsBounded(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "critical", "Crash", "2025-06-01T08:00:00Z"),
		signal("d1", "critical", "Crash", "2025-06-02T08:00:00Z"),
		signal("d1", "critical", "Crash", "2025-06-03T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-04T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-05T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-06T08:00:00Z"),
	}

	trend, delta, points := severityTrend(signals)
	require.Equal(t, models.TrendImproving, trend)
	require.Less(t, delta, -0.5)
	require.Equal(t, minTrendPoints, points)
}

func TestScoresSortedDescending(t *testing.T) {
	var signals []models.SignalData
	for i := 0; i < 8; i++ {
		signals = append(signals, signal("risky", "critical", "Crash",
			fmt.Sprintf("2025-06-%02dT08:00:00Z", i+1)))
	}
	for i := 0; i < 4; i++ {
		signals = append(signals, signal("calm", "info", "Idling",
			fmt.Sprintf("2025-06-%02dT08:00:00Z", i+1)))
	}

	scorer := NewScorer(DefaultConfig())
	result := scorer.CalculateScores(signals)

	require.Len(t, result.Scores, 2)
	require.Equal(t, "risky", result.Scores[0].DriverID)
	require.GreaterOrEqual(t, result.Scores[0].RiskScore, result.Scores[1].RiskScore)
}

func TestRiskLevelThresholds(t *testing.T) {
	require.Equal(t, models.RiskLevelCritical, models.RiskLevelForScore(75))
	require.Equal(t, models.RiskLevelHigh, models.RiskLevelForScore(74.9))
	require.Equal(t, models.RiskLevelHigh, models.RiskLevelForScore(50))
	require.Equal(t, models.RiskLevelMedium, models.RiskLevelForScore(49.9))
	require.Equal(t, models.RiskLevelMedium, models.RiskLevelForScore(25))
	require.Equal(t, models.RiskLevelLow, models.RiskLevelForScore(24.9))
}

func TestTopBehaviorsCappedAtFive(t *testing.T) {
	var signals []models.SignalData
	labels := []string{"Crash", "Speeding", "HarshBraking", "Drowsy", "MobileUsage", "NoSeatbelt", "HarshTurning"}
	for i, label := range labels {
		signals = append(signals, signal("d1", "warning", label,
			fmt.Sprintf("2025-06-%02dT08:00:00Z", i+1)))
	}

	scorer := NewScorer(DefaultConfig())
	result := scorer.CalculateScores(signals)

	require.Len(t, result.Scores, 1)
	require.Len(t, result.Scores[0].TopBehaviors, 5)
}

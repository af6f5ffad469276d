package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/stats"
)

// Factor point budgets
const (
	maxFrequencyPoints = 25.0
	maxSeverityPoints  = 35.0
	maxDiversityPoints = 20.0
	maxTrendPoints     = 20.0
	minTrendPoints     = -10.0

	// trendMinSignals is the minimum history for a meaningful trend split
	trendMinSignals = 4
)

// highRiskBehaviors is the fixed set of behaviors that contribute to the
// behavior diversity factor
var highRiskBehaviors = map[string]bool{
	"Crash":          true,
	"NearCollision":  true,
	"SevereSpeeding": true,
	"HeavySpeeding":  true,
	"MobileUsage":    true,
	"Drowsy":         true,
	"NoSeatbelt":     true,
	"RanRedLight":    true,
}

// Config holds risk scoring parameters
type Config struct {
	PeriodDays int
}

// DefaultConfig returns the standard scoring window
func DefaultConfig() Config {
	return Config{PeriodDays: 30}
}

// Scorer computes composite 0-100 risk scores per driver.
// Pure function of the input signal set.
type Scorer struct {
	cfg Config
}

// NewScorer creates a driver risk scorer
func NewScorer(cfg Config) *Scorer {
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = 30
	}
	return &Scorer{cfg: cfg}
}

// CalculateScores scores every driver present in the signal set. Drivers
// with zero signals never appear; an empty input yields an empty result.
func (s *Scorer) CalculateScores(signals []models.SignalData) models.RiskResult {
	result := models.RiskResult{Scores: []models.DriverRiskScore{}}

	groups := models.GroupByDriver(signals)
	if len(groups) == 0 {
		return result
	}

	scores := make([]float64, 0, len(groups))
	for _, group := range groups {
		score := s.scoreDriver(group)
		result.Scores = append(result.Scores, score)
		scores = append(scores, score.RiskScore)
		if score.RiskLevel == models.RiskLevelHigh || score.RiskLevel == models.RiskLevelCritical {
			result.HighRiskCount++
		}
	}

	sort.SliceStable(result.Scores, func(i, j int) bool {
		return result.Scores[i].RiskScore > result.Scores[j].RiskScore
	})
	result.FleetAvgScore = stats.Mean(scores)
	return result
}

// scoreDriver computes the four additive factors for one driver
func (s *Scorer) scoreDriver(group models.DriverGroup) models.DriverRiskScore {
	signals := group.Signals
	n := len(signals)

	criticals, warnings := 0, 0
	behaviorCounts := make(map[string]int)
	highRisk := make(map[string]bool)
	var weightSum float64

	for _, sig := range signals {
		weightSum += sig.SeverityWeight()
		switch sig.Severity {
		case models.SeverityCritical:
			criticals++
		case models.SeverityWarning:
			warnings++
		}
		if sig.BehaviorLabel != "" {
			behaviorCounts[sig.BehaviorLabel]++
			if highRiskBehaviors[sig.BehaviorLabel] {
				highRisk[sig.BehaviorLabel] = true
			}
		}
	}

	// Frequency: signal rate over the analysis window
	freqValue := float64(n) / float64(s.cfg.PeriodDays)
	freqPoints := math.Min(maxFrequencyPoints, freqValue*10)

	// Severity: weighted mix normalized against an all-critical history
	sevValue := weightSum / (severityWeightCritical * float64(n))
	sevPoints := sevValue * maxSeverityPoints

	// Behavior diversity: distinct high-risk behaviors
	divValue := float64(len(highRisk))
	divPoints := math.Min(maxDiversityPoints, 5*divValue)

	// Trend: severity shift between the chronological halves
	trend, trendDelta, trendPoints := severityTrend(signals)

	total := stats.Clamp(freqPoints+sevPoints+divPoints+trendPoints, 0, 100)

	factors := []models.RiskFactor{
		{
			Name:   "frequency",
			Weight: maxFrequencyPoints,
			Value:  freqValue,
			Points: freqPoints,
			Description: fmt.Sprintf("%d signals over %d days (%.2f/day)",
				n, s.cfg.PeriodDays, freqValue),
		},
		{
			Name:   "severity",
			Weight: maxSeverityPoints,
			Value:  sevValue,
			Points: sevPoints,
			Description: fmt.Sprintf("%d critical, %d warning of %d signals",
				criticals, warnings, n),
		},
		{
			Name:        "behavior_diversity",
			Weight:      maxDiversityPoints,
			Value:       divValue,
			Points:      divPoints,
			Description: fmt.Sprintf("%d distinct high-risk behaviors", len(highRisk)),
		},
		{
			Name:        "trend",
			Weight:      maxTrendPoints,
			Value:       trendDelta,
			Points:      trendPoints,
			Description: fmt.Sprintf("severity trend %s (delta %.2f)", trend, trendDelta),
		},
	}

	return models.DriverRiskScore{
		DriverID:      group.DriverID,
		DriverName:    group.DriverName,
		RiskScore:     total,
		RiskLevel:     models.RiskLevelForScore(total),
		SignalCount:   n,
		CriticalCount: criticals,
		WarningCount:  warnings,
		TopBehaviors:  topBehaviors(behaviorCounts, 5),
		Factors:       factors,
		Trend:         trend,
		TrendDelta:    trendDelta,
	}
}

// severityWeightCritical is the theoretical per-signal maximum weight
const severityWeightCritical = 10.0

// severityTrend compares mean severity weight between the chronological
// halves of a driver's history. Fewer than four signals is too little
// history to call a trend, which is reported distinctly rather than
// passed off as stable.
func severityTrend(signals []models.SignalData) (trend string, delta, points float64) {
	if len(signals) < trendMinSignals {
		return models.TrendInsufficientData, 0, 0
	}

	sorted := models.SortChronologically(signals)
	mid := len(sorted) / 2

	first := make([]float64, 0, mid)
	second := make([]float64, 0, len(sorted)-mid)
	for i, sig := range sorted {
		if i < mid {
			first = append(first, sig.SeverityWeight())
		} else {
			second = append(second, sig.SeverityWeight())
		}
	}

	delta = stats.Mean(second) - stats.Mean(first)
	switch {
	case delta > 0.5:
		return models.TrendWorsening, delta, math.Min(maxTrendPoints, delta*10)
	case delta < -0.5:
		return models.TrendImproving, delta, math.Max(minTrendPoints, 5*delta)
	default:
		return models.TrendStable, delta, 0
	}
}

// topBehaviors ranks behaviors by frequency, ties broken alphabetically
func topBehaviors(counts map[string]int, limit int) []string {
	type entry struct {
		label string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, entry{label, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	return labels
}

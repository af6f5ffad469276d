package prediction

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/stats"
)

const (
	maxProbability = 0.95
	minReportProb  = 0.2

	minConfidence = 0.3
	maxConfidence = 0.9

	// accelerationCap bounds the recent-frequency multiplier
	accelerationCap = 1.5

	dateLayout = "2006-01-02"
)

// behaviorRiskWeights is the fixed incident-likelihood weight per behavior
var behaviorRiskWeights = map[string]float64{
	"Crash":             0.95,
	"NearCollision":     0.85,
	"RanRedLight":       0.75,
	"SevereSpeeding":    0.70,
	"Drowsy":            0.65,
	"HeavySpeeding":     0.60,
	"MobileUsage":       0.55,
	"NoSeatbelt":        0.40,
	"Speeding":          0.35,
	"HarshBraking":      0.30,
	"HarshTurning":      0.25,
	"HarshAcceleration": 0.20,
}

// Config holds prediction parameters
type Config struct {
	TopN      int
	DaysAhead int
}

// DefaultConfig returns the standard prediction horizon
func DefaultConfig() Config {
	return Config{TopN: 10, DaysAhead: 7}
}

// Predictor estimates near-term incident probability per driver and
// forecasts aggregate signal volume. Pure function of the input set.
type Predictor struct {
	cfg Config
}

// NewPredictor creates an incident predictor
func NewPredictor(cfg Config) *Predictor {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = 7
	}
	return &Predictor{cfg: cfg}
}

// PredictAll produces driver predictions, the volume forecast and the
// advisory alert strings. An empty signal set yields the documented
// empty/default structure without error.
func (p *Predictor) PredictAll(signals []models.SignalData) models.PredictionResult {
	result := models.PredictionResult{
		Drivers: []models.DriverPrediction{},
		Volume:  p.ForecastVolume(signals, p.cfg.DaysAhead),
		Alerts:  []string{},
	}

	for _, group := range models.GroupByDriver(signals) {
		if len(group.Signals) < 2 {
			continue
		}
		pred := predictDriver(group)
		if pred.IncidentProbability > minReportProb {
			result.Drivers = append(result.Drivers, pred)
		}
	}

	sort.SliceStable(result.Drivers, func(i, j int) bool {
		return result.Drivers[i].IncidentProbability > result.Drivers[j].IncidentProbability
	})
	if len(result.Drivers) > p.cfg.TopN {
		result.Drivers = result.Drivers[:p.cfg.TopN]
	}

	result.Alerts = buildAlerts(result.Drivers, result.Volume)
	return result
}

// predictDriver blends severity mix, behavior weights and recent
// acceleration into one incident probability
func predictDriver(group models.DriverGroup) models.DriverPrediction {
	signals := group.Signals
	n := len(signals)

	criticals := 0
	var behaviorWeight, severityWeight float64
	for _, s := range signals {
		if s.Severity == models.SeverityCritical {
			criticals++
		}
		behaviorWeight += behaviorRiskWeights[s.BehaviorLabel]
		severityWeight += s.SeverityWeight()
	}

	severityProb := float64(criticals) / float64(n)
	behaviorProb := math.Min(1, behaviorWeight/float64(n))
	accel := accelerationFactor(signals)

	probability := math.Min(maxProbability, (0.4*severityProb+0.6*behaviorProb)*accel)

	// Current risk proxy: severity mix scaled to 0-100
	currentRisk := severityWeight / (10 * float64(n)) * 100
	predicted7d := math.Min(100, currentRisk*accel)

	confidence := math.Min(maxConfidence, minConfidence+float64(n)/50.0*0.6)

	var warnings []string
	if accel > 1 {
		warnings = append(warnings, "signal frequency is accelerating")
	}
	if severityProb > 0.5 {
		warnings = append(warnings, fmt.Sprintf("%d of %d signals are critical", criticals, n))
	}
	for _, label := range dominantHighRiskBehaviors(signals) {
		warnings = append(warnings, fmt.Sprintf("repeated high-risk behavior: %s", label))
	}
	if warnings == nil {
		warnings = []string{}
	}

	return models.DriverPrediction{
		DriverID:            group.DriverID,
		DriverName:          group.DriverName,
		CurrentRiskScore:    currentRisk,
		PredictedRisk7d:     predicted7d,
		IncidentProbability: probability,
		Confidence:          confidence,
		WarningSignals:      warnings,
		Recommendation:      recommendationFor(probability),
	}
}

// accelerationFactor detects a recent frequency increase by splitting the
// driver's history at the temporal midpoint. Returns 1.5 when the second
// half holds more than 1.5x the first half's signals, else 1.0.
func accelerationFactor(signals []models.SignalData) float64 {
	var times []time.Time
	for _, s := range signals {
		if t, ok := s.ParseOccurredAt(); ok {
			times = append(times, t)
		}
	}
	if len(times) < 2 {
		return 1.0
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	mid := times[0].Add(times[len(times)-1].Sub(times[0]) / 2)
	first, second := 0, 0
	for _, t := range times {
		if t.After(mid) {
			second++
		} else {
			first++
		}
	}

	if first == 0 {
		if second > 0 {
			return accelerationCap
		}
		return 1.0
	}
	if float64(second)/float64(first) > accelerationCap {
		return accelerationCap
	}
	return 1.0
}

// dominantHighRiskBehaviors lists behaviors weighted >= 0.6 that appear
// more than once, worst first
func dominantHighRiskBehaviors(signals []models.SignalData) []string {
	counts := make(map[string]int)
	for _, s := range signals {
		if behaviorRiskWeights[s.BehaviorLabel] >= 0.6 {
			counts[s.BehaviorLabel]++
		}
	}
	var labels []string
	for label, c := range counts {
		if c > 1 {
			labels = append(labels, label)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		if behaviorRiskWeights[labels[i]] != behaviorRiskWeights[labels[j]] {
			return behaviorRiskWeights[labels[i]] > behaviorRiskWeights[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

func recommendationFor(probability float64) string {
	switch {
	case probability > 0.75:
		return "Immediate intervention: schedule an in-person coaching session and review recent trips"
	case probability > 0.5:
		return "Schedule a coaching session within the week and monitor daily"
	case probability > 0.35:
		return "Increase monitoring frequency and flag for the next safety review"
	default:
		return "Continue routine monitoring"
	}
}

// ForecastVolume fits ordinary least squares on daily signal counts and
// extrapolates daysAhead entries. Under 3 distinct days of data the
// forecast is flat at the current average with fixed 0.3 confidence.
func (p *Predictor) ForecastVolume(signals []models.SignalData, daysAhead int) models.VolumeForecast {
	if daysAhead <= 0 {
		daysAhead = p.cfg.DaysAhead
	}

	daily := make(map[string]int)
	var first, last time.Time
	for _, s := range signals {
		t, ok := s.ParseOccurredAt()
		if !ok {
			continue
		}
		day := t.Format(dateLayout)
		daily[day]++
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if last.IsZero() || t.After(last) {
			last = t
		}
	}

	forecast := models.VolumeForecast{
		Trend:      models.TrendStable,
		Confidence: minConfidence,
		Forecast:   []models.ForecastDay{},
	}

	if len(daily) == 0 {
		start := time.Now().UTC()
		for i := 1; i <= daysAhead; i++ {
			forecast.Forecast = append(forecast.Forecast, models.ForecastDay{
				Date: start.AddDate(0, 0, i).Format(dateLayout),
			})
		}
		return forecast
	}

	// Daily series over the full span, zeros included
	firstDay, _ := time.Parse(dateLayout, first.Format(dateLayout))
	lastDay, _ := time.Parse(dateLayout, last.Format(dateLayout))
	spanDays := int(lastDay.Sub(firstDay).Hours()/24) + 1

	xs := make([]float64, spanDays)
	ys := make([]float64, spanDays)
	for i := 0; i < spanDays; i++ {
		day := firstDay.AddDate(0, 0, i).Format(dateLayout)
		xs[i] = float64(i)
		ys[i] = float64(daily[day])
	}

	forecast.CurrentAvgDaily = stats.Mean(ys)

	if len(daily) < 3 {
		flat := int(math.Round(forecast.CurrentAvgDaily))
		if flat < 0 {
			flat = 0
		}
		for i := 1; i <= daysAhead; i++ {
			forecast.Forecast = append(forecast.Forecast, models.ForecastDay{
				Date:           lastDay.AddDate(0, 0, i).Format(dateLayout),
				PredictedCount: flat,
			})
		}
		forecast.PredictedAvgDaily = float64(flat)
		return forecast
	}

	slope, intercept := stats.LinearRegression(xs, ys)
	switch {
	case slope > 0.5:
		forecast.Trend = "increasing"
	case slope < -0.5:
		forecast.Trend = "decreasing"
	}
	forecast.Confidence = stats.Clamp(stats.RSquared(xs, ys), minConfidence, maxConfidence)

	var predicted []float64
	for i := 1; i <= daysAhead; i++ {
		count := int(math.Round(intercept + slope*float64(spanDays-1+i)))
		if count < 0 {
			count = 0
		}
		predicted = append(predicted, float64(count))
		forecast.Forecast = append(forecast.Forecast, models.ForecastDay{
			Date:           lastDay.AddDate(0, 0, i).Format(dateLayout),
			PredictedCount: count,
		})
	}
	forecast.PredictedAvgDaily = stats.Mean(predicted)

	return forecast
}

// buildAlerts derives the advisory alert strings. These are display text
// only; nothing downstream parses them.
func buildAlerts(drivers []models.DriverPrediction, volume models.VolumeForecast) []string {
	alerts := []string{}

	elevated := 0
	for _, d := range drivers {
		if d.IncidentProbability > 0.6 {
			elevated++
		}
	}
	if elevated >= 3 {
		alerts = append(alerts, fmt.Sprintf(
			"%d drivers carry an incident probability above 60%% for the coming week", elevated))
	}

	if volume.CurrentAvgDaily > 0 && volume.PredictedAvgDaily > volume.CurrentAvgDaily*1.3 {
		alerts = append(alerts, fmt.Sprintf(
			"Forecasted signal volume is rising from %.1f to %.1f per day (+%.0f%%)",
			volume.CurrentAvgDaily, volume.PredictedAvgDaily,
			(volume.PredictedAvgDaily/volume.CurrentAvgDaily-1)*100))
	}

	for _, d := range drivers {
		if d.IncidentProbability > 0.75 {
			name := d.DriverName
			if name == "" {
				name = d.DriverID
			}
			alerts = append(alerts, fmt.Sprintf(
				"%s has a %.0f%% incident probability and needs immediate attention",
				name, d.IncidentProbability*100))
			break
		}
	}

	return alerts
}

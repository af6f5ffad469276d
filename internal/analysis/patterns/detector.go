package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/spatial"
	"github.com/fleetwatch/safety-backend-go/internal/stats"
)

// Config holds pattern detection thresholds
type Config struct {
	MinCorrelation float64
	MinClusterSize int
}

// DefaultConfig returns the standard detection thresholds
func DefaultConfig() Config {
	return Config{
		MinCorrelation: 0.3,
		MinClusterSize: 3,
	}
}

// Detector finds statistical patterns in a safety signal set.
// All detections are pure functions of the input slice; the detector
// holds only configuration and never mutates signals.
type Detector struct {
	cfg Config
}

// NewDetector creates a pattern detector
func NewDetector(cfg Config) *Detector {
	if cfg.MinCorrelation <= 0 {
		cfg.MinCorrelation = 0.3
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 3
	}
	return &Detector{cfg: cfg}
}

// DetectAll runs the four independent detections and assembles the result.
// An empty signal set yields an empty result, not an error.
func (d *Detector) DetectAll(signals []models.SignalData) models.PatternResult {
	result := models.PatternResult{
		Correlations:     []models.BehaviorCorrelation{},
		TemporalHotspots: []models.TemporalHotspot{},
		GeoClusters:      []models.GeoCluster{},
		Escalations:      []models.EscalationPattern{},
	}
	if len(signals) == 0 {
		return result
	}

	result.Correlations = d.DetectBehaviorCorrelations(signals)
	result.TemporalHotspots = d.DetectTemporalHotspots(signals)
	result.GeoClusters = d.DetectGeographicClusters(signals)
	result.Escalations = d.DetectEscalationPatterns(signals)
	return result
}

// DetectBehaviorCorrelations finds behavior pairs that co-occur across
// drivers. Each driver contributes each distinct behavior once; the phi
// coefficient over the driver population measures association strength.
func (d *Detector) DetectBehaviorCorrelations(signals []models.SignalData) []models.BehaviorCorrelation {
	// Distinct behaviors per driver, plus behavior first-seen order for
	// stable tie-breaking later
	driverBehaviors := make(map[string]map[string]bool)
	var behaviorOrder []string
	seenBehavior := make(map[string]bool)

	for _, s := range signals {
		if s.DriverID == "" || s.BehaviorLabel == "" {
			continue
		}
		set, ok := driverBehaviors[s.DriverID]
		if !ok {
			set = make(map[string]bool)
			driverBehaviors[s.DriverID] = set
		}
		set[s.BehaviorLabel] = true
		if !seenBehavior[s.BehaviorLabel] {
			seenBehavior[s.BehaviorLabel] = true
			behaviorOrder = append(behaviorOrder, s.BehaviorLabel)
		}
	}

	totalDrivers := len(driverBehaviors)
	if totalDrivers < 3 {
		return []models.BehaviorCorrelation{}
	}

	// Marginal counts per behavior
	behaviorCounts := make(map[string]int)
	for _, set := range driverBehaviors {
		for b := range set {
			behaviorCounts[b]++
		}
	}

	var correlations []models.BehaviorCorrelation
	for i := 0; i < len(behaviorOrder); i++ {
		for j := i + 1; j < len(behaviorOrder); j++ {
			b1, b2 := behaviorOrder[i], behaviorOrder[j]

			both := 0
			for _, set := range driverBehaviors {
				if set[b1] && set[b2] {
					both++
				}
			}
			if both < 2 {
				continue
			}

			p1 := float64(behaviorCounts[b1]) / float64(totalDrivers)
			p2 := float64(behaviorCounts[b2]) / float64(totalDrivers)
			pBoth := float64(both) / float64(totalDrivers)
			corr := stats.PhiCoefficient(p1, p2, pBoth)

			if math.Abs(corr) < d.cfg.MinCorrelation {
				continue
			}

			// Sorted pair identity: (A,B) and (B,A) are the same entity
			first, second := b1, b2
			if second < first {
				first, second = second, first
			}
			correlations = append(correlations, models.BehaviorCorrelation{
				Behavior1:         first,
				Behavior2:         second,
				Correlation:       corr,
				CoOccurrenceCount: both,
				Description: fmt.Sprintf("%s and %s occur together for %d of %d drivers",
					first, second, both, totalDrivers),
			})
		}
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return math.Abs(correlations[i].Correlation) > math.Abs(correlations[j].Correlation)
	})
	if len(correlations) > 10 {
		correlations = correlations[:10]
	}
	if correlations == nil {
		correlations = []models.BehaviorCorrelation{}
	}
	return correlations
}

// bucket accumulates counts for one hour or weekday slot
type bucket struct {
	count    int
	severity map[string]int
}

// DetectTemporalHotspots buckets signals by hour-of-day and weekday and
// reports buckets with statistically elevated volume. Signals with
// malformed timestamps are skipped, never fatal.
func (d *Detector) DetectTemporalHotspots(signals []models.SignalData) []models.TemporalHotspot {
	hours := make([]bucket, 24)
	days := make([]bucket, 7)
	for i := range hours {
		hours[i].severity = make(map[string]int)
	}
	for i := range days {
		days[i].severity = make(map[string]int)
	}

	parsed := 0
	for _, s := range signals {
		t, ok := s.ParseOccurredAt()
		if !ok {
			continue
		}
		parsed++
		h := t.Hour()
		hours[h].count++
		hours[h].severity[s.Severity]++
		w := int(t.Weekday())
		days[w].count++
		days[w].severity[s.Severity]++
	}
	if parsed == 0 {
		return []models.TemporalHotspot{}
	}

	var hotspots []models.TemporalHotspot

	hourAvg := float64(parsed) / 24.0
	for h, b := range hours {
		if float64(b.count) > 1.5*hourAvg && b.count >= 5 {
			hotspots = append(hotspots, models.TemporalHotspot{
				Type:              "hour",
				Value:             fmt.Sprintf("%02d:00", h),
				SignalCount:       b.count,
				SeverityBreakdown: copyBreakdown(b.severity),
				RiskLevel:         bucketRiskLevel(b),
				Description: fmt.Sprintf("%d signals around %02d:00, %.1fx the hourly average",
					b.count, h, float64(b.count)/math.Max(hourAvg, 1e-9)),
			})
		}
	}

	dayAvg := float64(parsed) / 7.0
	for w, b := range days {
		if float64(b.count) > 1.3*dayAvg && b.count >= 5 {
			name := time.Weekday(w).String()
			hotspots = append(hotspots, models.TemporalHotspot{
				Type:              "day_of_week",
				Value:             name,
				SignalCount:       b.count,
				SeverityBreakdown: copyBreakdown(b.severity),
				RiskLevel:         bucketRiskLevel(b),
				Description: fmt.Sprintf("%d signals on %ss, %.1fx the daily average",
					b.count, name, float64(b.count)/math.Max(dayAvg, 1e-9)),
			})
		}
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].SignalCount > hotspots[j].SignalCount
	})
	if len(hotspots) > 8 {
		hotspots = hotspots[:8]
	}
	if hotspots == nil {
		hotspots = []models.TemporalHotspot{}
	}
	return hotspots
}

// bucketRiskLevel derives the hotspot risk tier from its severity mix
func bucketRiskLevel(b bucket) string {
	if b.count == 0 {
		return models.RiskLevelLow
	}
	critRatio := float64(b.severity[models.SeverityCritical]) / float64(b.count)
	warnRatio := float64(b.severity[models.SeverityWarning]) / float64(b.count)
	switch {
	case critRatio > 0.3:
		return models.RiskLevelHigh
	case critRatio > 0.1 || warnRatio > 0.5:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func copyBreakdown(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// gridCell accumulates signals assigned to one 0.01-degree cell
type gridCell struct {
	latSum, lonSum float64
	members        []models.SignalData
}

// DetectGeographicClusters groups located signals into 0.01-degree grid
// cells and reports cells holding at least min_cluster_size signals.
// Signals missing either coordinate are excluded.
func (d *Detector) DetectGeographicClusters(signals []models.SignalData) []models.GeoCluster {
	cells := make(map[[2]int]*gridCell)
	var order [][2]int

	for _, s := range signals {
		if !s.HasLocation() {
			continue
		}
		latIdx, lonIdx := spatial.GridKey(*s.Latitude, *s.Longitude)
		key := [2]int{latIdx, lonIdx}
		cell, ok := cells[key]
		if !ok {
			cell = &gridCell{}
			cells[key] = cell
			order = append(order, key)
		}
		cell.latSum += *s.Latitude
		cell.lonSum += *s.Longitude
		cell.members = append(cell.members, s)
	}

	var clusters []models.GeoCluster
	for _, key := range order {
		cell := cells[key]
		n := len(cell.members)
		if n < d.cfg.MinClusterSize {
			continue
		}

		centerLat := cell.latSum / float64(n)
		centerLon := cell.lonSum / float64(n)

		// Spread is the farthest member distance from the centroid
		spread := 0.0
		behaviorCounts := make(map[string]int)
		for _, m := range cell.members {
			dist := spatial.HaversineDistance(centerLat, centerLon, *m.Latitude, *m.Longitude)
			if dist > spread {
				spread = dist
			}
			if m.BehaviorLabel != "" {
				behaviorCounts[m.BehaviorLabel]++
			}
		}

		clusters = append(clusters, models.GeoCluster{
			CenterLatitude:  centerLat,
			CenterLongitude: centerLon,
			RadiusKm:        1.5,
			SignalCount:     n,
			SpreadKm:        spread / 1000.0,
			TopBehaviors:    topBehaviors(behaviorCounts, 3),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].SignalCount > clusters[j].SignalCount
	})
	if len(clusters) > 5 {
		clusters = clusters[:5]
	}
	if clusters == nil {
		clusters = []models.GeoCluster{}
	}
	return clusters
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

// DetectEscalationPatterns flags drivers whose severity mix is shifting
// toward critical. Drivers with no warning or critical signals are skipped
// entirely since there is nothing to escalate.
func (d *Detector) DetectEscalationPatterns(signals []models.SignalData) []models.EscalationPattern {
	var escalations []models.EscalationPattern
	for _, group := range models.GroupByDriver(signals) {
		driverSignals := group.Signals
		if len(driverSignals) < 3 {
			continue
		}

		warnings, criticals := 0, 0
		for _, s := range driverSignals {
			switch s.Severity {
			case models.SeverityWarning:
				warnings++
			case models.SeverityCritical:
				criticals++
			}
		}
		if warnings+criticals == 0 {
			continue
		}
		rate := float64(criticals) / float64(warnings+criticals)

		trend := escalationTrend(driverSignals)
		if rate <= 0.3 && trend != models.TrendWorsening {
			continue
		}

		escalations = append(escalations, models.EscalationPattern{
			DriverID:       group.DriverID,
			DriverName:     group.DriverName,
			WarningCount:   warnings,
			CriticalCount:  criticals,
			EscalationRate: rate,
			Trend:          trend,
			Description: fmt.Sprintf("%d of %d severity-bearing signals are critical, trend %s",
				criticals, warnings+criticals, trend),
		})
	}

	sort.SliceStable(escalations, func(i, j int) bool {
		return escalations[i].EscalationRate > escalations[j].EscalationRate
	})
	if len(escalations) > 10 {
		escalations = escalations[:10]
	}
	if escalations == nil {
		escalations = []models.EscalationPattern{}
	}
	return escalations
}

// escalationTrend splits a driver's chronologically sorted signals at the
// midpoint and compares critical counts between the halves
func escalationTrend(signals []models.SignalData) string {
	sorted := models.SortChronologically(signals)
	mid := len(sorted) / 2
	firstCrit, secondCrit := 0, 0
	for i, s := range sorted {
		if s.Severity != models.SeverityCritical {
			continue
		}
		if i < mid {
			firstCrit++
		} else {
			secondCrit++
		}
	}
	switch {
	case secondCrit-firstCrit > 1:
		return models.TrendWorsening
	case firstCrit-secondCrit > 1:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

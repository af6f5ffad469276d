package patterns

import (
	"fmt"
	"reflect"
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

func locatedSignal(driver, behavior string, lat, lon float64) models.SignalData {
	return models.SignalData{
		DriverID:      driver,
		Severity:      models.SeverityWarning,
		BehaviorLabel: behavior,
		OccurredAt:    "2025-06-01T10:00:00Z",
		Latitude:      &lat,
		Longitude:     &lon,
	}
}

func TestBehaviorCorrelationsCoOccurringPair(t *testing.T) {
	// Two drivers exhibit both behaviors, one only braking, one neither:
	// the pair should correlate positively above the default threshold
	signals := []models.SignalData{
		signal("d1", "warning", "HarshBraking", "2025-06-01T08:00:00Z"),
		signal("d1", "warning", "Speeding", "2025-06-01T09:00:00Z"),
		signal("d2", "warning", "HarshBraking", "2025-06-02T08:00:00Z"),
		signal("d2", "warning", "Speeding", "2025-06-02T09:00:00Z"),
		signal("d3", "warning", "HarshBraking", "2025-06-03T08:00:00Z"),
		signal("d4", "info", "Distracted", "2025-06-03T10:00:00Z"),
	}

	detector := NewDetector(DefaultConfig())
	correlations := detector.DetectBehaviorCorrelations(signals)

	require.Len(t, correlations, 1)
	c := correlations[0]
	require.Equal(t, "HarshBraking", c.Behavior1)
	require.Equal(t, "Speeding", c.Behavior2)
	require.GreaterOrEqual(t, c.Correlation, 0.3)
	require.Equal(t, 2, c.CoOccurrenceCount)
}

func TestBehaviorCorrelationsSymmetric(t *testing.T) {
	base := []models.SignalData{
		signal("d1", "warning", "HarshBraking", "2025-06-01T08:00:00Z"),
		signal("d1", "warning", "Speeding", "2025-06-01T09:00:00Z"),
		signal("d2", "warning", "HarshBraking", "2025-06-02T08:00:00Z"),
		signal("d2", "warning", "Speeding", "2025-06-02T09:00:00Z"),
		signal("d3", "warning", "HarshBraking", "2025-06-03T08:00:00Z"),
		signal("d4", "info", "Distracted", "2025-06-03T10:00:00Z"),
	}

	// Same signal set with the two labels seen in the opposite order
	swapped := make([]models.SignalData, len(base))
	copy(swapped, base)
	swapped[0], swapped[1] = swapped[1], swapped[0]

	detector := NewDetector(DefaultConfig())
	a := detector.DetectBehaviorCorrelations(base)
	b := detector.DetectBehaviorCorrelations(swapped)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, a[0].Correlation, b[0].Correlation)
	require.Equal(t, a[0].Behavior1, b[0].Behavior1)
	require.Equal(t, a[0].Behavior2, b[0].Behavior2)
}

func TestBehaviorCorrelationsNeedThreeDrivers(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "warning", "HarshBraking", "2025-06-01T08:00:00Z"),
		signal("d1", "warning", "Speeding", "2025-06-01T09:00:00Z"),
		signal("d2", "warning", "HarshBraking", "2025-06-02T08:00:00Z"),
		signal("d2", "warning", "Speeding", "2025-06-02T09:00:00Z"),
	}

	detector := NewDetector(DefaultConfig())
	require.Empty(t, detector.DetectBehaviorCorrelations(signals))
}

func TestTemporalHotspotsElevatedHour(t *testing.T) {
	var signals []models.SignalData
	// 12 signals at 08:00 across different days, 6 scattered elsewhere
	for i := 0; i < 12; i++ {
		severity := models.SeverityWarning
		if i < 5 {
			severity = models.SeverityCritical
		}
		signals = append(signals, signal("d1", severity, "Speeding",
			fmt.Sprintf("2025-06-%02dT08:15:00Z", i+1)))
	}
	for i := 0; i < 6; i++ {
		signals = append(signals, signal("d2", "info", "HarshBraking",
			fmt.Sprintf("2025-06-%02dT%02d:00:00Z", i+1, 10+i)))
	}

	detector := NewDetector(DefaultConfig())
	hotspots := detector.DetectTemporalHotspots(signals)

	require.NotEmpty(t, hotspots)
	var hourSpot *models.TemporalHotspot
	for i := range hotspots {
		if hotspots[i].Type == "hour" && hotspots[i].Value == "08:00" {
			hourSpot = &hotspots[i]
		}
	}
	require.NotNil(t, hourSpot, "expected an 08:00 hotspot")
	require.Equal(t, 12, hourSpot.SignalCount)
	// 5 of 12 critical exceeds the 0.3 ratio
	require.Equal(t, models.RiskLevelHigh, hourSpot.RiskLevel)
}

func TestTemporalHotspotsSkipMalformedTimestamps(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "warning", "Speeding", "not-a-timestamp"),
		signal("d1", "warning", "Speeding", ""),
	}

	detector := NewDetector(DefaultConfig())
	require.Empty(t, detector.DetectTemporalHotspots(signals))
}

func TestGeographicClustersHonorMinSize(t *testing.T) {
	signals := []models.SignalData{
		// Four signals inside one 0.01 degree cell
		locatedSignal("d1", "HarshBraking", 52.5201, 13.4050),
		locatedSignal("d2", "HarshBraking", 52.5203, 13.4053),
		locatedSignal("d3", "Speeding", 52.5205, 13.4056),
		locatedSignal("d4", "HarshBraking", 52.5207, 13.4059),
		// Two signals in a far cell: below min_cluster_size
		locatedSignal("d5", "Speeding", 48.8566, 2.3522),
		locatedSignal("d6", "Speeding", 48.8567, 2.3523),
		// No coordinates: excluded
		signal("d7", "critical", "Crash", "2025-06-01T10:00:00Z"),
	}

	detector := NewDetector(DefaultConfig())
	clusters := detector.DetectGeographicClusters(signals)

	require.Len(t, clusters, 1)
	cluster := clusters[0]
	require.GreaterOrEqual(t, cluster.SignalCount, 3)
	require.Equal(t, 4, cluster.SignalCount)
	require.InDelta(t, 52.5204, cluster.CenterLatitude, 0.001)
	require.InDelta(t, 13.4054, cluster.CenterLongitude, 0.001)
	require.Equal(t, 1.5, cluster.RadiusKm)
	require.Equal(t, []string{"HarshBraking", "Speeding"}, cluster.TopBehaviors)

	for _, c := range clusters {
		require.GreaterOrEqual(t, c.SignalCount, 3)
	}
}

func TestEscalationPatternsWorseningDriver(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "warning", "Speeding", "2025-06-01T08:00:00Z"),
		signal("d1", "warning", "Speeding", "2025-06-02T08:00:00Z"),
		signal("d1", "warning", "Speeding", "2025-06-03T08:00:00Z"),
		signal("d1", "critical", "Crash", "2025-06-04T08:00:00Z"),
		signal("d1", "critical", "NearCollision", "2025-06-05T08:00:00Z"),
		signal("d1", "critical", "Crash", "2025-06-06T08:00:00Z"),
	}

	detector := NewDetector(DefaultConfig())
	escalations := detector.DetectEscalationPatterns(signals)

	require.Len(t, escalations, 1)
	e := escalations[0]
	require.Equal(t, "d1", e.DriverID)
	require.Equal(t, 3, e.WarningCount)
	require.Equal(t, 3, e.CriticalCount)
	require.InDelta(t, 0.5, e.EscalationRate, 1e-9)
	require.Equal(t, models.TrendWorsening, e.Trend)
}

func TestEscalationSkipsDriversWithoutSeverityBearingSignals(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "info", "Idling", "2025-06-01T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-02T08:00:00Z"),
		signal("d1", "info", "Idling", "2025-06-03T08:00:00Z"),
	}

	detector := NewDetector(DefaultConfig())
	require.Empty(t, detector.DetectEscalationPatterns(signals))
}

func TestDetectAllEmptyInput(t *testing.T) {
	detector := NewDetector(DefaultConfig())
	result := detector.DetectAll(nil)

	require.NotNil(t, result.Correlations)
	require.NotNil(t, result.TemporalHotspots)
	require.NotNil(t, result.GeoClusters)
	require.NotNil(t, result.Escalations)
	require.Empty(t, result.Correlations)
	require.Empty(t, result.Escalations)
}

func TestDetectAllIdempotent(t *testing.T) {
	signals := []models.SignalData{
		signal("d1", "warning", "HarshBraking", "2025-06-01T08:00:00Z"),
		signal("d1", "critical", "Speeding", "2025-06-02T09:00:00Z"),
		signal("d2", "warning", "HarshBraking", "2025-06-02T08:00:00Z"),
		signal("d2", "critical", "Speeding", "2025-06-03T09:00:00Z"),
		signal("d3", "warning", "HarshBraking", "2025-06-03T08:00:00Z"),
		locatedSignal("d4", "Speeding", 52.52, 13.40),
	}

	detector := NewDetector(DefaultConfig())
	first := detector.DetectAll(signals)
	second := detector.DetectAll(signals)

	require.True(t, reflect.DeepEqual(first, second))
}

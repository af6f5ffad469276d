package models

// Risk levels derived from numeric scores via fixed thresholds
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// Trend labels shared by the detectors
const (
	TrendWorsening        = "worsening"
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// BehaviorCorrelation is an unordered pair of behaviors that co-occur
// across drivers. (A,B) and (B,A) are the same entity; the pair is
// stored in sorted order.
type BehaviorCorrelation struct {
	Behavior1         string  `json:"behavior_1"`
	Behavior2         string  `json:"behavior_2"`
	Correlation       float64 `json:"correlation"`
	CoOccurrenceCount int     `json:"co_occurrence_count"`
	Description       string  `json:"description"`
}

// TemporalHotspot is a time bucket (hour or weekday) with elevated volume
type TemporalHotspot struct {
	Type              string         `json:"type"` // hour | day_of_week
	Value             string         `json:"value"`
	SignalCount       int            `json:"signal_count"`
	SeverityBreakdown map[string]int `json:"severity_breakdown"`
	RiskLevel         string         `json:"risk_level"`
	Description       string         `json:"description"`
}

// GeoCluster is a geographic concentration of signals
type GeoCluster struct {
	CenterLatitude  float64  `json:"center_latitude"`
	CenterLongitude float64  `json:"center_longitude"`
	RadiusKm        float64  `json:"radius_km"`
	SignalCount     int      `json:"signal_count"`
	SpreadKm        float64  `json:"spread_km"`
	TopBehaviors    []string `json:"top_behaviors"`
	AddressHint     string   `json:"address_hint,omitempty"`
}

// EscalationPattern flags a driver whose signals are trending critical
type EscalationPattern struct {
	DriverID       string  `json:"driver_id"`
	DriverName     string  `json:"driver_name"`
	WarningCount   int     `json:"warning_count"`
	CriticalCount  int     `json:"critical_count"`
	EscalationRate float64 `json:"escalation_rate"`
	Trend          string  `json:"trend"`
	Description    string  `json:"description"`
}

// PatternResult aggregates the four pattern detections
type PatternResult struct {
	Correlations     []BehaviorCorrelation `json:"behavior_correlations"`
	TemporalHotspots []TemporalHotspot     `json:"temporal_hotspots"`
	GeoClusters      []GeoCluster          `json:"geographic_clusters"`
	Escalations      []EscalationPattern   `json:"escalation_patterns"`
}

// RiskFactor is one of the four contributors to a driver's risk score
type RiskFactor struct {
	Name        string  `json:"name"` // frequency | severity | behavior_diversity | trend
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
	Points      float64 `json:"points"`
	Description string  `json:"description"`
}

// DriverRiskScore is the composite 0-100 risk assessment for one driver
type DriverRiskScore struct {
	DriverID      string       `json:"driver_id"`
	DriverName    string       `json:"driver_name"`
	RiskScore     float64      `json:"risk_score"`
	RiskLevel     string       `json:"risk_level"`
	SignalCount   int          `json:"signal_count"`
	CriticalCount int          `json:"critical_count"`
	WarningCount  int          `json:"warning_count"`
	TopBehaviors  []string     `json:"top_behaviors"`
	Factors       []RiskFactor `json:"factors"`
	Trend         string       `json:"trend"`
	TrendDelta    float64      `json:"trend_delta"`
}

// RiskResult carries per-driver scores plus fleet aggregates
type RiskResult struct {
	Scores        []DriverRiskScore `json:"scores"`
	FleetAvgScore float64           `json:"fleet_avg_score"`
	HighRiskCount int               `json:"high_risk_count"`
}

// DriverPrediction is a near-term incident estimate for one driver
type DriverPrediction struct {
	DriverID            string   `json:"driver_id"`
	DriverName          string   `json:"driver_name"`
	CurrentRiskScore    float64  `json:"current_risk_score"`
	PredictedRisk7d     float64  `json:"predicted_risk_7d"`
	IncidentProbability float64  `json:"incident_probability"`
	Confidence          float64  `json:"confidence"`
	WarningSignals      []string `json:"warning_signals"`
	Recommendation      string   `json:"recommendation"`
}

// ForecastDay is one entry of the day-by-day volume forecast
type ForecastDay struct {
	Date           string `json:"date"`
	PredictedCount int    `json:"predicted_count"`
}

// VolumeForecast projects aggregate signal volume
type VolumeForecast struct {
	CurrentAvgDaily   float64       `json:"current_avg_daily"`
	PredictedAvgDaily float64       `json:"predicted_avg_daily"`
	Trend             string        `json:"trend"` // increasing | decreasing | stable
	Confidence        float64       `json:"confidence"`
	Forecast          []ForecastDay `json:"forecast"`
}

// PredictionResult aggregates driver predictions, the volume forecast and
// advisory alert strings. Alerts are display text only.
type PredictionResult struct {
	Drivers []DriverPrediction `json:"driver_predictions"`
	Volume  VolumeForecast     `json:"volume_forecast"`
	Alerts  []string           `json:"alerts"`
}

// Insight is one natural-language finding
type Insight struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"` // pattern | risk | prediction | recommendation
	Priority    string   `json:"priority"` // low | medium | high
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DataPoints  []string `json:"data_points"`
	ActionItems []string `json:"action_items"`
}

// InsightResult carries insights plus their provenance. AIGenerated is
// false when the deterministic fallback produced them.
type InsightResult struct {
	Insights    []Insight `json:"insights"`
	ModelUsed   string    `json:"model_used"`
	AIGenerated bool      `json:"ai_generated"`
}

// SummaryStats are request-level aggregates shared with the insight stage
type SummaryStats struct {
	TotalSignals     int            `json:"total_signals"`
	BySeverity       map[string]int `json:"by_severity"`
	DistinctDrivers  int            `json:"distinct_drivers"`
	DistinctVehicles int            `json:"distinct_vehicles"`
	StartDate        string         `json:"start_date,omitempty"`
	EndDate          string         `json:"end_date,omitempty"`
	AvgPerDay        float64        `json:"avg_per_day"`
}

// AnalyticsConfig is the per-request configuration. Inclusion flags are
// pointers so an omitted flag defaults to true; numeric zero values are
// replaced by defaults when the engine resolves the config.
type AnalyticsConfig struct {
	IncludePatterns    *bool   `json:"include_patterns,omitempty"`
	IncludeRiskScores  *bool   `json:"include_risk_scores,omitempty"`
	IncludePredictions *bool   `json:"include_predictions,omitempty"`
	IncludeInsights    *bool   `json:"include_insights,omitempty"`
	PeriodDays         int     `json:"period_days,omitempty"`
	TopN               int     `json:"top_n,omitempty"`
	MinCorrelation     float64 `json:"min_correlation,omitempty"`
	MinClusterSize     int     `json:"min_cluster_size,omitempty"`
	DaysAhead          int     `json:"days_ahead,omitempty"`
}

// AnalyticsRequest is the full analysis request
type AnalyticsRequest struct {
	RequestID string          `json:"request_id"`
	Signals   []SignalData    `json:"signals"`
	Config    AnalyticsConfig `json:"config"`
}

// AnalyticsResponse is always well-formed: failed or disabled stages are
// nil and their failures appear in Errors.
type AnalyticsResponse struct {
	RequestID        string            `json:"request_id"`
	GeneratedAt      string            `json:"generated_at"`
	Summary          SummaryStats      `json:"summary"`
	Patterns         *PatternResult    `json:"patterns"`
	RiskScores       *RiskResult       `json:"risk_scores"`
	Predictions      *PredictionResult `json:"predictions"`
	Insights         *InsightResult    `json:"insights"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Errors           []string          `json:"errors"`
}

// RiskLevelForScore maps a 0-100 score to its risk tier
func RiskLevelForScore(score float64) string {
	switch {
	case score >= 75:
		return RiskLevelCritical
	case score >= 50:
		return RiskLevelHigh
	case score >= 25:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

package models

import (
	"sort"
	"strings"
	"time"
)

// Severity levels for safety signals
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// severityWeights maps severity to its scoring weight
var severityWeights = map[string]float64{
	SeverityCritical: 10,
	SeverityWarning:  3,
	SeverityInfo:     1,
}

// SignalData represents a single normalized vehicle-safety event.
// Instances are immutable once normalized; the analytics detectors
// only ever read them.
type SignalData struct {
	DriverID      string   `json:"driver_id"`
	DriverName    string   `json:"driver_name"`
	VehicleID     string   `json:"vehicle_id"`
	Severity      string   `json:"severity"`
	EventState    string   `json:"event_state"`
	OccurredAt    string   `json:"occurred_at"`
	BehaviorLabel string   `json:"primary_behavior_label"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// timestampLayouts are tried in order when parsing occurred_at
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseOccurredAt parses the signal timestamp.
// Returns false when the timestamp is missing or malformed; callers
// skip the signal for time-based computations instead of failing.
func (s *SignalData) ParseOccurredAt() (time.Time, bool) {
	if s.OccurredAt == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.OccurredAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasLocation reports whether the signal carries both coordinates
func (s *SignalData) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// SeverityWeight returns the scoring weight for the signal's severity
func (s *SignalData) SeverityWeight() float64 {
	if w, ok := severityWeights[s.Severity]; ok {
		return w
	}
	return severityWeights[SeverityInfo]
}

// NormalizeSignals validates a raw signal batch and returns the canonical
// sequence the analytics core consumes. Severity is lowercased and defaulted
// to info when unrecognized; records carrying neither a driver nor a vehicle
// identity are dropped. This is the single normalization step at the
// ingestion boundary.
func NormalizeSignals(raw []SignalData) ([]SignalData, int) {
	normalized := make([]SignalData, 0, len(raw))
	dropped := 0

	for _, s := range raw {
		s.DriverID = strings.TrimSpace(s.DriverID)
		s.VehicleID = strings.TrimSpace(s.VehicleID)
		s.BehaviorLabel = strings.TrimSpace(s.BehaviorLabel)

		if s.DriverID == "" && s.VehicleID == "" {
			dropped++
			continue
		}

		s.Severity = strings.ToLower(strings.TrimSpace(s.Severity))
		if _, ok := severityWeights[s.Severity]; !ok {
			s.Severity = SeverityInfo
		}

		normalized = append(normalized, s)
	}

	return normalized, dropped
}

// SortChronologically returns a copy of signals ordered by parsed
// timestamp. Signals with unparseable timestamps sort first, keeping
// their input order.
func SortChronologically(signals []SignalData) []SignalData {
	sorted := make([]SignalData, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, _ := sorted[i].ParseOccurredAt()
		tj, _ := sorted[j].ParseOccurredAt()
		return ti.Before(tj)
	})
	return sorted
}

// DriverGroup is one driver's slice of the signal set
type DriverGroup struct {
	DriverID   string
	DriverName string
	Signals    []SignalData
}

// GroupByDriver groups signals by driver, preserving first-seen driver
// order so downstream rankings stay deterministic. Signals without a
// driver identity are excluded.
func GroupByDriver(signals []SignalData) []DriverGroup {
	index := make(map[string]int)
	var groups []DriverGroup

	for _, s := range signals {
		if s.DriverID == "" {
			continue
		}
		i, ok := index[s.DriverID]
		if !ok {
			i = len(groups)
			index[s.DriverID] = i
			groups = append(groups, DriverGroup{DriverID: s.DriverID})
		}
		groups[i].Signals = append(groups[i].Signals, s)
		if s.DriverName != "" {
			groups[i].DriverName = s.DriverName
		}
	}

	return groups
}

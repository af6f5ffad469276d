package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/fleetwatch/safety-backend-go/internal/models"
)

// FallbackModel is reported as model_used when the deterministic
// rule-based path produced the insights
const FallbackModel = "rule-based-fallback"

const systemInstruction = `You are a fleet safety analyst. Given the safety analytics context, respond with a JSON array of 3 to 5 insight objects and nothing else. Each object has exactly these keys: "category" (one of pattern, risk, prediction, recommendation), "priority" (one of low, medium, high), "title" (short headline), "description" (2-3 sentences), "data_points" (array of supporting strings), "action_items" (array of concrete next steps).`

var validCategories = map[string]bool{
	"pattern":        true,
	"risk":           true,
	"prediction":     true,
	"recommendation": true,
}

var validPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// Generator turns detector outputs into natural-language insights.
// It depends only on the detectors' result shapes, not their
// implementations; any of the stage results may be nil.
type Generator struct {
	client Client
}

// NewGenerator creates an insight generator. A nil client forces the
// deterministic fallback path.
func NewGenerator(client Client) *Generator {
	return &Generator{client: client}
}

// Generate renders the analytics context, issues one completion call and
// parses the structured insights. Any transport or parse failure falls
// through to the deterministic fallback; Generate never returns an error.
func (g *Generator) Generate(
	ctx context.Context,
	summary models.SummaryStats,
	patterns *models.PatternResult,
	risks *models.RiskResult,
	predictions *models.PredictionResult,
) models.InsightResult {
	if g.client == nil {
		return g.Fallback(summary, patterns, risks, predictions)
	}

	prompt := buildContext(summary, patterns, risks, predictions)
	content, err := g.client.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		log.Printf("[InsightGenerator] Completion call failed, using fallback: %v", err)
		return g.Fallback(summary, patterns, risks, predictions)
	}

	insights, err := parseInsights(content)
	if err != nil {
		log.Printf("[InsightGenerator] Unparseable completion response, using fallback: %v", err)
		return g.Fallback(summary, patterns, risks, predictions)
	}

	return models.InsightResult{
		Insights:    insights,
		ModelUsed:   g.client.Model(),
		AIGenerated: true,
	}
}

// buildContext renders the textual context block sent to the model
func buildContext(
	summary models.SummaryStats,
	patterns *models.PatternResult,
	risks *models.RiskResult,
	predictions *models.PredictionResult,
) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fleet safety summary: %d signals from %d drivers and %d vehicles",
		summary.TotalSignals, summary.DistinctDrivers, summary.DistinctVehicles)
	if summary.StartDate != "" {
		fmt.Fprintf(&b, " between %s and %s", summary.StartDate, summary.EndDate)
	}
	fmt.Fprintf(&b, ".\nSeverity mix: %d critical, %d warning, %d info.\n",
		summary.BySeverity[models.SeverityCritical],
		summary.BySeverity[models.SeverityWarning],
		summary.BySeverity[models.SeverityInfo])

	if patterns != nil {
		for i, c := range patterns.Correlations {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "Correlated behaviors: %s + %s (phi %.2f, %d drivers).\n",
				c.Behavior1, c.Behavior2, c.Correlation, c.CoOccurrenceCount)
		}
		for i, h := range patterns.TemporalHotspots {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "Hotspot (%s %s): %d signals, risk %s.\n",
				h.Type, h.Value, h.SignalCount, h.RiskLevel)
		}
		for i, e := range patterns.Escalations {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "Escalating driver %s: rate %.2f, trend %s.\n",
				displayName(e.DriverName, e.DriverID), e.EscalationRate, e.Trend)
		}
	}

	if risks != nil {
		fmt.Fprintf(&b, "Fleet average risk score %.1f, %d high-risk drivers.\n",
			risks.FleetAvgScore, risks.HighRiskCount)
		for i, s := range risks.Scores {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "Driver %s: score %.1f (%s), trend %s.\n",
				displayName(s.DriverName, s.DriverID), s.RiskScore, s.RiskLevel, s.Trend)
		}
	}

	if predictions != nil {
		for i, d := range predictions.Drivers {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "Predicted driver %s: incident probability %.0f%%, confidence %.0f%%.\n",
				displayName(d.DriverName, d.DriverID), d.IncidentProbability*100, d.Confidence*100)
		}
		fmt.Fprintf(&b, "Volume forecast: %s, %.1f -> %.1f signals/day.\n",
			predictions.Volume.Trend,
			predictions.Volume.CurrentAvgDaily,
			predictions.Volume.PredictedAvgDaily)
	}

	return b.String()
}

// parseInsights decodes the model output as a JSON insight array. Code
// fences are tolerated; anything else fails and triggers the fallback.
func parseInsights(content string) ([]models.Insight, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var insights []models.Insight
	if err := json.Unmarshal([]byte(trimmed), &insights); err != nil {
		return nil, fmt.Errorf("response is not an insight array: %w", err)
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("response carries no insights")
	}

	for i := range insights {
		if insights[i].ID == "" {
			insights[i].ID = fmt.Sprintf("insight-%d", i+1)
		}
		if !validCategories[insights[i].Category] {
			insights[i].Category = "pattern"
		}
		if !validPriorities[insights[i].Priority] {
			insights[i].Priority = "medium"
		}
		if insights[i].Title == "" {
			return nil, fmt.Errorf("insight %d is missing a title", i)
		}
		if insights[i].DataPoints == nil {
			insights[i].DataPoints = []string{}
		}
		if insights[i].ActionItems == nil {
			insights[i].ActionItems = []string{}
		}
	}
	return insights, nil
}

// Fallback derives insights directly from the stage results without any
// external call. It always succeeds and may return an empty list.
func (g *Generator) Fallback(
	summary models.SummaryStats,
	patterns *models.PatternResult,
	risks *models.RiskResult,
	predictions *models.PredictionResult,
) models.InsightResult {
	insights := []models.Insight{}

	add := func(category, priority, title, description string, dataPoints, actionItems []string) {
		if dataPoints == nil {
			dataPoints = []string{}
		}
		if actionItems == nil {
			actionItems = []string{}
		}
		insights = append(insights, models.Insight{
			ID:          fmt.Sprintf("insight-%d", len(insights)+1),
			Category:    category,
			Priority:    priority,
			Title:       title,
			Description: description,
			DataPoints:  dataPoints,
			ActionItems: actionItems,
		})
	}

	if risks != nil && risks.HighRiskCount > 0 {
		top := risks.Scores[0]
		add("risk", "high",
			fmt.Sprintf("%d drivers at high or critical risk", risks.HighRiskCount),
			fmt.Sprintf("Fleet average risk is %.1f. %s leads at %.1f (%s) across %d signals.",
				risks.FleetAvgScore, displayName(top.DriverName, top.DriverID),
				top.RiskScore, top.RiskLevel, top.SignalCount),
			[]string{fmt.Sprintf("fleet_avg_score=%.1f", risks.FleetAvgScore),
				fmt.Sprintf("high_risk_count=%d", risks.HighRiskCount)},
			[]string{"Review the highest-scored drivers and schedule coaching"})
	}

	if patterns != nil {
		if len(patterns.Correlations) > 0 {
			c := patterns.Correlations[0]
			add("pattern", "medium",
				fmt.Sprintf("%s pairs with %s", c.Behavior1, c.Behavior2),
				fmt.Sprintf("These behaviors co-occur for %d drivers (phi %.2f). Addressing one is likely to reduce the other.",
					c.CoOccurrenceCount, c.Correlation),
				[]string{fmt.Sprintf("correlation=%.2f", c.Correlation)},
				[]string{"Target both behaviors together in coaching material"})
		}
		if len(patterns.TemporalHotspots) > 0 {
			h := patterns.TemporalHotspots[0]
			add("pattern", hotspotPriority(h.RiskLevel),
				fmt.Sprintf("Signal hotspot at %s %s", h.Type, h.Value),
				h.Description,
				[]string{fmt.Sprintf("signal_count=%d", h.SignalCount),
					fmt.Sprintf("risk_level=%s", h.RiskLevel)},
				[]string{"Adjust dispatch or supervision during this window"})
		}
		if len(patterns.Escalations) > 0 {
			e := patterns.Escalations[0]
			add("risk", "high",
				fmt.Sprintf("Escalating severity for %s", displayName(e.DriverName, e.DriverID)),
				e.Description,
				[]string{fmt.Sprintf("escalation_rate=%.2f", e.EscalationRate)},
				[]string{"Intervene before the pattern produces an incident"})
		}
	}

	if predictions != nil {
		if len(predictions.Drivers) > 0 {
			d := predictions.Drivers[0]
			add("prediction", "high",
				fmt.Sprintf("%s trending toward an incident", displayName(d.DriverName, d.DriverID)),
				fmt.Sprintf("Incident probability %.0f%% at %.0f%% confidence. %s",
					d.IncidentProbability*100, d.Confidence*100, d.Recommendation),
				d.WarningSignals,
				[]string{d.Recommendation})
		}
		if predictions.Volume.Trend == "increasing" {
			add("prediction", "medium",
				"Signal volume is rising",
				fmt.Sprintf("Daily volume is forecast to move from %.1f to %.1f signals per day.",
					predictions.Volume.CurrentAvgDaily, predictions.Volume.PredictedAvgDaily),
				[]string{fmt.Sprintf("trend=%s", predictions.Volume.Trend)},
				[]string{"Plan review capacity for the higher volume"})
		}
	}

	if summary.TotalSignals > 0 {
		critRatio := float64(summary.BySeverity[models.SeverityCritical]) / float64(summary.TotalSignals)
		if critRatio > 0.2 {
			add("recommendation", "high",
				"Critical signals dominate the period",
				fmt.Sprintf("%.0f%% of all signals are critical. The fleet needs a broad intervention, not per-driver fixes.",
					critRatio*100),
				[]string{fmt.Sprintf("critical_ratio=%.2f", critRatio)},
				[]string{"Run a fleet-wide safety briefing", "Audit the most frequent behavior categories"})
		}
	}

	return models.InsightResult{
		Insights:    insights,
		ModelUsed:   FallbackModel,
		AIGenerated: false,
	}
}

func hotspotPriority(riskLevel string) string {
	if riskLevel == models.RiskLevelHigh {
		return "high"
	}
	return "medium"
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/safety-backend-go/internal/models"
)

func TestFallbackNeverFails(t *testing.T) {
	g := NewGenerator(nil)

	result := g.Generate(context.Background(), models.SummaryStats{}, nil, nil, nil)
	require.NotNil(t, result.Insights)
	require.False(t, result.AIGenerated)
	require.Equal(t, FallbackModel, result.ModelUsed)
}

func TestFallbackIsDeterministic(t *testing.T) {
	g := NewGenerator(nil)
	summary := models.SummaryStats{
		TotalSignals: 10,
		BySeverity:   map[string]int{models.SeverityCritical: 4},
	}
	risks := &models.RiskResult{
		Scores: []models.DriverRiskScore{
			{DriverID: "d1", DriverName: "Alex", RiskScore: 80, RiskLevel: models.RiskLevelCritical, SignalCount: 8},
		},
		FleetAvgScore: 80,
		HighRiskCount: 1,
	}

	first := g.Fallback(summary, nil, risks, nil)
	second := g.Fallback(summary, nil, risks, nil)
	require.True(t, reflect.DeepEqual(first, second))

	require.NotEmpty(t, first.Insights)
	require.Equal(t, "risk", first.Insights[0].Category)
	require.Equal(t, "high", first.Insights[0].Priority)
	require.Equal(t, "insight-1", first.Insights[0].ID)
	// 40% critical ratio also triggers the fleet-wide recommendation
	last := first.Insights[len(first.Insights)-1]
	require.Equal(t, "recommendation", last.Category)
}

func TestGenerateParsesCompletionResponse(t *testing.T) {
	content := "```json\n" +
		`[{"category":"risk","priority":"high","title":"Two drivers need coaching","description":"Both show worsening severity."},` +
		`{"category":"bogus","priority":"urgent","title":"Morning peak"}]` +
		"\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "test-model", time.Second)
	g := NewGenerator(client)

	result := g.Generate(context.Background(), models.SummaryStats{}, nil, nil, nil)

	require.True(t, result.AIGenerated)
	require.Equal(t, "test-model", result.ModelUsed)
	require.Len(t, result.Insights, 2)
	require.Equal(t, "insight-1", result.Insights[0].ID)
	require.Equal(t, "risk", result.Insights[0].Category)
	// Unknown category and priority are normalized to defaults
	require.Equal(t, "pattern", result.Insights[1].Category)
	require.Equal(t, "medium", result.Insights[1].Priority)
	require.NotNil(t, result.Insights[1].DataPoints)
	require.NotNil(t, result.Insights[1].ActionItems)
}

func TestGenerateFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "test-model", time.Second)
	g := NewGenerator(client)

	result := g.Generate(context.Background(), models.SummaryStats{}, nil, nil, nil)
	require.False(t, result.AIGenerated)
	require.Equal(t, FallbackModel, result.ModelUsed)
}

func TestGenerateFallsBackOnUnparseableContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sorry, I cannot help with that."}}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "test-model", time.Second)
	g := NewGenerator(client)

	result := g.Generate(context.Background(), models.SummaryStats{}, nil, nil, nil)
	require.False(t, result.AIGenerated)
	require.Equal(t, FallbackModel, result.ModelUsed)
}

func TestParseInsightsRejectsMissingTitle(t *testing.T) {
	_, err := parseInsights(`[{"category":"risk","priority":"high","description":"no headline"}]`)
	require.Error(t, err)
}

func TestParseInsightsRejectsEmptyArray(t *testing.T) {
	_, err := parseInsights(`[]`)
	require.Error(t, err)
}

func TestFallbackVolumeAndPredictionRules(t *testing.T) {
	g := NewGenerator(nil)
	predictions := &models.PredictionResult{
		Drivers: []models.DriverPrediction{
			{DriverID: "d1", DriverName: "Sam", IncidentProbability: 0.8, Confidence: 0.6,
				WarningSignals: []string{"signal frequency is accelerating"},
				Recommendation: "Immediate intervention"},
		},
		Volume: models.VolumeForecast{
			Trend:             "increasing",
			CurrentAvgDaily:   2.0,
			PredictedAvgDaily: 4.0,
		},
	}

	result := g.Fallback(models.SummaryStats{}, nil, nil, predictions)
	require.Len(t, result.Insights, 2)
	require.Equal(t, "prediction", result.Insights[0].Category)
	require.Equal(t, "prediction", result.Insights[1].Category)
	require.Equal(t, "Signal volume is rising", result.Insights[1].Title)
}

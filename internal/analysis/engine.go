package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fleetwatch/safety-backend-go/internal/analysis/insight"
	"github.com/fleetwatch/safety-backend-go/internal/analysis/patterns"
	"github.com/fleetwatch/safety-backend-go/internal/analysis/prediction"
	"github.com/fleetwatch/safety-backend-go/internal/analysis/risk"
	"github.com/fleetwatch/safety-backend-go/internal/models"
)

// options is the fully resolved per-request configuration
type options struct {
	includePatterns    bool
	includeRiskScores  bool
	includePredictions bool
	includeInsights    bool
	periodDays         int
	topN               int
	minCorrelation     float64
	minClusterSize     int
	daysAhead          int
}

// resolveConfig applies defaults: omitted inclusion flags mean true,
// numeric zero values take their documented defaults
func resolveConfig(cfg models.AnalyticsConfig) options {
	enabled := func(flag *bool) bool { return flag == nil || *flag }

	opts := options{
		includePatterns:    enabled(cfg.IncludePatterns),
		includeRiskScores:  enabled(cfg.IncludeRiskScores),
		includePredictions: enabled(cfg.IncludePredictions),
		includeInsights:    enabled(cfg.IncludeInsights),
		periodDays:         cfg.PeriodDays,
		topN:               cfg.TopN,
		minCorrelation:     cfg.MinCorrelation,
		minClusterSize:     cfg.MinClusterSize,
		daysAhead:          cfg.DaysAhead,
	}
	if opts.periodDays <= 0 {
		opts.periodDays = 30
	}
	if opts.topN <= 0 {
		opts.topN = 10
	}
	if opts.minCorrelation <= 0 {
		opts.minCorrelation = 0.3
	}
	if opts.minClusterSize <= 0 {
		opts.minClusterSize = 3
	}
	if opts.daysAhead <= 0 {
		opts.daysAhead = 7
	}
	return opts
}

// Stage functions, swappable so the engine's failure isolation can be
// exercised without touching the real detectors
type (
	patternStage    func(opts options, signals []models.SignalData) models.PatternResult
	riskStage       func(opts options, signals []models.SignalData) models.RiskResult
	predictionStage func(opts options, signals []models.SignalData) models.PredictionResult
)

// Engine orchestrates the detectors and the insight stage. It holds no
// per-request state; the hosting application constructs one engine and
// shares it across request handlers.
type Engine struct {
	generator *insight.Generator

	patternsFn   patternStage
	riskFn       riskStage
	predictionFn predictionStage
}

// NewEngine creates the analytics engine
func NewEngine(generator *insight.Generator) *Engine {
	if generator == nil {
		generator = insight.NewGenerator(nil)
	}
	return &Engine{
		generator: generator,
		patternsFn: func(opts options, signals []models.SignalData) models.PatternResult {
			detector := patterns.NewDetector(patterns.Config{
				MinCorrelation: opts.minCorrelation,
				MinClusterSize: opts.minClusterSize,
			})
			return detector.DetectAll(signals)
		},
		riskFn: func(opts options, signals []models.SignalData) models.RiskResult {
			scorer := risk.NewScorer(risk.Config{PeriodDays: opts.periodDays})
			return scorer.CalculateScores(signals)
		},
		predictionFn: func(opts options, signals []models.SignalData) models.PredictionResult {
			predictor := prediction.NewPredictor(prediction.Config{
				TopN:      opts.topN,
				DaysAhead: opts.daysAhead,
			})
			return predictor.PredictAll(signals)
		},
	}
}

// Analyze runs the enabled stages over an already-normalized signal set.
// Every stage sits behind its own failure boundary: a panic inside one
// stage becomes an entry in the response's errors list and never stops
// the other stages. The response is always well-formed.
func (e *Engine) Analyze(ctx context.Context, req models.AnalyticsRequest) models.AnalyticsResponse {
	start := time.Now()
	opts := resolveConfig(req.Config)
	signals := req.Signals

	response := models.AnalyticsResponse{
		RequestID:   req.RequestID,
		GeneratedAt: start.UTC().Format(time.RFC3339),
		Summary:     Summarize(signals),
		Errors:      []string{},
	}

	var mu sync.Mutex
	fail := func(stage string, cause interface{}) {
		mu.Lock()
		response.Errors = append(response.Errors, fmt.Sprintf("%s stage failed: %v", stage, cause))
		mu.Unlock()
		log.Printf("[AnalyticsEngine] %s stage failed: %v", stage, cause)
	}

	// The three detectors are pure and independent; run them concurrently
	// and fan in to the insight stage
	var wg sync.WaitGroup
	runStage := func(stage string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(stage, r)
				}
			}()
			fn()
		}()
	}

	if opts.includePatterns {
		runStage("pattern detection", func() {
			result := e.patternsFn(opts, signals)
			response.Patterns = &result
		})
	}
	if opts.includeRiskScores {
		runStage("risk scoring", func() {
			result := e.riskFn(opts, signals)
			response.RiskScores = &result
		})
	}
	if opts.includePredictions {
		runStage("prediction", func() {
			result := e.predictionFn(opts, signals)
			response.Predictions = &result
		})
	}
	wg.Wait()

	// Insights consume whatever the earlier stages produced; nil results
	// from failed or disabled stages are fine
	if opts.includeInsights {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fail("insight generation", r)
				}
			}()
			result := e.generator.Generate(ctx, response.Summary,
				response.Patterns, response.RiskScores, response.Predictions)
			response.Insights = &result
		}()
	}

	response.ProcessingTimeMs = time.Since(start).Milliseconds()
	return response
}

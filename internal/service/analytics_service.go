package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fleetwatch/safety-backend-go/internal/analysis"
	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/repository"
)

// AnalyticsService bridges the transport layer, the signal store and the
// analytics engine. All signal normalization happens here, at the
// ingestion boundary — the engine only ever sees canonical records.
type AnalyticsService struct {
	engine *analysis.Engine
	repo   *repository.SignalRepository
}

// NewAnalyticsService creates the analytics service
func NewAnalyticsService(engine *analysis.Engine, repo *repository.SignalRepository) *AnalyticsService {
	return &AnalyticsService{
		engine: engine,
		repo:   repo,
	}
}

// Analyze normalizes the request's signals and runs the engine
func (s *AnalyticsService) Analyze(ctx context.Context, req models.AnalyticsRequest) models.AnalyticsResponse {
	normalized, dropped := models.NormalizeSignals(req.Signals)
	if dropped > 0 {
		log.Printf("[AnalyticsService] Dropped %d signals without driver or vehicle identity", dropped)
	}
	req.Signals = normalized
	return s.engine.Analyze(ctx, req)
}

// AnalyzeStored loads the configured window from the signal store and
// runs the engine over it
func (s *AnalyticsService) AnalyzeStored(ctx context.Context, req models.AnalyticsRequest) (models.AnalyticsResponse, error) {
	periodDays := req.Config.PeriodDays
	if periodDays <= 0 {
		periodDays = 30
	}
	start := time.Now().UTC().AddDate(0, 0, -periodDays)

	stored, err := s.repo.ListSignals(ctx, repository.SignalFilter{
		StartDate: start.Format("2006-01-02"),
	})
	if err != nil {
		return models.AnalyticsResponse{}, fmt.Errorf("failed to load stored signals: %w", err)
	}

	req.Signals = stored
	return s.Analyze(ctx, req), nil
}

// IngestResult reports the outcome of a signal batch ingestion
type IngestResult struct {
	Stored  int `json:"stored"`
	Dropped int `json:"dropped"`
	Total   int `json:"total_stored"`
}

// Ingest normalizes and stores a raw signal batch
func (s *AnalyticsService) Ingest(ctx context.Context, raw []models.SignalData) (IngestResult, error) {
	normalized, dropped := models.NormalizeSignals(raw)

	if err := s.repo.InsertSignals(ctx, normalized); err != nil {
		return IngestResult{}, fmt.Errorf("failed to store signals: %w", err)
	}

	total, err := s.repo.CountSignals(ctx)
	if err != nil {
		return IngestResult{}, err
	}

	log.Printf("[AnalyticsService] Ingested %d signals (%d dropped), %d total stored",
		len(normalized), dropped, total)
	return IngestResult{
		Stored:  len(normalized),
		Dropped: dropped,
		Total:   total,
	}, nil
}

// ListSignals exposes the stored window for inspection
func (s *AnalyticsService) ListSignals(ctx context.Context, filter repository.SignalFilter) ([]models.SignalData, error) {
	return s.repo.ListSignals(ctx, filter)
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/repository"
	"github.com/fleetwatch/safety-backend-go/internal/service"
	"github.com/fleetwatch/safety-backend-go/pkg/response"
)

// SignalHandler handles HTTP requests for the signal store
type SignalHandler struct {
	analyticsService *service.AnalyticsService
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(analyticsService *service.AnalyticsService) *SignalHandler {
	return &SignalHandler{
		analyticsService: analyticsService,
	}
}

// ingestRequest is the batch ingestion body
type ingestRequest struct {
	Signals []models.SignalData `json:"signals"`
}

// Ingest handles POST /api/v1/signals
func (h *SignalHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Signals) == 0 {
		response.BadRequest(c, "Request carries no signals")
		return
	}

	result, err := h.analyticsService.Ingest(c.Request.Context(), req.Signals)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// List handles GET /api/v1/signals
func (h *SignalHandler) List(c *gin.Context) {
	filter := repository.SignalFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		DriverID:  c.Query("driver_id"),
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			response.BadRequest(c, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	signals, err := h.analyticsService.ListSignals(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if signals == nil {
		signals = []models.SignalData{}
	}
	response.Success(c, signals)
}

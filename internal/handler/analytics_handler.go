package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fleetwatch/safety-backend-go/internal/models"
	"github.com/fleetwatch/safety-backend-go/internal/service"
	"github.com/fleetwatch/safety-backend-go/pkg/response"
)

// AnalyticsHandler handles HTTP requests for the analytics engine
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// Analyze handles POST /api/v1/analytics/analyze
// The request body carries the signal set plus the analysis configuration.
func (h *AnalyticsHandler) Analyze(c *gin.Context) {
	var req models.AnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result := h.analyticsService.Analyze(c.Request.Context(), req)
	response.Success(c, result)
}

// AnalyzeStored handles POST /api/v1/analytics/analyze-stored
// Runs the engine over the stored signal window instead of a request body
// signal set.
func (h *AnalyticsHandler) AnalyzeStored(c *gin.Context) {
	var req models.AnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.analyticsService.AnalyzeStored(c.Request.Context(), req)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

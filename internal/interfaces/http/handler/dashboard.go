package handler

import (
	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the collection overview
type DashboardHandler struct {
	BaseHandler
	dashboardService *appfees.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *appfees.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// RegisterRoutes registers dashboard routes
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.GetStats)
}

// GetStats returns billed/collected/pending totals and verification counters
// for one academic year
func (h *DashboardHandler) GetStats(c *gin.Context) {
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	stats, err := h.dashboardService.GetStats(c.Request.Context(), academicYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

package controllers

import (
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// GET /api/dashboard/library/:libraryId?month=YYYY-MM
func (dc *DashboardController) LibrarySummary(c *gin.Context) {
	libraryID, ok := parseID(c, "libraryId")
	if !ok || !authorizeLibrary(c, libraryID) {
		return
	}
	summary, err := dc.dashboard.LibrarySummary(c.Request.Context(), libraryID, c.Query("month"))
	if err != nil {
		utils.RespondError(c, "Failed to load dashboard", err)
		return
	}
	utils.Success(c, "Dashboard retrieved successfully", summary)
}

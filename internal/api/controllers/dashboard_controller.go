package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carnival/internal/models/response_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type DashboardController struct {
	dashboardService services.DashboardService
}

func NewDashboardController(dashboardService services.DashboardService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
	}
}

// GetDashboard godoc
// @Summary Get analytics dashboard
// @Description KPI block, recharge series, top stalls and house standings
// @Tags Analytics
// @Produce json
// @Param start    query string false "RFC3339 or YYYY-MM-DD (default: 7 days before end)"
// @Param end      query string false "RFC3339 or YYYY-MM-DD, inclusive (default: now)"
// @Param interval query string false "Bucket size: hour | day | week (default: day)"
// @Param tz       query string false "IANA timezone for bucketing (default: UTC)"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Security BearerAuth
// @Router /analytics/dashboard [get]
func (p *DashboardController) GetDashboard(c *gin.Context) {
	start, err := utils.ParseDateParam(c.Query("start"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD")
		return
	}
	endStr := c.Query("end")
	end, err := utils.ParseDateParam(endStr)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD")
		return
	}
	if len(endStr) == len("2006-01-02") {
		end = utils.EndOfDay(end)
	}

	tr := response_models.TimeRange{
		Start:    start,
		End:      end,
		Interval: c.DefaultQuery("interval", "day"),
		Timezone: c.Query("tz"),
	}

	report, svcErr := p.dashboardService.BuildDashboard(c.Request.Context(), tr)
	if svcErr != nil {
		utils.HandleServiceError(c, svcErr)
		return
	}

	utils.RespondSuccess(c, report, "Dashboard data fetched successfully")
}

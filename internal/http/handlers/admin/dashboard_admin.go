package admin

import (
	"strconv"

	"github.com/fenxiao-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetLedgerOverview 获取台账全局概览
func (h *Handler) GetLedgerOverview(c *gin.Context) {
	forceRefresh, _ := strconv.ParseBool(c.DefaultQuery("force_refresh", "false"))
	overview, err := h.DashboardService.GetOverview(c.Request.Context(), forceRefresh)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	response.Success(c, overview)
}

// GetAffiliateSummary 获取推广员佣金汇总
func (h *Handler) GetAffiliateSummary(c *gin.Context) {
	affiliateID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	forceRefresh, _ := strconv.ParseBool(c.DefaultQuery("force_refresh", "false"))
	summary, err := h.DashboardService.GetAffiliateSummary(c.Request.Context(), affiliateID, forceRefresh)
	if err != nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	response.Success(c, summary)
}

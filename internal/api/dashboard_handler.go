package api

import (
	"net/http"
	"strconv"

	"EventSeries/internal/repository"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DashboardHandler 管理员看板统计接口，任意已登录角色可读
type DashboardHandler struct {
	store   *repository.Store
	metrics *service.MetricsService
	logger  *logrus.Logger
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(store *repository.Store, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:   store,
		metrics: service.NewMetricsService(),
		logger:  logger,
	}
}

// Stats GET /admin/api/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	out, err := h.metrics.Stats(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Metrics GET /admin/api/metrics?season_id=&event_id=
func (h *DashboardHandler) Metrics(c *gin.Context) {
	out, err := h.metrics.Metrics(c.Request.Context(), h.store, queryID(c, "season_id"), queryID(c, "event_id"))
	if err != nil {
		respondError(c, h.logger, "Metrics", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// TopInstitutions GET /admin/api/top-institutions?season_id=&limit=4
func (h *DashboardHandler) TopInstitutions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "4"))
	out, err := h.metrics.TopInstitutions(c.Request.Context(), h.store, queryID(c, "season_id"), limit)
	if err != nil {
		respondError(c, h.logger, "TopInstitutions", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ParticipationByYear GET /admin/api/participation-by-year
func (h *DashboardHandler) ParticipationByYear(c *gin.Context) {
	out, err := h.metrics.ParticipationByYear(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "ParticipationByYear", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Funnel GET /admin/api/funnel?season_id=&event_id=
func (h *DashboardHandler) Funnel(c *gin.Context) {
	out, err := h.metrics.Funnel(c.Request.Context(), h.store, queryID(c, "season_id"), queryID(c, "event_id"))
	if err != nil {
		respondError(c, h.logger, "Funnel", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

package api

import (
	"net/http"
	"strconv"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ScorerHandler 成绩录入接口
type ScorerHandler struct {
	store   *repository.Store
	results *service.ResultService
	logger  *logrus.Logger
}

// NewScorerHandler 创建 ScorerHandler
func NewScorerHandler(store *repository.Store, logger *logrus.Logger) *ScorerHandler {
	return &ScorerHandler{
		store:   store,
		results: service.NewResultService(),
		logger:  logger,
	}
}

// RecordResult POST /scorer/api/results
func (h *ScorerHandler) RecordResult(c *gin.Context) {
	var req service.ResultInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out *model.Result
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		out, err = h.results.RecordResult(ctx, tx, req)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "RecordResult", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RecentResults GET /scorer/api/results/recent?limit=10
func (h *ScorerHandler) RecentResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	out, err := h.results.RecentResults(c.Request.Context(), h.store, limit)
	if err != nil {
		respondError(c, h.logger, "RecentResults", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

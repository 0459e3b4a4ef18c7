package api

import (
	"errors"
	"net/http"
	"strconv"

	"EventSeries/internal/metrics"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var errBadID = errors.New("invalid id")

// statusOf 业务错误类型到 HTTP 状态码
func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError 业务错误按类型返回 4xx；其余记录日志并返回 500
func respondError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status := statusOf(err)
	kind := service.KindOf(err).String()
	metrics.RequestErrors.WithLabelValues(kind).Inc()
	entry := requestLogger(c, logger).WithError(err).WithField("op", op)
	if status == http.StatusInternalServerError {
		entry.Error(op + " failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	entry.WithField("status", status).Info(op + " rejected")
	c.JSON(status, gin.H{"error": err.Error()})
}

// pathID 解析路径中的数字 ID，失败时已写入 400
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// queryID 可选的数字查询参数，缺失或非法均视为未指定
func queryID(c *gin.Context, name string) *uint64 {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}

// queryIDs 可重复的数字查询参数，忽略非法值
func queryIDs(c *gin.Context, name string) []uint64 {
	var out []uint64
	for _, s := range c.QueryArray(name) {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, errBadID
	}
	return v, nil
}

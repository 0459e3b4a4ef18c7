package api

import (
	"net/http"
	"strings"
	"time"

	"EventSeries/internal/auth"
	"EventSeries/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	identityKey     = "identity"
)

// RequestID 透传或生成请求 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog 每个请求一条日志
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLogger(c, logger).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

func requestLogger(c *gin.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id, ok := c.Get(requestIDKey); ok {
		entry = entry.WithField(requestIDKey, id)
	}
	if ident := identityFrom(c); ident != nil {
		entry = entry.WithFields(logrus.Fields{"user_id": ident.UserID, "role": ident.Role})
	}
	return entry
}

// Authenticate 校验 Bearer 令牌并把身份放入上下文
func Authenticate(issuer *auth.Issuer, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		ident, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			requestLogger(c, logger).WithError(err).Info("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireRole 仅放行指定角色
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := identityFrom(c)
		if ident == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		for _, r := range roles {
			if ident.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	ident, _ := v.(*auth.Identity)
	return ident
}

// institutionOf HR 接口的机构：hr/pulse_leader 取令牌中的机构，admin 须通过 institution_id 参数指定
func institutionOf(c *gin.Context) (uint64, bool) {
	ident := identityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return 0, false
	}
	if ident.Role != model.RoleAdmin {
		if ident.InstitutionID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "no institution bound to this account"})
			return 0, false
		}
		return *ident.InstitutionID, true
	}
	id, err := parseUint(c.Query("institution_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "institution_id is required for admin"})
		return 0, false
	}
	return id, true
}

package api

import (
	"net/http"
	"time"

	"EventSeries/internal/auth"
	"EventSeries/internal/model"
	"EventSeries/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	Store            *repository.Store
	Issuer           *auth.Issuer
	Logger           *logrus.Logger
	Mode             string
	CORSOrigins      []string
	BibRetryAttempts int
}

// NewRouter 注册全部路由
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(opts.Logger))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	// 注册ppof 方便调试和监测性能问题
	if opts.Mode == gin.DebugMode {
		pprof.Register(r)
	}

	r.GET("/healthz", func(c *gin.Context) {
		if sqlDB, err := opts.Store.DB().DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authn := Authenticate(opts.Issuer, opts.Logger)
	adminOnly := RequireRole(model.RoleAdmin)

	admin := NewAdminHandler(opts.Store, opts.Logger)
	dashboard := NewDashboardHandler(opts.Store, opts.Logger)
	hr := NewHRHandler(opts.Store, opts.BibRetryAttempts, opts.Logger)
	scorer := NewScorerHandler(opts.Store, opts.Logger)

	// 管理端：看板与列表任意角色可读，写操作仅 admin
	adminAPI := r.Group("/admin/api", authn)
	{
		adminAPI.GET("/stats", dashboard.Stats)
		adminAPI.GET("/metrics", dashboard.Metrics)
		adminAPI.GET("/top-institutions", dashboard.TopInstitutions)
		adminAPI.GET("/participation-by-year", dashboard.ParticipationByYear)
		adminAPI.GET("/funnel", dashboard.Funnel)
		adminAPI.GET("/seasons", admin.ListSeasons)
		adminAPI.GET("/seasons/:id/events", admin.ListSeasonEvents)
		adminAPI.GET("/institutions", admin.ListInstitutions)

		adminAPI.POST("/seasons", adminOnly, admin.CreateSeason)
		adminAPI.DELETE("/seasons/:id", adminOnly, admin.DeleteSeason)
		adminAPI.GET("/seasons/:id/bibs", adminOnly, admin.ListBibNos)
		adminAPI.POST("/events", adminOnly, admin.CreateEvent)
		adminAPI.PUT("/season-events/:id", adminOnly, admin.UpdateSeasonEvent)
		adminAPI.PATCH("/season-events/:id/status", adminOnly, admin.SetSeasonEventStatus)
		adminAPI.DELETE("/season-events/:id", adminOnly, admin.DeleteSeasonEvent)
		adminAPI.POST("/institutions", adminOnly, admin.CreateInstitution)
		adminAPI.GET("/users", adminOnly, admin.ListUsers)
		adminAPI.POST("/users", adminOnly, admin.CreateUser)
	}

	// HR：看板 pulse_leader 也可读，参赛者与报名仅 hr/admin
	hrAPI := r.Group("/hr/api", authn)
	{
		readers := RequireRole(model.RoleHR, model.RoleAdmin, model.RolePulseLeader)
		writers := RequireRole(model.RoleHR, model.RoleAdmin)

		hrAPI.GET("/dashboard", readers, hr.Dashboard)
		hrAPI.GET("/filters", readers, hr.Filters)

		hrAPI.GET("/participants", writers, hr.ListParticipants)
		hrAPI.POST("/participants", writers, hr.CreateParticipant)
		hrAPI.POST("/participants/check-duplicate", writers, hr.CheckDuplicate)
		hrAPI.POST("/participants/bulk-import", writers, hr.BulkImport)
		hrAPI.GET("/participants/:id", writers, hr.GetParticipant)
		hrAPI.PUT("/participants/:id", writers, hr.UpdateParticipant)
		hrAPI.DELETE("/participants/:id", writers, hr.DeleteParticipant)
		hrAPI.POST("/participants/:id/register", writers, hr.Register)
		hrAPI.GET("/available-events", writers, hr.AvailableEvents)
		hrAPI.POST("/registrations/:id/bib/replace", writers, hr.ReplaceBib)
		hrAPI.POST("/registrations/:id/bib-tag", writers, hr.AssignBibTag)
	}

	scorerAPI := r.Group("/scorer/api", authn, RequireRole(model.RoleScorer, model.RoleAdmin))
	{
		scorerAPI.POST("/results", scorer.RecordResult)
		scorerAPI.GET("/results/recent", scorer.RecentResults)
	}
	return r
}

package api

import (
	"net/http"

	"EventSeries/internal/repository"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler 赛季、赛事、机构、用户管理接口
type AdminHandler struct {
	store        *repository.Store
	seasons      *service.SeasonService
	institutions *service.InstitutionService
	users        *service.UserService
	bibs         *service.BibService
	logger       *logrus.Logger
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(store *repository.Store, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		store:        store,
		seasons:      service.NewSeasonService(),
		institutions: service.NewInstitutionService(),
		users:        service.NewUserService(),
		bibs:         service.NewBibService(),
		logger:       logger,
	}
}

type createSeasonRequest struct {
	Year        int    `json:"year"`
	Description string `json:"description"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type createInstitutionRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ListSeasons GET /admin/api/seasons
func (h *AdminHandler) ListSeasons(c *gin.Context) {
	seasons, err := h.seasons.ListSeasons(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "ListSeasons", err)
		return
	}
	c.JSON(http.StatusOK, seasons)
}

// CreateSeason POST /admin/api/seasons  {year, description}
func (h *AdminHandler) CreateSeason(c *gin.Context) {
	var req createSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out gin.H
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		season, err := h.seasons.CreateSeason(ctx, tx, req.Year, req.Description)
		if err != nil {
			return err
		}
		out = gin.H{"id": season.ID, "year": season.Year}
		return nil
	})
	if err != nil {
		respondError(c, h.logger, "CreateSeason", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// DeleteSeason DELETE /admin/api/seasons/:id
func (h *AdminHandler) DeleteSeason(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		return h.seasons.DeleteSeason(ctx, tx, id)
	})
	if err != nil {
		respondError(c, h.logger, "DeleteSeason", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ListSeasonEvents GET /admin/api/seasons/:id/events
func (h *AdminHandler) ListSeasonEvents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.seasons.ListSeasonEvents(c.Request.Context(), h.store, id)
	if err != nil {
		respondError(c, h.logger, "ListSeasonEvents", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateEvent POST /admin/api/events
func (h *AdminHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out *service.SeasonEventView
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		out, err = h.seasons.CreateEvent(ctx, tx, req)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "CreateEvent", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UpdateSeasonEvent PUT /admin/api/season-events/:id
func (h *AdminHandler) UpdateSeasonEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateSeasonEventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out *service.SeasonEventView
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		out, err = h.seasons.UpdateSeasonEvent(ctx, tx, id, req)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "UpdateSeasonEvent", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SetSeasonEventStatus PATCH /admin/api/season-events/:id/status  {status}
func (h *AdminHandler) SetSeasonEventStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		return h.seasons.SetSeasonEventStatus(ctx, tx, id, req.Status)
	})
	if err != nil {
		respondError(c, h.logger, "SetSeasonEventStatus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// DeleteSeasonEvent DELETE /admin/api/season-events/:id
func (h *AdminHandler) DeleteSeasonEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		return h.seasons.DeleteSeasonEvent(ctx, tx, id)
	})
	if err != nil {
		respondError(c, h.logger, "DeleteSeasonEvent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ListInstitutions GET /admin/api/institutions
func (h *AdminHandler) ListInstitutions(c *gin.Context) {
	list, err := h.institutions.List(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "ListInstitutions", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateInstitution POST /admin/api/institutions  {name, code}
func (h *AdminHandler) CreateInstitution(c *gin.Context) {
	var req createInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out any
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		inst, err := h.institutions.Create(ctx, tx, req.Name, req.Code)
		out = inst
		return err
	})
	if err != nil {
		respondError(c, h.logger, "CreateInstitution", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListUsers GET /admin/api/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	list, err := h.users.ListUsers(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "ListUsers", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateUser POST /admin/api/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out any
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := h.users.CreateUser(ctx, tx, req)
		out = user
		return err
	})
	if err != nil {
		respondError(c, h.logger, "CreateUser", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListBibNos GET /admin/api/seasons/:id/bibs?institution_id=
func (h *AdminHandler) ListBibNos(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := h.bibs.ListBibNos(c.Request.Context(), h.store, id, queryID(c, "institution_id"))
	if err != nil {
		respondError(c, h.logger, "ListBibNos", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

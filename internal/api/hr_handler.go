package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"EventSeries/internal/metrics"
	"EventSeries/internal/repository"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HRHandler 机构 HR 看板、参赛者与报名接口
type HRHandler struct {
	store         *repository.Store
	participants  *service.ParticipantService
	registrations *service.RegistrationService
	bibs          *service.BibService
	metrics       *service.MetricsService
	retries       int
	logger        *logrus.Logger
}

// NewHRHandler 创建 HRHandler；retries 为号码布冲突时整笔事务的最大尝试次数
func NewHRHandler(store *repository.Store, retries int, logger *logrus.Logger) *HRHandler {
	if retries < 1 {
		retries = 1
	}
	bibs := service.NewBibService()
	return &HRHandler{
		store:         store,
		participants:  service.NewParticipantService(time.Now),
		registrations: service.NewRegistrationService(bibs),
		bibs:          bibs,
		metrics:       service.NewMetricsService(),
		retries:       retries,
		logger:        logger,
	}
}

type registerRequest struct {
	SeasonEventIDs []uint64 `json:"season_event_ids"`
}

type duplicateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type bulkImportRequest struct {
	Rows []service.ImportRow `json:"rows"`
}

type replaceBibRequest struct {
	Reason string `json:"reason"`
}

type bibTagRequest struct {
	BibValue string `json:"bib_value"`
}

// withBibRetry 号码布唯一约束冲突时以全新事务重试
func (h *HRHandler) withBibRetry(c *gin.Context, fn func(ctx context.Context, tx *repository.Store) error) error {
	ctx := c.Request.Context()
	var err error
	for attempt := 1; attempt <= h.retries; attempt++ {
		err = h.store.Transaction(ctx, func(tx *repository.Store) error {
			return fn(ctx, tx)
		})
		if !errors.Is(err, service.ErrConflict) || attempt == h.retries {
			return err
		}
		metrics.BibAllocationRetries.Inc()
		requestLogger(c, h.logger).WithError(err).WithField("attempt", attempt).Warn("bib allocation conflict, retrying")
	}
	return err
}

// Dashboard GET /hr/api/dashboard?season_id=1&season_id=2&event_type=Walk&division=M3039
func (h *HRHandler) Dashboard(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	out, err := h.metrics.HRDashboard(c.Request.Context(), h.store, inst,
		queryIDs(c, "season_id"), c.QueryArray("event_type"), c.QueryArray("division"))
	if err != nil {
		respondError(c, h.logger, "HRDashboard", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Filters GET /hr/api/filters
func (h *HRHandler) Filters(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	out, err := h.metrics.HRFilterOptions(c.Request.Context(), h.store, inst)
	if err != nil {
		respondError(c, h.logger, "HRFilterOptions", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListParticipants GET /hr/api/participants?season_id=
func (h *HRHandler) ListParticipants(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	out, err := h.participants.List(c.Request.Context(), h.store, inst, queryID(c, "season_id"))
	if err != nil {
		respondError(c, h.logger, "ListParticipants", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetParticipant GET /hr/api/participants/:id
func (h *HRHandler) GetParticipant(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.participants.Get(c.Request.Context(), h.store, id, inst)
	if err != nil {
		respondError(c, h.logger, "GetParticipant", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateParticipant POST /hr/api/participants
func (h *HRHandler) CreateParticipant(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	var req service.ParticipantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out *service.ParticipantDetail
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		p, err := h.participants.Create(ctx, tx, req, inst)
		if err != nil {
			return err
		}
		out, err = h.participants.Get(ctx, tx, p.ID, inst)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "CreateParticipant", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UpdateParticipant PUT /hr/api/participants/:id
func (h *HRHandler) UpdateParticipant(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ParticipantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var out *service.ParticipantDetail
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := h.participants.Update(ctx, tx, id, req, inst); err != nil {
			return err
		}
		var err error
		out, err = h.participants.Get(ctx, tx, id, inst)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "UpdateParticipant", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteParticipant DELETE /hr/api/participants/:id
func (h *HRHandler) DeleteParticipant(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		return h.participants.Delete(ctx, tx, id, inst)
	})
	if err != nil {
		respondError(c, h.logger, "DeleteParticipant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// CheckDuplicate POST /hr/api/participants/check-duplicate  {first_name, last_name}
func (h *HRHandler) CheckDuplicate(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	var req duplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dup, err := h.participants.CheckDuplicate(c.Request.Context(), h.store, req.FirstName, req.LastName, inst)
	if err != nil {
		respondError(c, h.logger, "CheckDuplicate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicate": dup})
}

// BulkImport POST /hr/api/participants/bulk-import  {rows:[...]}
func (h *HRHandler) BulkImport(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No rows provided"})
		return
	}
	ctx := c.Request.Context()
	var out *service.ImportReport
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		out, err = h.participants.BulkImport(ctx, tx, req.Rows, inst)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "BulkImport", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AvailableEvents GET /hr/api/available-events
func (h *HRHandler) AvailableEvents(c *gin.Context) {
	out, err := h.registrations.AvailableEvents(c.Request.Context(), h.store)
	if err != nil {
		respondError(c, h.logger, "AvailableEvents", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Register POST /hr/api/participants/:id/register  {season_event_ids:[...]}
func (h *HRHandler) Register(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var created []service.RegisteredEvent
	err := h.withBibRetry(c, func(ctx context.Context, tx *repository.Store) error {
		var err error
		created, err = h.registrations.Register(ctx, tx, id, req.SeasonEventIDs, inst)
		return err
	})
	if err != nil {
		respondError(c, h.logger, "Register", err)
		return
	}
	metrics.RegistrationsCreated.Add(float64(len(created)))
	metrics.BibsAllocated.Add(float64(len(created)))
	c.JSON(http.StatusCreated, gin.H{"registrations": created})
}

// ReplaceBib POST /hr/api/registrations/:id/bib/replace  {reason: lost|replaced}
func (h *HRHandler) ReplaceBib(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req replaceBibRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var value string
	err := h.withBibRetry(c, func(ctx context.Context, tx *repository.Store) error {
		bib, err := h.bibs.ReplaceBibNo(ctx, tx, id, inst, req.Reason)
		if err != nil {
			return err
		}
		value = bib.BibValue
		return nil
	})
	if err != nil {
		respondError(c, h.logger, "ReplaceBib", err)
		return
	}
	metrics.BibsAllocated.Inc()
	c.JSON(http.StatusOK, gin.H{"registration_id": id, "bib_no": value})
}

// AssignBibTag POST /hr/api/registrations/:id/bib-tag  {bib_value}
func (h *HRHandler) AssignBibTag(c *gin.Context) {
	inst, ok := institutionOf(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req bibTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var value string
	err := h.store.Transaction(ctx, func(tx *repository.Store) error {
		tag, err := h.bibs.AssignBibTag(ctx, tx, id, inst, req.BibValue)
		if err != nil {
			return err
		}
		value = tag.BibValue
		return nil
	})
	if err != nil {
		respondError(c, h.logger, "AssignBibTag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration_id": id, "bib_tag": value})
}

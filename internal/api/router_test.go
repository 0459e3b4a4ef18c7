package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"EventSeries/internal/auth"
	"EventSeries/internal/metrics"
	"EventSeries/internal/model"
	"EventSeries/internal/repository"
	"EventSeries/internal/testutil"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.Store
	issuer *auth.Issuer
}

func newTestServer(t *testing.T, opts ...repository.Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := testutil.NewStore(t)
	if len(opts) > 0 {
		store = repository.NewStore(store.DB(), opts...)
	}
	issuer, err := auth.NewIssuer("test-secret", "eventseries")
	require.NoError(t, err)
	r := NewRouter(RouterOptions{
		Store:            store,
		Issuer:           issuer,
		Logger:           testutil.Logger(),
		Mode:             gin.TestMode,
		BibRetryAttempts: 3,
	})
	return &testServer{t: t, router: r, store: store, issuer: issuer}
}

func (s *testServer) token(role model.Role, institutionID *uint64) string {
	s.t.Helper()
	tok, err := s.issuer.Issue(auth.Identity{UserID: 1, Role: role, InstitutionID: institutionID}, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRouter_AuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	inst := testutil.Institution(t, s.store, "CBTT")

	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/api/stats", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/api/stats", "garbage", nil).Code)

	hr := s.token(model.RoleHR, &inst.ID)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/api/stats", hr, nil).Code)
	require.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/admin/api/seasons", hr, gin.H{"year": 2024}).Code)

	scorer := s.token(model.RoleScorer, nil)
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/hr/api/participants", scorer, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/scorer/api/results/recent", scorer, nil).Code)

	leader := s.token(model.RolePulseLeader, &inst.ID)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/hr/api/dashboard", leader, nil).Code)
	require.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/hr/api/participants", leader, nil).Code)

	// admin 访问 HR 接口须指定机构
	admin := s.token(model.RoleAdmin, nil)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/hr/api/participants", admin, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("/hr/api/participants?institution_id=%d", inst.ID), admin, nil).Code)
}

func TestRouter_SeasonLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(model.RoleAdmin, nil)

	w := s.do(http.MethodPost, "/admin/api/seasons", admin, gin.H{"year": 2024, "description": "Season 2024"})
	require.Equal(t, http.StatusCreated, w.Code)
	season := decode[map[string]any](t, w)
	seasonID := uint64(season["id"].(float64))

	w = s.do(http.MethodPost, "/admin/api/seasons", admin, gin.H{"year": 2024})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, decode[map[string]string](t, w)["error"], "2024")

	w = s.do(http.MethodPost, "/admin/api/events", admin, gin.H{
		"name":      "Urban Challenge",
		"season_id": seasonID,
		"stages":    []gin.H{{"stage_number": 1, "location": "Arima"}, {"stage_number": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	event := decode[map[string]any](t, w)
	require.Equal(t, "Walk", event["event_type"])
	seID := uint64(event["id"].(float64))

	w = s.do(http.MethodGet, fmt.Sprintf("/admin/api/seasons/%d/events", seasonID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(http.MethodPatch, fmt.Sprintf("/admin/api/season-events/%d/status", seID), admin, gin.H{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPatch, fmt.Sprintf("/admin/api/season-events/%d/status", seID), admin, gin.H{"status": "inactive"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/admin/api/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	require.EqualValues(t, 2024, stats["current_season"])
	require.EqualValues(t, 0, stats["active_events"])

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/admin/api/funnel?season_id=1", admin, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/admin/api/funnel?season_id=99&event_id=99", admin, nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/admin/api/season-events/%d", seID), admin, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/admin/api/season-events/%d", seID), admin, nil).Code)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/admin/api/season-events/abc", admin, nil).Code)
}

func TestRouter_HRRegistrationFlow(t *testing.T) {
	s := newTestServer(t)
	inst := testutil.Institution(t, s.store, "CBTT")
	other := testutil.Institution(t, s.store, "FCIT")
	season := testutil.Season(t, s.store, 2024)
	se := testutil.SeasonEvent(t, s.store, season.ID, "Urban Challenge", 1)
	hr := s.token(model.RoleHR, &inst.ID)

	w := s.do(http.MethodPost, "/hr/api/participants", hr, gin.H{
		"first_name": "Ann",
		"last_name":  "Lee",
		"birth_date": "1990-04-12",
		"sex":        "F",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[map[string]any](t, w)
	pID := uint64(p["id"].(float64))
	require.Equal(t, "F", p["sex"])

	w = s.do(http.MethodGet, "/hr/api/available-events", hr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(http.MethodPost, fmt.Sprintf("/hr/api/participants/%d/register", pID), hr, gin.H{"season_event_ids": []uint64{se.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[map[string][]map[string]any](t, w)["registrations"]
	require.Len(t, reg, 1)
	require.Equal(t, "1001", reg[0]["bib_no"])
	regID := uint64(reg[0]["registration_id"].(float64))

	// 重复报名静默跳过
	w = s.do(http.MethodPost, fmt.Sprintf("/hr/api/participants/%d/register", pID), hr, gin.H{"season_event_ids": []uint64{se.ID}})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Empty(t, decode[map[string][]map[string]any](t, w)["registrations"])

	w = s.do(http.MethodPost, fmt.Sprintf("/hr/api/registrations/%d/bib/replace", regID), hr, gin.H{"reason": "lost"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "1002", decode[map[string]any](t, w)["bib_no"])

	// 其他机构的 HR 看不到该参赛者
	otherHR := s.token(model.RoleHR, &other.ID)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/hr/api/participants/%d", pID), otherHR, nil).Code)
	w = s.do(http.MethodPost, fmt.Sprintf("/hr/api/participants/%d/register", pID), otherHR, gin.H{"season_event_ids": []uint64{se.ID}})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/hr/api/participants/%d", pID), hr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	regs := detail["registrations"].([]any)
	require.Equal(t, "1002", regs[0].(map[string]any)["bib_no"])

	w = s.do(http.MethodPost, "/hr/api/participants/bulk-import", hr, gin.H{"rows": []gin.H{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "No rows provided", decode[map[string]string](t, w)["error"])

	w = s.do(http.MethodPost, "/hr/api/participants/bulk-import", hr, gin.H{"rows": []gin.H{
		{"first_name": "Bo", "last_name": "Chan"},
		{"first_name": "ann", "last_name": "LEE"},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[map[string]any](t, w)
	require.EqualValues(t, 1, report["added"])
	require.EqualValues(t, 1, report["skipped"])

	stages, err := s.store.Events.ListStages(t.Context(), se.ID)
	require.NoError(t, err)
	scorer := s.token(model.RoleScorer, nil)
	w = s.do(http.MethodPost, "/scorer/api/results", scorer, gin.H{"registration_id": regID, "stage_id": stages[0].ID, "placement": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/hr/api/dashboard?season_id=%d", season.ID), hr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[[]map[string]any](t, w)
	require.Len(t, dash, 1)
	require.EqualValues(t, 1, dash[0]["registered"])
	require.EqualValues(t, 1, dash[0]["participated"])

	admin := s.token(model.RoleAdmin, nil)
	w = s.do(http.MethodGet, "/admin/api/metrics", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[map[string]any](t, w)
	require.Equal(t, "100.0%", m["participated_pct"])
	require.Equal(t, "100.0%", m["completed_pct"])

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/hr/api/participants/%d", pID), hr, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/hr/api/participants/%d", pID), hr, nil).Code)
}

func TestRouter_RegisterRetriesBibConflict(t *testing.T) {
	s := newTestServer(t, testutil.ConflictingBibs(1))
	inst := testutil.Institution(t, s.store, "CBTT")
	season := testutil.Season(t, s.store, 2024)
	se := testutil.SeasonEvent(t, s.store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, s.store, inst.ID, "Ann", "Lee")
	hr := s.token(model.RoleHR, &inst.ID)

	retries := promtest.ToFloat64(metrics.BibAllocationRetries)
	w := s.do(http.MethodPost, fmt.Sprintf("/hr/api/participants/%d/register", p.ID), hr, gin.H{"season_event_ids": []uint64{se.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[map[string][]map[string]any](t, w)["registrations"]
	require.Len(t, reg, 1)
	require.Equal(t, "1001", reg[0]["bib_no"])
	require.Equal(t, retries+1, promtest.ToFloat64(metrics.BibAllocationRetries))

	regs, err := s.store.Registrations.ListByParticipant(t.Context(), p.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	bibs, err := s.store.Bibs.ListBibNos(t.Context(), season.ID, &inst.ID)
	require.NoError(t, err)
	require.Len(t, bibs, 1)
}

func TestRouter_RegisterGivesUpAfterRetries(t *testing.T) {
	s := newTestServer(t, testutil.ConflictingBibs(10))
	inst := testutil.Institution(t, s.store, "CBTT")
	season := testutil.Season(t, s.store, 2024)
	se := testutil.SeasonEvent(t, s.store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, s.store, inst.ID, "Ann", "Lee")
	hr := s.token(model.RoleHR, &inst.ID)

	retries := promtest.ToFloat64(metrics.BibAllocationRetries)
	w := s.do(http.MethodPost, fmt.Sprintf("/hr/api/participants/%d/register", p.ID), hr, gin.H{"season_event_ids": []uint64{se.ID}})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	// 共 3 次尝试，重试 2 次
	require.Equal(t, retries+2, promtest.ToFloat64(metrics.BibAllocationRetries))

	regs, err := s.store.Registrations.ListByParticipant(t.Context(), p.ID)
	require.NoError(t, err)
	require.Empty(t, regs)
}

package service

import (
	"context"
	"errors"
	"math"
	"strconv"

	"EventSeries/internal/repository"
)

// NoSeason 尚无赛季时 current_season 的占位值
const NoSeason = "—"

const defaultTopInstitutions = 4

// Stats 管理员首页概要
type Stats struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveEvents  int64 `json:"active_events"`
	CurrentSeason any   `json:"current_season"` // 年份或 NoSeason
}

// Metrics 报名与参赛汇总
type Metrics struct {
	Registered      int64  `json:"registered"`
	Participated    int64  `json:"participated"`
	NoShows         int64  `json:"no_shows"`
	Completed       int64  `json:"completed"`
	ParticipatedPct string `json:"participated_pct"`
	NoShowsPct      string `json:"no_shows_pct"`
	CompletedPct    string `json:"completed_pct"`
}

// TopInstitution 机构排名
type TopInstitution struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// YearParticipation 年度报名数及相对最大年度的百分比
type YearParticipation struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
	Pct   int   `json:"pct"`
}

// FunnelStage 分段流失
type FunnelStage struct {
	StageNumber *int    `json:"stage_number"`
	Location    *string `json:"location"`
	Finishers   int64   `json:"finishers"`
	DropPct     float64 `json:"drop_pct"`
}

// Funnel 赛事分段漏斗
type Funnel struct {
	EventName  string        `json:"event_name"`
	SeasonYear int           `json:"season_year"`
	Registered int64         `json:"registered"`
	Stages     []FunnelStage `json:"funnel"`
}

// MetricsService 看板统计，只读
type MetricsService struct{}

func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// round1 保留一位小数，银行家舍入
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

// pct 形如 "42.9%"，分母为 0 时为 "0%"
func pct(n, total int64) string {
	if total == 0 {
		return "0%"
	}
	return strconv.FormatFloat(round1(float64(n)/float64(total)*100), 'f', 1, 64) + "%"
}

func (s *MetricsService) Stats(ctx context.Context, store *repository.Store) (*Stats, error) {
	users, err := store.Users.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := store.Events.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	out := &Stats{TotalUsers: users, ActiveEvents: active, CurrentSeason: NoSeason}
	season, err := store.Seasons.LatestCreated(ctx)
	switch {
	case err == nil:
		out.CurrentSeason = season.Year
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return out, nil
}

// Metrics seasonID/eventID 为 nil 表示不过滤；registered 恒等于 participated + no_shows
func (s *MetricsService) Metrics(ctx context.Context, store *repository.Store, seasonID, eventID *uint64) (*Metrics, error) {
	f := repository.MetricsFilter{SeasonID: seasonID, EventID: eventID}
	registered, err := store.Stats.CountRegistrations(ctx, f)
	if err != nil {
		return nil, err
	}
	participated, err := store.Stats.CountParticipated(ctx, f)
	if err != nil {
		return nil, err
	}
	completed, err := store.Stats.CountCompleted(ctx, f)
	if err != nil {
		return nil, err
	}
	noShows := registered - participated
	return &Metrics{
		Registered:      registered,
		Participated:    participated,
		NoShows:         noShows,
		Completed:       completed,
		ParticipatedPct: pct(participated, registered),
		NoShowsPct:      pct(noShows, registered),
		CompletedPct:    pct(completed, registered),
	}, nil
}

// TopInstitutions 并列名次的先后由数据库返回顺序决定，不做二次排序
func (s *MetricsService) TopInstitutions(ctx context.Context, store *repository.Store, seasonID *uint64, limit int) ([]TopInstitution, error) {
	if limit <= 0 {
		limit = defaultTopInstitutions
	}
	rows, err := store.Stats.TopInstitutions(ctx, seasonID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TopInstitution, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopInstitution{Name: r.Name, Code: r.Code, Count: r.Total})
	}
	return out, nil
}

func (s *MetricsService) ParticipationByYear(ctx context.Context, store *repository.Store) ([]YearParticipation, error) {
	rows, err := store.Stats.RegistrationsByYear(ctx)
	if err != nil {
		return nil, err
	}
	var max int64
	for _, r := range rows {
		if r.Count > max {
			max = r.Count
		}
	}
	out := make([]YearParticipation, 0, len(rows))
	for _, r := range rows {
		if r.Count == 0 {
			continue
		}
		out = append(out, YearParticipation{
			Year:  r.Year,
			Count: r.Count,
			Pct:   int(math.RoundToEven(float64(r.Count) / float64(max) * 100)),
		})
	}
	return out, nil
}

// Funnel 需同时指定赛季与赛事
func (s *MetricsService) Funnel(ctx context.Context, store *repository.Store, seasonID, eventID *uint64) (*Funnel, error) {
	if seasonID == nil || eventID == nil {
		return nil, validationf("season_id and event_id are required")
	}
	se, err := store.Events.FindSeasonEvent(ctx, *seasonID, *eventID)
	if err != nil {
		return nil, notFoundOr(err, "event %d is not part of season %d", *eventID, *seasonID)
	}
	row, err := store.Events.GetSeasonEventRow(ctx, se.ID)
	if err != nil {
		return nil, notFoundOr(err, "season event %d not found", se.ID)
	}
	registered, err := store.Stats.CountSeasonEventRegistrations(ctx, se.ID)
	if err != nil {
		return nil, err
	}
	stages, err := store.Events.ListStages(ctx, se.ID)
	if err != nil {
		return nil, err
	}
	out := &Funnel{
		EventName:  row.EventName,
		SeasonYear: row.SeasonYear,
		Registered: registered,
		Stages:     make([]FunnelStage, 0, len(stages)),
	}
	for _, st := range stages {
		finishers, err := store.Stats.CountStageResults(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		var drop float64
		if registered > 0 {
			drop = round1((1 - float64(finishers)/float64(registered)) * 100)
		}
		out.Stages = append(out.Stages, FunnelStage{
			StageNumber: st.StageNumber,
			Location:    st.Location,
			Finishers:   finishers,
			DropPct:     drop,
		})
	}
	return out, nil
}

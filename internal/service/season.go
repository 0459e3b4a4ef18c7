package service

import (
	"context"
	"errors"
	"strings"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

const defaultEventType = "Walk"

// StageInput 分段请求体
type StageInput struct {
	StageNumber *int    `json:"stage_number"`
	Distance    *string `json:"distance"`
	Location    *string `json:"location"`
	StageDate   *string `json:"stage_date"`
}

// CreateEventInput 新建赛事请求体
type CreateEventInput struct {
	Name        string       `json:"name"`
	EventType   *string      `json:"event_type"`
	Description *string      `json:"description"`
	SeasonID    uint64       `json:"season_id"`
	StartDate   *string      `json:"start_date"`
	EndDate     *string      `json:"end_date"`
	Stages      []StageInput `json:"stages"`
}

// UpdateSeasonEventInput 字段为 nil 表示不修改；Stages 总是整体替换
type UpdateSeasonEventInput struct {
	Name        *string      `json:"name"`
	EventType   *string      `json:"event_type"`
	Description *string      `json:"description"`
	StartDate   *string      `json:"start_date"`
	EndDate     *string      `json:"end_date"`
	Stages      []StageInput `json:"stages"`
}

// StageView 分段输出
type StageView struct {
	ID          uint64  `json:"id"`
	StageNumber *int    `json:"stage_number"`
	Distance    string  `json:"distance"`
	Location    string  `json:"location"`
	StageDate   *string `json:"stage_date"`
}

// SeasonEventView 赛季赛事输出，含赛事信息与分段
type SeasonEventView struct {
	ID          uint64      `json:"id"`
	EventID     uint64      `json:"event_id"`
	EventName   string      `json:"event_name"`
	EventType   string      `json:"event_type"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	StartDate   *string     `json:"start_date"`
	EndDate     *string     `json:"end_date"`
	Stages      []StageView `json:"stages"`
}

// SeasonService 赛季、赛事、分段管理
type SeasonService struct{}

func NewSeasonService() *SeasonService {
	return &SeasonService{}
}

func (s *SeasonService) ListSeasons(ctx context.Context, store *repository.Store) ([]*model.Season, error) {
	seasons, err := store.Seasons.List(ctx)
	if err != nil {
		return nil, err
	}
	// 按年份升序输出
	for i, j := 0, len(seasons)-1; i < j; i, j = i+1, j-1 {
		seasons[i], seasons[j] = seasons[j], seasons[i]
	}
	return seasons, nil
}

func (s *SeasonService) CreateSeason(ctx context.Context, tx *repository.Store, year int, description string) (*model.Season, error) {
	if year <= 0 {
		return nil, validationf("year is required")
	}
	if _, err := tx.Seasons.GetByYear(ctx, year); err == nil {
		return nil, conflictf("Season %d already exists", year)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	season := &model.Season{Year: year, Description: description}
	if err := tx.Seasons.Create(ctx, season); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("Season %d already exists", year)
		}
		return nil, err
	}
	return season, nil
}

// DeleteSeason 级联删除赛季下的全部赛季赛事
func (s *SeasonService) DeleteSeason(ctx context.Context, tx *repository.Store, id uint64) error {
	if _, err := tx.Seasons.GetByID(ctx, id); err != nil {
		return notFoundOr(err, "season %d not found", id)
	}
	return tx.Seasons.Delete(ctx, id)
}

func (s *SeasonService) ListSeasonEvents(ctx context.Context, store *repository.Store, seasonID uint64) ([]SeasonEventView, error) {
	if _, err := store.Seasons.GetByID(ctx, seasonID); err != nil {
		return nil, notFoundOr(err, "season %d not found", seasonID)
	}
	rows, err := store.Events.ListSeasonEventRows(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	out := make([]SeasonEventView, 0, len(rows))
	for _, row := range rows {
		v, err := s.view(ctx, store, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// CreateEvent 新建赛事并加入赛季。
// 同名（大小写不敏感）赛事会被复用，且其 event_type/description 被本次请求覆盖。
func (s *SeasonService) CreateEvent(ctx context.Context, tx *repository.Store, in CreateEventInput) (*SeasonEventView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	if in.SeasonID == 0 {
		return nil, validationf("season_id is required")
	}
	season, err := tx.Seasons.GetByID(ctx, in.SeasonID)
	if err != nil {
		return nil, notFoundOr(err, "season %d not found", in.SeasonID)
	}

	eventType := defaultEventType
	if in.EventType != nil {
		eventType = *in.EventType
	}
	var description string
	if in.Description != nil {
		description = *in.Description
	}

	event, err := tx.Events.FindByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		event = &model.Event{Name: name, EventType: eventType, Description: description}
		if err := tx.Events.Create(ctx, event); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		event.EventType = eventType
		event.Description = description
		if err := tx.Events.Save(ctx, event); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Events.FindSeasonEvent(ctx, season.ID, event.ID); err == nil {
		return nil, conflictf("%q is already in season %d", name, season.Year)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	se := &model.SeasonEvent{
		SeasonID:  season.ID,
		EventID:   event.ID,
		Status:    model.StatusActive,
		StartDate: ParseDatePtr(in.StartDate),
		EndDate:   ParseDatePtr(in.EndDate),
	}
	if err := tx.Events.CreateSeasonEvent(ctx, se); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("%q is already in season %d", name, season.Year)
		}
		return nil, err
	}
	if err := s.replaceStages(ctx, tx, se.ID, in.Stages); err != nil {
		return nil, err
	}
	return s.load(ctx, tx, se.ID)
}

// UpdateSeasonEvent 更新赛事字段并整体替换分段（旧分段的成绩一并删除）
func (s *SeasonService) UpdateSeasonEvent(ctx context.Context, tx *repository.Store, id uint64, in UpdateSeasonEventInput) (*SeasonEventView, error) {
	se, err := tx.Events.GetSeasonEvent(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "season event %d not found", id)
	}
	event, err := tx.Events.GetByID(ctx, se.EventID)
	if err != nil {
		return nil, notFoundOr(err, "event %d not found", se.EventID)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name must not be empty")
		}
		clash, err := tx.Events.FindByName(ctx, name)
		switch {
		case err == nil && clash.ID != event.ID:
			return nil, conflictf("event %q already exists", clash.Name)
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		event.Name = name
	}
	if in.EventType != nil {
		event.EventType = *in.EventType
	}
	if in.Description != nil {
		event.Description = *in.Description
	}
	if err := tx.Events.Save(ctx, event); err != nil {
		return nil, err
	}
	if in.StartDate != nil {
		se.StartDate = ParseDate(*in.StartDate)
	}
	if in.EndDate != nil {
		se.EndDate = ParseDate(*in.EndDate)
	}
	if err := tx.Events.SaveSeasonEvent(ctx, se); err != nil {
		return nil, err
	}
	if err := s.replaceStages(ctx, tx, se.ID, in.Stages); err != nil {
		return nil, err
	}
	return s.load(ctx, tx, se.ID)
}

// SetSeasonEventStatus active 与 inactive 之间手动切换
func (s *SeasonService) SetSeasonEventStatus(ctx context.Context, tx *repository.Store, id uint64, status string) error {
	if status != model.StatusActive && status != model.StatusInactive {
		return validationf("status must be active or inactive")
	}
	if err := tx.Events.UpdateStatus(ctx, id, status); err != nil {
		return notFoundOr(err, "season event %d not found", id)
	}
	return nil
}

// DeleteSeasonEvent 删除赛季赛事及其分段、报名、成绩；共享的 Event 保留
func (s *SeasonService) DeleteSeasonEvent(ctx context.Context, tx *repository.Store, id uint64) error {
	if err := tx.Events.DeleteSeasonEvent(ctx, id); err != nil {
		return notFoundOr(err, "season event %d not found", id)
	}
	return nil
}

func (s *SeasonService) replaceStages(ctx context.Context, tx *repository.Store, seasonEventID uint64, in []StageInput) error {
	stages := make([]*model.Stage, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, st := range in {
		number := 1
		if st.StageNumber != nil {
			number = *st.StageNumber
		}
		if seen[number] {
			return validationf("duplicate stage_number %d", number)
		}
		seen[number] = true
		stages = append(stages, &model.Stage{
			StageNumber: &number,
			Distance:    nonEmpty(st.Distance),
			Location:    nonEmpty(st.Location),
			StageDate:   ParseDatePtr(st.StageDate),
		})
	}
	return tx.Events.ReplaceStages(ctx, seasonEventID, stages)
}

func (s *SeasonService) load(ctx context.Context, store *repository.Store, id uint64) (*SeasonEventView, error) {
	row, err := store.Events.GetSeasonEventRow(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "season event %d not found", id)
	}
	return s.view(ctx, store, row)
}

func (s *SeasonService) view(ctx context.Context, store *repository.Store, row *repository.SeasonEventRow) (*SeasonEventView, error) {
	stages, err := store.Events.ListStages(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	v := &SeasonEventView{
		ID:          row.ID,
		EventID:     row.EventID,
		EventName:   row.EventName,
		EventType:   row.EventType,
		Description: row.Description,
		Status:      row.Status,
		StartDate:   FormatDate(row.StartDate),
		EndDate:     FormatDate(row.EndDate),
		Stages:      make([]StageView, 0, len(stages)),
	}
	for _, st := range stages {
		v.Stages = append(v.Stages, StageView{
			ID:          st.ID,
			StageNumber: st.StageNumber,
			Distance:    deref(st.Distance),
			Location:    deref(st.Location),
			StageDate:   FormatDate(st.StageDate),
		})
	}
	return v, nil
}

// nonEmpty 去空白后为空返回 nil
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

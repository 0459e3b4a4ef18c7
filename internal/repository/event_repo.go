package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"EventSeries/internal/model"

	"gorm.io/gorm"
)

// SeasonEventRow 赛季赛事连同赛事名称、类型、年份
type SeasonEventRow struct {
	model.SeasonEvent
	EventName   string `gorm:"column:event_name"`
	EventType   string `gorm:"column:event_type"`
	Description string `gorm:"column:description"`
	SeasonYear  int    `gorm:"column:season_year"`
}

// EventRepository 赛事、赛季赛事、分段仓储
type EventRepository interface {
	// FindByName 名称大小写不敏感匹配
	FindByName(ctx context.Context, name string) (*model.Event, error)
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	Save(ctx context.Context, e *model.Event) error
	ListAll(ctx context.Context) ([]*model.Event, error)

	GetSeasonEvent(ctx context.Context, id uint64) (*model.SeasonEvent, error)
	FindSeasonEvent(ctx context.Context, seasonID, eventID uint64) (*model.SeasonEvent, error)
	GetSeasonEventRow(ctx context.Context, id uint64) (*SeasonEventRow, error)
	ListSeasonEventRows(ctx context.Context, seasonID uint64) ([]*SeasonEventRow, error)
	ListActiveSeasonEventRows(ctx context.Context, seasonID uint64) ([]*SeasonEventRow, error)
	CreateSeasonEvent(ctx context.Context, se *model.SeasonEvent) error
	SaveSeasonEvent(ctx context.Context, se *model.SeasonEvent) error
	UpdateStatus(ctx context.Context, id uint64, status string) error
	CountActive(ctx context.Context) (int64, error)
	// DeleteSeasonEvent 删除赛季赛事及其分段、报名、成绩，保留 Event
	DeleteSeasonEvent(ctx context.Context, id uint64) error

	// ListStages 按 stage_number 升序，空值视为 0
	ListStages(ctx context.Context, seasonEventID uint64) ([]*model.Stage, error)
	GetStage(ctx context.Context, id uint64) (*model.Stage, error)
	// ReplaceStages 先删后插，须在事务内调用
	ReplaceStages(ctx context.Context, seasonEventID uint64, stages []*model.Stage) error
}

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) FindByName(ctx context.Context, name string) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("id ASC").
		First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *model.Event) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *eventRepository) Save(ctx context.Context, e *model.Event) error {
	return translate(r.db.WithContext(ctx).Save(e).Error)
}

func (r *eventRepository) ListAll(ctx context.Context) ([]*model.Event, error) {
	var list []*model.Event
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *eventRepository) GetSeasonEvent(ctx context.Context, id uint64) (*model.SeasonEvent, error) {
	var se model.SeasonEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&se).Error; err != nil {
		return nil, translate(err)
	}
	return &se, nil
}

func (r *eventRepository) FindSeasonEvent(ctx context.Context, seasonID, eventID uint64) (*model.SeasonEvent, error) {
	var se model.SeasonEvent
	if err := r.db.WithContext(ctx).
		Where("season_id = ? AND event_id = ?", seasonID, eventID).
		First(&se).Error; err != nil {
		return nil, translate(err)
	}
	return &se, nil
}

func (r *eventRepository) rowQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("season_events").
		Select("season_events.*, events.name AS event_name, events.event_type, events.description, seasons.year AS season_year").
		Joins("JOIN events ON events.id = season_events.event_id").
		Joins("JOIN seasons ON seasons.id = season_events.season_id")
}

func (r *eventRepository) GetSeasonEventRow(ctx context.Context, id uint64) (*SeasonEventRow, error) {
	var row SeasonEventRow
	if err := r.rowQuery(ctx).Where("season_events.id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *eventRepository) ListSeasonEventRows(ctx context.Context, seasonID uint64) ([]*SeasonEventRow, error) {
	var rows []*SeasonEventRow
	if err := r.rowQuery(ctx).
		Where("season_events.season_id = ?", seasonID).
		Order("season_events.id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *eventRepository) ListActiveSeasonEventRows(ctx context.Context, seasonID uint64) ([]*SeasonEventRow, error) {
	var rows []*SeasonEventRow
	if err := r.rowQuery(ctx).
		Where("season_events.season_id = ? AND season_events.status = ?", seasonID, model.StatusActive).
		Order("season_events.id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *eventRepository) CreateSeasonEvent(ctx context.Context, se *model.SeasonEvent) error {
	return translate(r.db.WithContext(ctx).Create(se).Error)
}

func (r *eventRepository) SaveSeasonEvent(ctx context.Context, se *model.SeasonEvent) error {
	return translate(r.db.WithContext(ctx).Save(se).Error)
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res := r.db.WithContext(ctx).Model(&model.SeasonEvent{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SeasonEvent{}).Where("status = ?", model.StatusActive).Count(&n).Error
	return n, err
}

func (r *eventRepository) DeleteSeasonEvent(ctx context.Context, id uint64) error {
	return deleteSeasonEvent(r.db.WithContext(ctx), id)
}

func (r *eventRepository) ListStages(ctx context.Context, seasonEventID uint64) ([]*model.Stage, error) {
	var stages []*model.Stage
	if err := r.db.WithContext(ctx).
		Where("season_event_id = ?", seasonEventID).
		Order("id ASC").
		Find(&stages).Error; err != nil {
		return nil, err
	}
	// NULL 在不同数据库中的排序位置不同，统一在内存中按 0 处理
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Number() < stages[j].Number() })
	return stages, nil
}

func (r *eventRepository) GetStage(ctx context.Context, id uint64) (*model.Stage, error) {
	var st model.Stage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (r *eventRepository) ReplaceStages(ctx context.Context, seasonEventID uint64, stages []*model.Stage) error {
	db := r.db.WithContext(ctx)
	if err := deleteStages(db, seasonEventID); err != nil {
		return err
	}
	for _, st := range stages {
		st.ID = 0
		st.SeasonEventID = seasonEventID
		if err := db.Create(st).Error; err != nil {
			return fmt.Errorf("保存分段失败: %w", translate(err))
		}
	}
	return nil
}

// deleteStages 删除分段及其成绩
func deleteStages(db *gorm.DB, seasonEventID uint64) error {
	var stageIDs []uint64
	if err := db.Model(&model.Stage{}).Where("season_event_id = ?", seasonEventID).Pluck("id", &stageIDs).Error; err != nil {
		return err
	}
	if len(stageIDs) == 0 {
		return nil
	}
	if err := db.Where("stage_id IN ?", stageIDs).Delete(&model.Result{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", stageIDs).Delete(&model.Stage{}).Error
}

func deleteSeasonEvent(db *gorm.DB, id uint64) error {
	if err := deleteStages(db, id); err != nil {
		return err
	}
	var regIDs []uint64
	if err := db.Model(&model.Registration{}).Where("season_event_id = ?", id).Pluck("id", &regIDs).Error; err != nil {
		return err
	}
	if err := deleteRegistrations(db, regIDs); err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.SeasonEvent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

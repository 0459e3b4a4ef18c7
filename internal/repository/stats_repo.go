package repository

import (
	"context"

	"gorm.io/gorm"
)

// MetricsFilter 赛季/赛事过滤，nil 表示不过滤
type MetricsFilter struct {
	SeasonID *uint64
	EventID  *uint64
}

// HRFilter HR 看板过滤条件
type HRFilter struct {
	InstitutionID uint64
	SeasonID      uint64
	EventTypes    []string
	Divisions     []string
}

// InstitutionCount 机构报名数
type InstitutionCount struct {
	Name  string `gorm:"column:name"`
	Code  string `gorm:"column:code"`
	Total int64  `gorm:"column:total"`
}

// YearCount 年度报名数
type YearCount struct {
	Year  int   `gorm:"column:year"`
	Count int64 `gorm:"column:count"`
}

// DivisionCount 分组报名数
type DivisionCount struct {
	Division string `gorm:"column:division"`
	Count    int64  `gorm:"column:count"`
}

// StageCount 分段完赛人数
type StageCount struct {
	Stage     *int  `gorm:"column:stage"`
	Finishers int64 `gorm:"column:finishers"`
}

// StatsRepository 聚合统计查询
type StatsRepository interface {
	CountRegistrations(ctx context.Context, f MetricsFilter) (int64, error)
	// CountParticipated 至少有一条成绩的报名数（去重）
	CountParticipated(ctx context.Context, f MetricsFilter) (int64, error)
	// CountCompleted placement 非空的成绩数
	CountCompleted(ctx context.Context, f MetricsFilter) (int64, error)
	// TopInstitutions 按去重报名数降序，并列时顺序由数据库决定
	TopInstitutions(ctx context.Context, seasonID *uint64, limit int) ([]*InstitutionCount, error)
	RegistrationsByYear(ctx context.Context) ([]*YearCount, error)
	CountSeasonEventRegistrations(ctx context.Context, seasonEventID uint64) (int64, error)
	CountStageResults(ctx context.Context, stageID uint64) (int64, error)

	HRRegistered(ctx context.Context, f HRFilter) (int64, error)
	HRParticipated(ctx context.Context, f HRFilter) (int64, error)
	HRDivisionBreakdown(ctx context.Context, f HRFilter) ([]*DivisionCount, error)
	HRStageProgression(ctx context.Context, f HRFilter) ([]*StageCount, error)
}

type statsRepository struct {
	db *gorm.DB
}

// registrations 作为主表，按需关联 season_events
func (r *statsRepository) registrations(ctx context.Context, f MetricsFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("registrations")
	if f.SeasonID != nil || f.EventID != nil {
		q = q.Joins("JOIN season_events ON season_events.id = registrations.season_event_id")
	}
	if f.SeasonID != nil {
		q = q.Where("season_events.season_id = ?", *f.SeasonID)
	}
	if f.EventID != nil {
		q = q.Where("season_events.event_id = ?", *f.EventID)
	}
	return q
}

func (r *statsRepository) CountRegistrations(ctx context.Context, f MetricsFilter) (int64, error) {
	var n int64
	err := r.registrations(ctx, f).Count(&n).Error
	return n, err
}

func (r *statsRepository) CountParticipated(ctx context.Context, f MetricsFilter) (int64, error) {
	var n int64
	err := r.registrations(ctx, f).
		Joins("JOIN results ON results.registration_id = registrations.id").
		Distinct("registrations.id").
		Count(&n).Error
	return n, err
}

func (r *statsRepository) CountCompleted(ctx context.Context, f MetricsFilter) (int64, error) {
	var n int64
	err := r.registrations(ctx, f).
		Joins("JOIN results ON results.registration_id = registrations.id").
		Where("results.placement IS NOT NULL").
		Count(&n).Error
	return n, err
}

func (r *statsRepository) TopInstitutions(ctx context.Context, seasonID *uint64, limit int) ([]*InstitutionCount, error) {
	q := r.db.WithContext(ctx).Table("institutions").
		Select("institutions.name, institutions.code, COUNT(DISTINCT registrations.id) AS total").
		Joins("JOIN participants ON participants.institution_id = institutions.id").
		Joins("JOIN registrations ON registrations.participant_id = participants.id")
	if seasonID != nil {
		q = q.Joins("JOIN season_events ON season_events.id = registrations.season_event_id").
			Where("season_events.season_id = ?", *seasonID)
	}
	var rows []*InstitutionCount
	err := q.Group("institutions.id, institutions.name, institutions.code").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) RegistrationsByYear(ctx context.Context) ([]*YearCount, error) {
	var rows []*YearCount
	err := r.db.WithContext(ctx).Table("seasons").
		Select("seasons.year, COUNT(registrations.id) AS count").
		Joins("JOIN season_events ON season_events.season_id = seasons.id").
		Joins("JOIN registrations ON registrations.season_event_id = season_events.id").
		Group("seasons.id, seasons.year").
		Order("seasons.year ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) CountSeasonEventRegistrations(ctx context.Context, seasonEventID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("registrations").
		Where("season_event_id = ?", seasonEventID).
		Count(&n).Error
	return n, err
}

func (r *statsRepository) CountStageResults(ctx context.Context, stageID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("results").
		Where("stage_id = ?", stageID).
		Count(&n).Error
	return n, err
}

// hrRegistrations 机构在某赛季的报名，事件类型与分组过滤同时作用于所有 HR 指标
func (r *statsRepository) hrRegistrations(ctx context.Context, f HRFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("registrations").
		Joins("JOIN season_events ON season_events.id = registrations.season_event_id").
		Joins("JOIN participants ON participants.id = registrations.participant_id").
		Where("season_events.season_id = ?", f.SeasonID).
		Where("participants.institution_id = ?", f.InstitutionID)
	if len(f.EventTypes) > 0 {
		q = q.Joins("JOIN events ON events.id = season_events.event_id").
			Where("events.event_type IN ?", f.EventTypes)
	}
	if len(f.Divisions) > 0 {
		q = q.Where("participants.division IN ?", f.Divisions)
	}
	return q
}

func (r *statsRepository) HRRegistered(ctx context.Context, f HRFilter) (int64, error) {
	var n int64
	err := r.hrRegistrations(ctx, f).Count(&n).Error
	return n, err
}

func (r *statsRepository) HRParticipated(ctx context.Context, f HRFilter) (int64, error) {
	var n int64
	err := r.hrRegistrations(ctx, f).
		Joins("JOIN results ON results.registration_id = registrations.id").
		Distinct("registrations.id").
		Count(&n).Error
	return n, err
}

func (r *statsRepository) HRDivisionBreakdown(ctx context.Context, f HRFilter) ([]*DivisionCount, error) {
	var rows []*DivisionCount
	err := r.hrRegistrations(ctx, f).
		Select("participants.division AS division, COUNT(registrations.id) AS count").
		Where("participants.division IS NOT NULL").
		Group("participants.division").
		Order("participants.division ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) HRStageProgression(ctx context.Context, f HRFilter) ([]*StageCount, error) {
	var rows []*StageCount
	err := r.hrRegistrations(ctx, f).
		Select("stages.stage_number AS stage, COUNT(results.id) AS finishers").
		Joins("JOIN results ON results.registration_id = registrations.id").
		Joins("JOIN stages ON stages.id = results.stage_id").
		Group("stages.stage_number").
		Order("stages.stage_number ASC").
		Scan(&rows).Error
	return rows, err
}

package repository

import (
	"context"

	"EventSeries/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationRepository 报名仓储
type RegistrationRepository interface {
	Exists(ctx context.Context, participantID, seasonEventID uint64) (bool, error)
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id uint64) (*model.Registration, error)
	ListByParticipant(ctx context.Context, participantID uint64) ([]*model.Registration, error)
}

// ResultRepository 成绩仓储
type ResultRepository interface {
	// Upsert 按 (registration_id, stage_id) 写入或覆盖成绩
	Upsert(ctx context.Context, res *model.Result) error
	Recent(ctx context.Context, limit int) ([]*model.Result, error)
	HasResult(ctx context.Context, registrationID uint64) (bool, error)
}

type registrationRepository struct {
	db *gorm.DB
}

func (r *registrationRepository) Exists(ctx context.Context, participantID, seasonEventID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("participant_id = ? AND season_event_id = ?", participantID, seasonEventID).
		Count(&n).Error
	return n > 0, err
}

func (r *registrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	return translate(r.db.WithContext(ctx).Create(reg).Error)
}

func (r *registrationRepository) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	var reg model.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) ListByParticipant(ctx context.Context, participantID uint64) ([]*model.Registration, error) {
	var list []*model.Registration
	if err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

type resultRepository struct {
	db *gorm.DB
}

func (r *resultRepository) Upsert(ctx context.Context, res *model.Result) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_id"}, {Name: "stage_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"finish_time", "placement", "points"}),
	}).Create(res).Error
	if err != nil {
		return translate(err)
	}
	if res.ID == 0 {
		return translate(r.db.WithContext(ctx).
			Where("registration_id = ? AND stage_id = ?", res.RegistrationID, res.StageID).
			First(res).Error)
	}
	return nil
}

func (r *resultRepository) Recent(ctx context.Context, limit int) ([]*model.Result, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []*model.Result
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *resultRepository) HasResult(ctx context.Context, registrationID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Result{}).
		Where("registration_id = ?", registrationID).
		Count(&n).Error
	return n > 0, err
}

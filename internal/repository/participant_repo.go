package repository

import (
	"context"
	"strings"

	"EventSeries/internal/model"

	"gorm.io/gorm"
)

// ParticipantRepository 参赛者仓储
type ParticipantRepository interface {
	Create(ctx context.Context, p *model.Participant) error
	Save(ctx context.Context, p *model.Participant) error
	GetByID(ctx context.Context, id uint64) (*model.Participant, error)
	// GetForInstitution 仅返回属于该机构的参赛者，否则 ErrNotFound
	GetForInstitution(ctx context.Context, id, institutionID uint64) (*model.Participant, error)
	ListByInstitution(ctx context.Context, institutionID uint64) ([]*model.Participant, error)
	// ExistsByName 同机构内姓名（大小写不敏感）是否已存在
	ExistsByName(ctx context.Context, institutionID uint64, firstName, lastName string) (bool, error)
	Divisions(ctx context.Context, institutionID uint64) ([]string, error)
	// Delete 删除参赛者及其报名、成绩、号码布绑定
	Delete(ctx context.Context, id uint64) error
}

type participantRepository struct {
	db *gorm.DB
}

func (r *participantRepository) Create(ctx context.Context, p *model.Participant) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *participantRepository) Save(ctx context.Context, p *model.Participant) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *participantRepository) GetByID(ctx context.Context, id uint64) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *participantRepository) GetForInstitution(ctx context.Context, id, institutionID uint64) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.WithContext(ctx).
		Where("id = ? AND institution_id = ?", id, institutionID).
		First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *participantRepository) ListByInstitution(ctx context.Context, institutionID uint64) ([]*model.Participant, error) {
	var list []*model.Participant
	if err := r.db.WithContext(ctx).
		Where("institution_id = ?", institutionID).
		Order("last_name ASC, first_name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *participantRepository) ExistsByName(ctx context.Context, institutionID uint64, firstName, lastName string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("institution_id = ?", institutionID).
		Where("LOWER(first_name) = ? AND LOWER(last_name) = ?", strings.ToLower(firstName), strings.ToLower(lastName)).
		Count(&n).Error
	return n > 0, err
}

func (r *participantRepository) Divisions(ctx context.Context, institutionID uint64) ([]string, error) {
	var divs []string
	err := r.db.WithContext(ctx).Model(&model.Participant{}).
		Where("institution_id = ? AND division IS NOT NULL", institutionID).
		Distinct("division").
		Order("division ASC").
		Pluck("division", &divs).Error
	return divs, err
}

func (r *participantRepository) Delete(ctx context.Context, id uint64) error {
	db := r.db.WithContext(ctx)
	var regIDs []uint64
	if err := db.Model(&model.Registration{}).Where("participant_id = ?", id).Pluck("id", &regIDs).Error; err != nil {
		return err
	}
	if err := deleteRegistrations(db, regIDs); err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Participant{}).Error
}

// deleteRegistrations 删除报名及其成绩、号码布/芯片绑定
func deleteRegistrations(db *gorm.DB, regIDs []uint64) error {
	if len(regIDs) == 0 {
		return nil
	}
	if err := db.Where("registration_id IN ?", regIDs).Delete(&model.Result{}).Error; err != nil {
		return err
	}
	if err := db.Where("registration_id IN ?", regIDs).Delete(&model.BibNoAssignment{}).Error; err != nil {
		return err
	}
	if err := db.Where("registration_id IN ?", regIDs).Delete(&model.BibTagAssignment{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", regIDs).Delete(&model.Registration{}).Error
}

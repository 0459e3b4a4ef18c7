package repository

import (
	"context"

	"EventSeries/internal/model"

	"gorm.io/gorm"
)

// BibRow 号码布及当前绑定信息
type BibRow struct {
	ID             uint64  `gorm:"column:id" json:"id"`
	BibValue       string  `gorm:"column:bib_value" json:"bib_value"`
	SeasonID       uint64  `gorm:"column:season_id" json:"season_id"`
	InstitutionID  *uint64 `gorm:"column:institution_id" json:"institution_id"`
	RegistrationID *uint64 `gorm:"column:registration_id" json:"registration_id"`
	Status         *string `gorm:"column:status" json:"status"`
}

// BibRepository 号码布 / 芯片标签仓储
type BibRepository interface {
	// LockSequence 在 Postgres 上对 (season, institution) 加事务级咨询锁，其他数据库为空操作
	LockSequence(ctx context.Context, seasonID, institutionID uint64) error
	LatestBibNo(ctx context.Context, seasonID, institutionID uint64) (*model.BibNo, error)
	CountBibNos(ctx context.Context, seasonID, institutionID uint64) (int64, error)
	BibNoValueExists(ctx context.Context, seasonID uint64, value string) (bool, error)
	CreateBibNo(ctx context.Context, b *model.BibNo) error
	CreateBibNoAssignment(ctx context.Context, a *model.BibNoAssignment) error
	ActiveBibNoAssignment(ctx context.Context, registrationID uint64) (*model.BibNoAssignment, error)
	SetBibNoAssignmentStatus(ctx context.Context, registrationID, bibNoID uint64, status string) error
	// ActiveBibValue 报名当前有效的号码布值
	ActiveBibValue(ctx context.Context, registrationID uint64) (string, error)
	ListBibNos(ctx context.Context, seasonID uint64, institutionID *uint64) ([]*BibRow, error)

	BibTagValueExists(ctx context.Context, seasonID uint64, value string) (bool, error)
	CreateBibTag(ctx context.Context, b *model.BibTag) error
	CreateBibTagAssignment(ctx context.Context, a *model.BibTagAssignment) error
	ActiveBibTagAssignment(ctx context.Context, registrationID uint64) (*model.BibTagAssignment, error)
	SetBibTagAssignmentStatus(ctx context.Context, registrationID, bibTagID uint64, status string) error
}

type bibRepository struct {
	db *gorm.DB
}

func (r *bibRepository) LockSequence(ctx context.Context, seasonID, institutionID uint64) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(seasonID), int32(institutionID)).Error
}

func (r *bibRepository) LatestBibNo(ctx context.Context, seasonID, institutionID uint64) (*model.BibNo, error) {
	var b model.BibNo
	if err := r.db.WithContext(ctx).
		Where("season_id = ? AND institution_id = ?", seasonID, institutionID).
		Order("id DESC").
		First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bibRepository) CountBibNos(ctx context.Context, seasonID, institutionID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BibNo{}).
		Where("season_id = ? AND institution_id = ?", seasonID, institutionID).
		Count(&n).Error
	return n, err
}

func (r *bibRepository) BibNoValueExists(ctx context.Context, seasonID uint64, value string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BibNo{}).
		Where("season_id = ? AND bib_value = ?", seasonID, value).
		Count(&n).Error
	return n > 0, err
}

func (r *bibRepository) CreateBibNo(ctx context.Context, b *model.BibNo) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *bibRepository) CreateBibNoAssignment(ctx context.Context, a *model.BibNoAssignment) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *bibRepository) ActiveBibNoAssignment(ctx context.Context, registrationID uint64) (*model.BibNoAssignment, error) {
	var a model.BibNoAssignment
	if err := r.db.WithContext(ctx).
		Where("registration_id = ? AND status = ?", registrationID, model.BibActive).
		Order("assign_date DESC").
		First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *bibRepository) SetBibNoAssignmentStatus(ctx context.Context, registrationID, bibNoID uint64, status string) error {
	return r.db.WithContext(ctx).Model(&model.BibNoAssignment{}).
		Where("registration_id = ? AND bib_no_id = ?", registrationID, bibNoID).
		Update("status", status).Error
}

func (r *bibRepository) ActiveBibValue(ctx context.Context, registrationID uint64) (string, error) {
	var values []string
	err := r.db.WithContext(ctx).Table("bib_no_assignments").
		Joins("JOIN bib_nos ON bib_nos.id = bib_no_assignments.bib_no_id").
		Where("bib_no_assignments.registration_id = ? AND bib_no_assignments.status = ?", registrationID, model.BibActive).
		Order("bib_no_assignments.assign_date DESC").
		Limit(1).
		Pluck("bib_nos.bib_value", &values).Error
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

func (r *bibRepository) ListBibNos(ctx context.Context, seasonID uint64, institutionID *uint64) ([]*BibRow, error) {
	q := r.db.WithContext(ctx).Table("bib_nos").
		Select("bib_nos.id, bib_nos.bib_value, bib_nos.season_id, bib_nos.institution_id, " +
			"bib_no_assignments.registration_id, bib_no_assignments.status").
		Joins("LEFT JOIN bib_no_assignments ON bib_no_assignments.bib_no_id = bib_nos.id").
		Where("bib_nos.season_id = ?", seasonID)
	if institutionID != nil {
		q = q.Where("bib_nos.institution_id = ?", *institutionID)
	}
	var rows []*BibRow
	if err := q.Order("bib_nos.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *bibRepository) BibTagValueExists(ctx context.Context, seasonID uint64, value string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BibTag{}).
		Where("season_id = ? AND bib_value = ?", seasonID, value).
		Count(&n).Error
	return n > 0, err
}

func (r *bibRepository) CreateBibTag(ctx context.Context, b *model.BibTag) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *bibRepository) CreateBibTagAssignment(ctx context.Context, a *model.BibTagAssignment) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *bibRepository) ActiveBibTagAssignment(ctx context.Context, registrationID uint64) (*model.BibTagAssignment, error) {
	var a model.BibTagAssignment
	if err := r.db.WithContext(ctx).
		Where("registration_id = ? AND status = ?", registrationID, model.BibActive).
		Order("assign_date DESC").
		First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *bibRepository) SetBibTagAssignmentStatus(ctx context.Context, registrationID, bibTagID uint64, status string) error {
	return r.db.WithContext(ctx).Model(&model.BibTagAssignment{}).
		Where("registration_id = ? AND bib_tag_id = ?", registrationID, bibTagID).
		Update("status", status).Error
}

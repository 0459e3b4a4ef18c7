package repository

import (
	"context"

	"EventSeries/internal/model"

	"gorm.io/gorm"
)

// SeasonRepository 赛季仓储
type SeasonRepository interface {
	List(ctx context.Context) ([]*model.Season, error)
	GetByID(ctx context.Context, id uint64) (*model.Season, error)
	GetByYear(ctx context.Context, year int) (*model.Season, error)
	Create(ctx context.Context, s *model.Season) error
	// LatestByYear 年份最大的赛季
	LatestByYear(ctx context.Context) (*model.Season, error)
	// LatestCreated 最近创建的赛季
	LatestCreated(ctx context.Context) (*model.Season, error)
	Delete(ctx context.Context, id uint64) error
}

type seasonRepository struct {
	db *gorm.DB
}

func (r *seasonRepository) List(ctx context.Context) ([]*model.Season, error) {
	var list []*model.Season
	if err := r.db.WithContext(ctx).Order("year DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *seasonRepository) GetByID(ctx context.Context, id uint64) (*model.Season, error) {
	var s model.Season
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *seasonRepository) GetByYear(ctx context.Context, year int) (*model.Season, error) {
	var s model.Season
	if err := r.db.WithContext(ctx).Where("year = ?", year).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *seasonRepository) Create(ctx context.Context, s *model.Season) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *seasonRepository) LatestByYear(ctx context.Context) (*model.Season, error) {
	var s model.Season
	if err := r.db.WithContext(ctx).Order("year DESC").First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *seasonRepository) LatestCreated(ctx context.Context) (*model.Season, error) {
	var s model.Season
	if err := r.db.WithContext(ctx).Order("id DESC").First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *seasonRepository) Delete(ctx context.Context, id uint64) error {
	db := r.db.WithContext(ctx)
	var seIDs []uint64
	if err := db.Model(&model.SeasonEvent{}).Where("season_id = ?", id).Pluck("id", &seIDs).Error; err != nil {
		return err
	}
	for _, seID := range seIDs {
		if err := deleteSeasonEvent(db, seID); err != nil {
			return err
		}
	}
	// 赛季下的号码布/芯片随赛季一起清理
	if err := db.Where("season_id = ?", id).Delete(&model.BibNo{}).Error; err != nil {
		return err
	}
	if err := db.Where("season_id = ?", id).Delete(&model.BibTag{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Season{}).Error
}

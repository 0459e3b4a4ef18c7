package repository

import (
	"context"

	"EventSeries/internal/model"

	"gorm.io/gorm"
)

// InstitutionRepository 机构仓储
type InstitutionRepository interface {
	List(ctx context.Context) ([]*model.Institution, error)
	GetByID(ctx context.Context, id uint64) (*model.Institution, error)
	GetByCode(ctx context.Context, code string) (*model.Institution, error)
	Create(ctx context.Context, inst *model.Institution) error
}

// UserRepository 用户仓储
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *model.User) error
}

type institutionRepository struct {
	db *gorm.DB
}

func (r *institutionRepository) List(ctx context.Context) ([]*model.Institution, error) {
	var list []*model.Institution
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *institutionRepository) GetByID(ctx context.Context, id uint64) (*model.Institution, error) {
	var inst model.Institution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error; err != nil {
		return nil, translate(err)
	}
	return &inst, nil
}

func (r *institutionRepository) GetByCode(ctx context.Context, code string) (*model.Institution, error) {
	var inst model.Institution
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&inst).Error; err != nil {
		return nil, translate(err)
	}
	return &inst, nil
}

func (r *institutionRepository) Create(ctx context.Context, inst *model.Institution) error {
	return translate(r.db.WithContext(ctx).Create(inst).Error)
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	var list []*model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

package service

import (
	"context"
	"errors"
	"strings"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

// InstitutionService 机构维护
type InstitutionService struct{}

func NewInstitutionService() *InstitutionService {
	return &InstitutionService{}
}

func (s *InstitutionService) List(ctx context.Context, store *repository.Store) ([]*model.Institution, error) {
	return store.Institutions.List(ctx)
}

// Create code 统一大写，重复返回 Conflict
func (s *InstitutionService) Create(ctx context.Context, tx *repository.Store, name, code string) (*model.Institution, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, validationf("name and code are required")
	}
	inst := &model.Institution{Name: name, Code: code}
	if err := tx.Institutions.Create(ctx, inst); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("institution code %s already exists", code)
		}
		return nil, err
	}
	return inst, nil
}

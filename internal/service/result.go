package service

import (
	"context"
	"strings"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

const defaultRecentResults = 10

// ResultInput 录入成绩请求体
type ResultInput struct {
	RegistrationID uint64  `json:"registration_id"`
	StageID        uint64  `json:"stage_id"`
	FinishTime     *string `json:"finish_time"`
	Placement      *int    `json:"placement"`
	Points         *int    `json:"points"`
}

// ResultService 计分员录入成绩
type ResultService struct{}

func NewResultService() *ResultService {
	return &ResultService{}
}

// RecordResult 按 (registration, stage) 写入或覆盖成绩；分段须属于该报名的赛季赛事
func (s *ResultService) RecordResult(ctx context.Context, tx *repository.Store, in ResultInput) (*model.Result, error) {
	if in.RegistrationID == 0 || in.StageID == 0 {
		return nil, validationf("registration_id and stage_id are required")
	}
	if in.Placement != nil && *in.Placement <= 0 {
		return nil, validationf("placement must be positive")
	}
	reg, err := tx.Registrations.GetByID(ctx, in.RegistrationID)
	if err != nil {
		return nil, notFoundOr(err, "registration %d not found", in.RegistrationID)
	}
	stage, err := tx.Events.GetStage(ctx, in.StageID)
	if err != nil {
		return nil, notFoundOr(err, "stage %d not found", in.StageID)
	}
	if stage.SeasonEventID != reg.SeasonEventID {
		return nil, validationf("stage %d does not belong to the registered event", stage.ID)
	}
	res := &model.Result{
		RegistrationID: reg.ID,
		StageID:        stage.ID,
		Placement:      in.Placement,
		Points:         in.Points,
	}
	if in.FinishTime != nil {
		if v := strings.TrimSpace(*in.FinishTime); v != "" {
			res.FinishTime = &v
		}
	}
	if err := tx.Results.Upsert(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RecentResults 最近录入的成绩
func (s *ResultService) RecentResults(ctx context.Context, store *repository.Store, limit int) ([]*model.Result, error) {
	if limit <= 0 {
		limit = defaultRecentResults
	}
	return store.Results.Recent(ctx, limit)
}

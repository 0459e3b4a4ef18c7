package service

import (
	"context"
	"errors"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

// RegisteredEvent 一次新建报名的结果
type RegisteredEvent struct {
	RegistrationID uint64 `json:"registration_id"`
	EventName      string `json:"event_name"`
	BibNo          string `json:"bib_no"`
}

// AvailableEvent 可报名的赛事
type AvailableEvent struct {
	ID         uint64  `json:"id"`
	EventName  string  `json:"event_name"`
	EventType  string  `json:"event_type"`
	StartDate  *string `json:"start_date"`
	SeasonYear int     `json:"season_year"`
}

// RegistrationService 报名：一次请求内的全部报名与号码布绑定在同一事务中提交
type RegistrationService struct {
	bibs *BibService
}

func NewRegistrationService(bibs *BibService) *RegistrationService {
	return &RegistrationService{bibs: bibs}
}

// Register 为参赛者报名多个赛季赛事并自动分配号码布。
// 已报名或不存在的赛季赛事静默跳过；tx 须由调用方开启，任一错误都应整体回滚。
func (s *RegistrationService) Register(ctx context.Context, tx *repository.Store, participantID uint64, seasonEventIDs []uint64, institutionID uint64) ([]RegisteredEvent, error) {
	p, err := tx.Participants.GetForInstitution(ctx, participantID, institutionID)
	if err != nil {
		return nil, notFoundOr(err, "participant %d not found", participantID)
	}

	created := make([]RegisteredEvent, 0, len(seasonEventIDs))
	for _, seID := range seasonEventIDs {
		se, err := tx.Events.GetSeasonEvent(ctx, seID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		exists, err := tx.Registrations.Exists(ctx, p.ID, se.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		event, err := tx.Events.GetByID(ctx, se.EventID)
		if err != nil {
			return nil, notFoundOr(err, "event %d not found", se.EventID)
		}

		reg := &model.Registration{ParticipantID: p.ID, SeasonEventID: se.ID, Division: p.Division}
		if err := tx.Registrations.Create(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// 并发请求已抢先报名
				return nil, conflictf("participant %d already registered for season event %d", p.ID, se.ID)
			}
			return nil, err
		}
		bib, err := s.bibs.assign(ctx, tx, reg.ID, se.SeasonID, institutionID)
		if err != nil {
			return nil, err
		}
		created = append(created, RegisteredEvent{
			RegistrationID: reg.ID,
			EventName:      event.Name,
			BibNo:          bib.BibValue,
		})
	}
	return created, nil
}

// AvailableEvents 最新赛季（按年份）中处于 active 的赛事
func (s *RegistrationService) AvailableEvents(ctx context.Context, store *repository.Store) ([]AvailableEvent, error) {
	season, err := store.Seasons.LatestByYear(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return []AvailableEvent{}, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := store.Events.ListActiveSeasonEventRows(ctx, season.ID)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, AvailableEvent{
			ID:         r.ID,
			EventName:  r.EventName,
			EventType:  r.EventType,
			StartDate:  FormatDate(r.StartDate),
			SeasonYear: season.Year,
		})
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

const firstBib = 1001

// BibService 号码布分配：同一 (赛季, 机构) 内递增，赛季内 bib_value 唯一
type BibService struct{}

func NewBibService() *BibService {
	return &BibService{}
}

// NextBib 计算下一个号码布值，不落库。
// 取该 (赛季, 机构) 最近创建的号码布 +1；没有记录或旧值非数字时退回 1001+已有数量。
// 结果会跳过赛季内已被其他机构占用的值。
func (s *BibService) NextBib(ctx context.Context, store *repository.Store, seasonID, institutionID uint64) (string, error) {
	candidate := -1
	latest, err := store.Bibs.LatestBibNo(ctx, seasonID, institutionID)
	switch {
	case err == nil:
		if n, convErr := strconv.Atoi(strings.TrimSpace(latest.BibValue)); convErr == nil {
			candidate = n + 1
		}
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}
	if candidate < 0 {
		count, err := store.Bibs.CountBibNos(ctx, seasonID, institutionID)
		if err != nil {
			return "", err
		}
		candidate = firstBib + int(count)
	}
	for {
		value := strconv.Itoa(candidate)
		taken, err := store.Bibs.BibNoValueExists(ctx, seasonID, value)
		if err != nil {
			return "", err
		}
		if !taken {
			return value, nil
		}
		candidate++
	}
}

// AllocateBibNo 计算并写入新号码布。须在事务内调用；并发冲突返回 ErrConflict，由调用方重试整个事务
func (s *BibService) AllocateBibNo(ctx context.Context, tx *repository.Store, seasonID, institutionID uint64) (*model.BibNo, error) {
	if err := tx.Bibs.LockSequence(ctx, seasonID, institutionID); err != nil {
		return nil, err
	}
	value, err := s.NextBib(ctx, tx, seasonID, institutionID)
	if err != nil {
		return nil, err
	}
	inst := institutionID
	bib := &model.BibNo{BibValue: value, SeasonID: seasonID, InstitutionID: &inst}
	if err := tx.Bibs.CreateBibNo(ctx, bib); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("bib %s already allocated in season %d", value, seasonID)
		}
		return nil, err
	}
	return bib, nil
}

// assign 为报名分配新号码布并建立 active 绑定
func (s *BibService) assign(ctx context.Context, tx *repository.Store, registrationID, seasonID, institutionID uint64) (*model.BibNo, error) {
	bib, err := s.AllocateBibNo(ctx, tx, seasonID, institutionID)
	if err != nil {
		return nil, err
	}
	if err := tx.Bibs.CreateBibNoAssignment(ctx, &model.BibNoAssignment{
		RegistrationID: registrationID,
		BibNoID:        bib.ID,
		Status:         model.BibActive,
	}); err != nil {
		return nil, err
	}
	return bib, nil
}

// registrationOwner 报名所属的赛季与机构
func registrationOwner(ctx context.Context, store *repository.Store, registrationID uint64) (*model.Registration, uint64, uint64, error) {
	reg, err := store.Registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, 0, 0, notFoundOr(err, "registration %d not found", registrationID)
	}
	se, err := store.Events.GetSeasonEvent(ctx, reg.SeasonEventID)
	if err != nil {
		return nil, 0, 0, notFoundOr(err, "season event %d not found", reg.SeasonEventID)
	}
	p, err := store.Participants.GetByID(ctx, reg.ParticipantID)
	if err != nil {
		return nil, 0, 0, notFoundOr(err, "participant %d not found", reg.ParticipantID)
	}
	return reg, se.SeasonID, p.InstitutionID, nil
}

// ReplaceBibNo 将当前号码布标记为 lost/replaced 并分配新号码布
func (s *BibService) ReplaceBibNo(ctx context.Context, tx *repository.Store, registrationID, institutionID uint64, reason string) (*model.BibNo, error) {
	if reason != model.BibLost && reason != model.BibReplaced {
		return nil, validationf("reason must be %q or %q", model.BibLost, model.BibReplaced)
	}
	reg, seasonID, owner, err := registrationOwner(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}
	if owner != institutionID {
		return nil, notFoundf("registration %d not found", registrationID)
	}
	current, err := tx.Bibs.ActiveBibNoAssignment(ctx, reg.ID)
	switch {
	case err == nil:
		if err := tx.Bibs.SetBibNoAssignmentStatus(ctx, reg.ID, current.BibNoID, reason); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return s.assign(ctx, tx, reg.ID, seasonID, owner)
}

// AssignBibTag 绑定计时芯片，原有 active 芯片标记为 replaced
func (s *BibService) AssignBibTag(ctx context.Context, tx *repository.Store, registrationID, institutionID uint64, value string) (*model.BibTag, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, validationf("bib_value is required")
	}
	reg, seasonID, owner, err := registrationOwner(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}
	if owner != institutionID {
		return nil, notFoundf("registration %d not found", registrationID)
	}
	taken, err := tx.Bibs.BibTagValueExists(ctx, seasonID, value)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflictf("bib tag %s already exists in season", value)
	}
	current, err := tx.Bibs.ActiveBibTagAssignment(ctx, reg.ID)
	switch {
	case err == nil:
		if err := tx.Bibs.SetBibTagAssignmentStatus(ctx, reg.ID, current.BibTagID, model.BibReplaced); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	inst := owner
	tag := &model.BibTag{BibValue: value, SeasonID: seasonID, InstitutionID: &inst}
	if err := tx.Bibs.CreateBibTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictf("bib tag %s already exists in season", value)
		}
		return nil, err
	}
	if err := tx.Bibs.CreateBibTagAssignment(ctx, &model.BibTagAssignment{
		RegistrationID: reg.ID,
		BibTagID:       tag.ID,
		Status:         model.BibActive,
	}); err != nil {
		return nil, err
	}
	return tag, nil
}

// ListBibNos 赛季号码布及绑定情况，institutionID 为空时返回全部机构
func (s *BibService) ListBibNos(ctx context.Context, store *repository.Store, seasonID uint64, institutionID *uint64) ([]*repository.BibRow, error) {
	if _, err := store.Seasons.GetByID(ctx, seasonID); err != nil {
		return nil, notFoundOr(err, "season %d not found", seasonID)
	}
	return store.Bibs.ListBibNos(ctx, seasonID, institutionID)
}

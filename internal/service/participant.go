package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
)

const (
	notRegistered   = "Not Registered"
	statusCompleted = "Completed"
	statusActive    = "Active"
)

// ParticipantInput 新建/更新参赛者请求体；更新时 nil 字段保持不变
type ParticipantInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	BirthDate *string `json:"birth_date"`
	Sex       *string `json:"sex"`
	Division  *string `json:"division"`
	Email     *string `json:"email"`
	Contact   *string `json:"contact"`
}

// ParticipantSummary 列表行
type ParticipantSummary struct {
	ID            uint64  `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	FullName      string  `json:"full_name"`
	Division      string  `json:"division"`
	Sex           string  `json:"sex"`
	BirthDate     *string `json:"birth_date"`
	Age           *int    `json:"age"`
	Email         string  `json:"email"`
	Contact       string  `json:"contact"`
	Events        string  `json:"events"`
	Status        string  `json:"status"`
	InstitutionID uint64  `json:"institution_id"`
}

// ParticipantRegistration 参赛者详情中的报名
type ParticipantRegistration struct {
	RegistrationID uint64  `json:"registration_id"`
	SeasonEventID  uint64  `json:"season_event_id"`
	SeasonYear     int     `json:"season_year"`
	EventName      string  `json:"event_name"`
	BibNo          *string `json:"bib_no"`
}

// ParticipantDetail 参赛者详情
type ParticipantDetail struct {
	ID            uint64                    `json:"id"`
	FirstName     string                    `json:"first_name"`
	LastName      string                    `json:"last_name"`
	BirthDate     *string                   `json:"birth_date"`
	Age           *int                      `json:"age"`
	Sex           string                    `json:"sex"`
	Division      string                    `json:"division"`
	Email         string                    `json:"email"`
	Contact       string                    `json:"contact"`
	InstitutionID uint64                    `json:"institution_id"`
	Registrations []ParticipantRegistration `json:"registrations"`
}

// ImportRow 已解析的导入行
type ImportRow struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Sex       string `json:"sex"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
}

// ImportReport 批量导入结果，允许部分成功
type ImportReport struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// ParticipantService 机构内参赛者管理
type ParticipantService struct {
	now func() time.Time
}

func NewParticipantService(now func() time.Time) *ParticipantService {
	if now == nil {
		now = time.Now
	}
	return &ParticipantService{now: now}
}

// List 机构全部参赛者及报名概况，seasonID 非空时只统计该赛季的报名
func (s *ParticipantService) List(ctx context.Context, store *repository.Store, institutionID uint64, seasonID *uint64) ([]ParticipantSummary, error) {
	parts, err := store.Participants.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ParticipantSummary, 0, len(parts))
	for _, p := range parts {
		regs, err := store.Registrations.ListByParticipant(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		var names, statuses []string
		for _, reg := range regs {
			row, err := store.Events.GetSeasonEventRow(ctx, reg.SeasonEventID)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if seasonID != nil && row.SeasonID != *seasonID {
				continue
			}
			names = append(names, row.EventName)
			has, err := store.Results.HasResult(ctx, reg.ID)
			if err != nil {
				return nil, err
			}
			if has {
				statuses = append(statuses, statusCompleted)
			} else {
				statuses = append(statuses, statusActive)
			}
		}
		sum := ParticipantSummary{
			ID:            p.ID,
			FirstName:     p.FirstName,
			LastName:      p.LastName,
			FullName:      p.FirstName + " " + p.LastName,
			Division:      "—",
			Sex:           deref(p.Sex),
			BirthDate:     FormatDate(p.BirthDate),
			Age:           Age(p.BirthDate, now),
			Email:         deref(p.Email),
			Contact:       deref(p.Contact),
			Events:        notRegistered,
			Status:        notRegistered,
			InstitutionID: p.InstitutionID,
		}
		if p.Division != nil {
			sum.Division = *p.Division
		}
		if len(names) > 0 {
			sum.Events = strings.Join(names, ", ")
			sum.Status = statuses[0]
		}
		out = append(out, sum)
	}
	return out, nil
}

// Get 参赛者详情，须属于 institutionID
func (s *ParticipantService) Get(ctx context.Context, store *repository.Store, id, institutionID uint64) (*ParticipantDetail, error) {
	p, err := store.Participants.GetForInstitution(ctx, id, institutionID)
	if err != nil {
		return nil, notFoundOr(err, "participant %d not found", id)
	}
	regs, err := store.Registrations.ListByParticipant(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	d := &ParticipantDetail{
		ID:            p.ID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		BirthDate:     FormatDate(p.BirthDate),
		Age:           Age(p.BirthDate, s.now()),
		Sex:           deref(p.Sex),
		Division:      deref(p.Division),
		Email:         deref(p.Email),
		Contact:       deref(p.Contact),
		InstitutionID: p.InstitutionID,
		Registrations: make([]ParticipantRegistration, 0, len(regs)),
	}
	for _, reg := range regs {
		row, err := store.Events.GetSeasonEventRow(ctx, reg.SeasonEventID)
		if err != nil {
			return nil, notFoundOr(err, "season event %d not found", reg.SeasonEventID)
		}
		pr := ParticipantRegistration{
			RegistrationID: reg.ID,
			SeasonEventID:  row.ID,
			SeasonYear:     row.SeasonYear,
			EventName:      row.EventName,
		}
		bib, err := store.Bibs.ActiveBibValue(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		if bib != "" {
			pr.BibNo = &bib
		}
		d.Registrations = append(d.Registrations, pr)
	}
	return d, nil
}

// Create 新建参赛者。出生日期无法解析时按未填写处理
func (s *ParticipantService) Create(ctx context.Context, tx *repository.Store, in ParticipantInput, institutionID uint64) (*model.Participant, error) {
	first := strings.TrimSpace(deref(in.FirstName))
	last := strings.TrimSpace(deref(in.LastName))
	if first == "" || last == "" {
		return nil, validationf("first_name and last_name are required")
	}
	if _, err := tx.Institutions.GetByID(ctx, institutionID); err != nil {
		return nil, notFoundOr(err, "institution %d not found", institutionID)
	}
	p := &model.Participant{
		FirstName:     first,
		LastName:      last,
		BirthDate:     ParseDatePtr(in.BirthDate),
		Sex:           normalizeSex(in.Sex),
		Email:         nonEmpty(in.Email),
		Contact:       nonEmpty(in.Contact),
		InstitutionID: institutionID,
	}
	p.Division = Division(p.Sex, p.BirthDate, s.now())
	if p.Division == nil {
		p.Division = nonEmpty(in.Division)
	}
	if err := tx.Participants.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update 局部更新并重新推导分组；无法推导时保留原分组
func (s *ParticipantService) Update(ctx context.Context, tx *repository.Store, id uint64, in ParticipantInput, institutionID uint64) (*model.Participant, error) {
	p, err := tx.Participants.GetForInstitution(ctx, id, institutionID)
	if err != nil {
		return nil, notFoundOr(err, "participant %d not found", id)
	}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, validationf("first_name must not be empty")
		}
		p.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, validationf("last_name must not be empty")
		}
		p.LastName = v
	}
	if in.Email != nil {
		p.Email = nonEmpty(in.Email)
	}
	if in.Contact != nil {
		p.Contact = nonEmpty(in.Contact)
	}
	if in.Sex != nil {
		p.Sex = normalizeSex(in.Sex)
	}
	if bd := ParseDatePtr(in.BirthDate); bd != nil {
		p.BirthDate = bd
	}
	if div := Division(p.Sex, p.BirthDate, s.now()); div != nil {
		p.Division = div
	}
	if err := tx.Participants.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete 连同报名、成绩、号码布绑定一起删除
func (s *ParticipantService) Delete(ctx context.Context, tx *repository.Store, id, institutionID uint64) error {
	if _, err := tx.Participants.GetForInstitution(ctx, id, institutionID); err != nil {
		return notFoundOr(err, "participant %d not found", id)
	}
	return tx.Participants.Delete(ctx, id)
}

// CheckDuplicate 同机构同名（大小写不敏感）视为重复，仅作提示
func (s *ParticipantService) CheckDuplicate(ctx context.Context, store *repository.Store, firstName, lastName string, institutionID uint64) (bool, error) {
	return store.Participants.ExistsByName(ctx, institutionID, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
}

// BulkImport 逐行导入，坏行与重复行记入 Errors 并跳过，其余照常写入
func (s *ParticipantService) BulkImport(ctx context.Context, tx *repository.Store, rows []ImportRow, institutionID uint64) (*ImportReport, error) {
	if _, err := tx.Institutions.GetByID(ctx, institutionID); err != nil {
		return nil, notFoundOr(err, "institution %d not found", institutionID)
	}
	report := &ImportReport{Errors: []string{}}
	for i, row := range rows {
		n := i + 1
		first := strings.TrimSpace(row.FirstName)
		last := strings.TrimSpace(row.LastName)
		if first == "" || last == "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: first_name and last_name are required", n))
			continue
		}
		dup, err := s.CheckDuplicate(ctx, tx, first, last, institutionID)
		if err != nil {
			return nil, err
		}
		if dup {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %s %s already exists, skipped", n, first, last))
			continue
		}
		in := ParticipantInput{
			FirstName: &first,
			LastName:  &last,
			BirthDate: &row.BirthDate,
			Sex:       &row.Sex,
			Email:     &row.Email,
			Contact:   &row.Contact,
		}
		if _, err := s.Create(ctx, tx, in, institutionID); err != nil {
			if KindOf(err) == 0 {
				return nil, err
			}
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %s", n, err.Error()))
			continue
		}
		report.Added++
	}
	return report, nil
}

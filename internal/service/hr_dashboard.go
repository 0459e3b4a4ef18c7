package service

import (
	"context"

	"EventSeries/internal/repository"
)

// DivisionCount 分组人数
type DivisionCount struct {
	Division string `json:"division"`
	Count    int64  `json:"count"`
}

// StageFinishers 分段完赛人数
type StageFinishers struct {
	Stage     *int  `json:"stage"`
	Finishers int64 `json:"finishers"`
}

// SeasonDashboard HR 看板单个赛季的数据
type SeasonDashboard struct {
	SeasonID          uint64           `json:"season_id"`
	Year              int              `json:"year"`
	Registered        int64            `json:"registered"`
	Participated      int64            `json:"participated"`
	NoShows           int64            `json:"no_shows"`
	PartRate          float64          `json:"part_rate"`
	DivisionBreakdown []DivisionCount  `json:"division_breakdown"`
	StageProgression  []StageFinishers `json:"stage_progression"`
}

// FilterOptions HR 看板筛选项
type FilterOptions struct {
	Seasons   []SeasonOption `json:"seasons"`
	Events    []EventOption  `json:"events"`
	Divisions []string       `json:"divisions"`
}

type SeasonOption struct {
	ID   uint64 `json:"id"`
	Year int    `json:"year"`
}

type EventOption struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// HRDashboard 机构维度的逐赛季统计（按年份升序）。
// eventTypes / divisions 同时作用于报名数与参赛数，no_shows 不会为负。
func (s *MetricsService) HRDashboard(ctx context.Context, store *repository.Store, institutionID uint64, seasonIDs []uint64, eventTypes, divisions []string) ([]SeasonDashboard, error) {
	seasons, err := store.Seasons.List(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[uint64]bool, len(seasonIDs))
	for _, id := range seasonIDs {
		wanted[id] = true
	}

	out := make([]SeasonDashboard, 0, len(seasons))
	// List 按年份降序，倒序遍历得到升序
	for i := len(seasons) - 1; i >= 0; i-- {
		season := seasons[i]
		if len(wanted) > 0 && !wanted[season.ID] {
			continue
		}
		f := repository.HRFilter{
			InstitutionID: institutionID,
			SeasonID:      season.ID,
			EventTypes:    eventTypes,
			Divisions:     divisions,
		}
		registered, err := store.Stats.HRRegistered(ctx, f)
		if err != nil {
			return nil, err
		}
		participated, err := store.Stats.HRParticipated(ctx, f)
		if err != nil {
			return nil, err
		}
		divs, err := store.Stats.HRDivisionBreakdown(ctx, f)
		if err != nil {
			return nil, err
		}
		stages, err := store.Stats.HRStageProgression(ctx, f)
		if err != nil {
			return nil, err
		}

		d := SeasonDashboard{
			SeasonID:          season.ID,
			Year:              season.Year,
			Registered:        registered,
			Participated:      participated,
			NoShows:           registered - participated,
			DivisionBreakdown: make([]DivisionCount, 0, len(divs)),
			StageProgression:  make([]StageFinishers, 0, len(stages)),
		}
		if registered > 0 {
			d.PartRate = round1(float64(participated) / float64(registered) * 100)
		}
		for _, dc := range divs {
			d.DivisionBreakdown = append(d.DivisionBreakdown, DivisionCount{Division: dc.Division, Count: dc.Count})
		}
		for _, sc := range stages {
			d.StageProgression = append(d.StageProgression, StageFinishers{Stage: sc.Stage, Finishers: sc.Finishers})
		}
		out = append(out, d)
	}
	return out, nil
}

// HRFilterOptions 全部赛季、赛事以及本机构出现过的分组
func (s *MetricsService) HRFilterOptions(ctx context.Context, store *repository.Store, institutionID uint64) (*FilterOptions, error) {
	seasons, err := store.Seasons.List(ctx)
	if err != nil {
		return nil, err
	}
	events, err := store.Events.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	divs, err := store.Participants.Divisions(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	out := &FilterOptions{
		Seasons:   make([]SeasonOption, 0, len(seasons)),
		Events:    make([]EventOption, 0, len(events)),
		Divisions: divs,
	}
	if out.Divisions == nil {
		out.Divisions = []string{}
	}
	for i := len(seasons) - 1; i >= 0; i-- {
		out.Seasons = append(out.Seasons, SeasonOption{ID: seasons[i].ID, Year: seasons[i].Year})
	}
	for _, e := range events {
		out.Events = append(out.Events, EventOption{ID: e.ID, Name: e.Name, Type: e.EventType})
	}
	return out, nil
}

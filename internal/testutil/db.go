// Package testutil 测试用的 SQLite 数据库与基础数据构造
package testutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"

	"EventSeries/internal/config"
	"EventSeries/internal/db"
	"EventSeries/internal/model"
	"EventSeries/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Logger 丢弃输出的 logger
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewStore 每个测试一个独立的 SQLite 文件库，已完成迁移
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := db.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: path}, Logger())
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(conn)
}

// conflictingBibs 前若干次 CreateBibNo 返回唯一约束冲突，模拟并发事务抢先占用了同一号码
type conflictingBibs struct {
	repository.BibRepository
	remaining *atomic.Int64
}

func (b conflictingBibs) CreateBibNo(ctx context.Context, bib *model.BibNo) error {
	if b.remaining.Add(-1) >= 0 {
		return fmt.Errorf("%w: bib %s taken concurrently", repository.ErrDuplicate, bib.BibValue)
	}
	return b.BibRepository.CreateBibNo(ctx, bib)
}

// ConflictingBibs 返回让前 n 次号码布写入冲突的 Store 选项
func ConflictingBibs(n int64) repository.Option {
	remaining := &atomic.Int64{}
	remaining.Store(n)
	return repository.WrapBibs(func(inner repository.BibRepository) repository.BibRepository {
		return conflictingBibs{BibRepository: inner, remaining: remaining}
	})
}

// Institution 新建机构
func Institution(t testing.TB, store *repository.Store, code string) *model.Institution {
	t.Helper()
	inst := &model.Institution{Name: code + " Institution", Code: code}
	require.NoError(t, store.Institutions.Create(context.Background(), inst))
	return inst
}

// Season 新建赛季
func Season(t testing.TB, store *repository.Store, year int) *model.Season {
	t.Helper()
	s := &model.Season{Year: year}
	require.NoError(t, store.Seasons.Create(context.Background(), s))
	return s
}

// SeasonEvent 新建赛事并加入赛季，stages 为分段编号
func SeasonEvent(t testing.TB, store *repository.Store, seasonID uint64, name string, stages ...int) *model.SeasonEvent {
	t.Helper()
	ctx := context.Background()
	e, err := store.Events.FindByName(ctx, name)
	if err != nil {
		e = &model.Event{Name: name, EventType: "Walk"}
		require.NoError(t, store.Events.Create(ctx, e))
	}
	se := &model.SeasonEvent{SeasonID: seasonID, EventID: e.ID, Status: model.StatusActive}
	require.NoError(t, store.Events.CreateSeasonEvent(ctx, se))
	list := make([]*model.Stage, 0, len(stages))
	for _, n := range stages {
		n := n
		list = append(list, &model.Stage{StageNumber: &n})
	}
	require.NoError(t, store.Events.ReplaceStages(ctx, se.ID, list))
	return se
}

// Participant 新建参赛者
func Participant(t testing.TB, store *repository.Store, institutionID uint64, first, last string) *model.Participant {
	t.Helper()
	p := &model.Participant{FirstName: first, LastName: last, InstitutionID: institutionID}
	require.NoError(t, store.Participants.Create(context.Background(), p))
	return p
}

// Registration 直接写入报名（不分配号码布）
func Registration(t testing.TB, store *repository.Store, participantID, seasonEventID uint64) *model.Registration {
	t.Helper()
	reg := &model.Registration{ParticipantID: participantID, SeasonEventID: seasonEventID}
	require.NoError(t, store.Registrations.Create(context.Background(), reg))
	return reg
}

// Result 写入成绩，placement 为 nil 表示未完赛名次
func Result(t testing.TB, store *repository.Store, registrationID, stageID uint64, placement *int) *model.Result {
	t.Helper()
	res := &model.Result{RegistrationID: registrationID, StageID: stageID, Placement: placement}
	require.NoError(t, store.Results.Upsert(context.Background(), res))
	return res
}

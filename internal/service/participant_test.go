package service

import (
	"context"
	"testing"
	"time"

	"EventSeries/internal/repository"
	"EventSeries/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *datatypes.Date {
	v := datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

func TestDivision(t *testing.T) {
	cases := []struct {
		name  string
		sex   *string
		birth *datatypes.Date
		want  *string
	}{
		{"teen", strPtr("m"), date(2010, 1, 1), strPtr("M2029")},
		{"twenties", strPtr("F"), date(1999, 1, 1), strPtr("F3039")},
		{"thirties", strPtr("female"), date(1990, 1, 1), strPtr("F4049")},
		{"forties", strPtr("M"), date(1980, 1, 1), strPtr("M5059")},
		{"senior", strPtr("M"), date(1950, 1, 1), strPtr("M60+")},
		{"no sex", nil, date(1990, 1, 1), nil},
		{"blank sex", strPtr("  "), date(1990, 1, 1), nil},
		{"no birth", strPtr("M"), nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Division(tc.sex, tc.birth, fixedNow))
		})
	}
}

func TestAge_Uses365DayYears(t *testing.T) {
	require.Nil(t, Age(nil, fixedNow))
	// 2004-06-01 到 2024-06-01 共 7305 天，7305/365 = 20
	require.Equal(t, 20, *Age(date(2004, 6, 1), fixedNow))
	require.Equal(t, 19, *Age(date(2004, 6, 8), fixedNow))
}

func TestAge_ComparesCalendarDates(t *testing.T) {
	// 东八区 6 月 1 日凌晨，UTC 仍是 5 月 31 日；按本地日历日计算
	east := time.Date(2024, 6, 1, 1, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	// 2004-06-06 到 2024-06-01 恰好 7300 天
	require.Equal(t, 20, *Age(date(2004, 6, 6), east))
	require.Equal(t, "M3039", *Division(strPtr("M"), date(2004, 6, 6), east))

	late := time.Date(2024, 6, 1, 23, 59, 0, 0, time.FixedZone("UTC-5", -5*3600))
	require.Equal(t, 20, *Age(date(2004, 6, 6), late))
}

func TestDivision_MultibyteInitial(t *testing.T) {
	require.Equal(t, "É3039", *Division(strPtr("élan"), date(1999, 1, 1), fixedNow))
	require.Equal(t, "É", *normalizeSex(strPtr(" é ")))
	require.Equal(t, "F", *normalizeSex(strPtr("female")))
	require.Nil(t, normalizeSex(strPtr("  ")))
}

func TestParseDate(t *testing.T) {
	require.Nil(t, ParseDate(""))
	require.Nil(t, ParseDate("01/02/2024"))
	require.Nil(t, ParseDatePtr(nil))
	d := ParseDate(" 2024-02-29 ")
	require.NotNil(t, d)
	require.Equal(t, "2024-02-29", *FormatDate(d))
	require.Nil(t, FormatDate(nil))
}

func TestParticipant_CreateDerivesDivision(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	svc := NewParticipantService(func() time.Time { return fixedNow })

	p, err := svc.Create(ctx, store, ParticipantInput{
		FirstName: strPtr("Ann"),
		LastName:  strPtr("Lee"),
		BirthDate: strPtr("1990-04-12"),
		Sex:       strPtr("female"),
	}, inst.ID)
	require.NoError(t, err)
	require.Equal(t, "F", *p.Sex)
	require.Equal(t, "F4049", *p.Division)

	// 出生日期无法解析时按未填写处理，分组取请求值
	p, err = svc.Create(ctx, store, ParticipantInput{
		FirstName: strPtr("Bo"),
		LastName:  strPtr("Chan"),
		BirthDate: strPtr("12th of May"),
		Sex:       strPtr("M"),
		Division:  strPtr("Open"),
	}, inst.ID)
	require.NoError(t, err)
	require.Nil(t, p.BirthDate)
	require.Equal(t, "Open", *p.Division)

	_, err = svc.Create(ctx, store, ParticipantInput{FirstName: strPtr("Solo")}, inst.ID)
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, store, ParticipantInput{FirstName: strPtr("A"), LastName: strPtr("B")}, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParticipant_UpdateKeepsDivisionWhenNotDerivable(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	svc := NewParticipantService(func() time.Time { return fixedNow })

	p, err := svc.Create(ctx, store, ParticipantInput{
		FirstName: strPtr("Ann"),
		LastName:  strPtr("Lee"),
		BirthDate: strPtr("1990-04-12"),
		Sex:       strPtr("F"),
	}, inst.ID)
	require.NoError(t, err)

	// 清空性别后无法推导，原分组保留
	p, err = svc.Update(ctx, store, p.ID, ParticipantInput{Sex: strPtr(""), Email: strPtr("ann@example.com")}, inst.ID)
	require.NoError(t, err)
	require.Nil(t, p.Sex)
	require.Equal(t, "F4049", *p.Division)
	require.Equal(t, "ann@example.com", *p.Email)

	p, err = svc.Update(ctx, store, p.ID, ParticipantInput{Sex: strPtr("M"), BirthDate: strPtr("2010-01-01")}, inst.ID)
	require.NoError(t, err)
	require.Equal(t, "M2029", *p.Division)

	// 无法解析的出生日期不覆盖原值
	p, err = svc.Update(ctx, store, p.ID, ParticipantInput{BirthDate: strPtr("garbage")}, inst.ID)
	require.NoError(t, err)
	require.Equal(t, "2010-01-01", *FormatDate(p.BirthDate))

	other := testutil.Institution(t, store, "FCIT")
	_, err = svc.Update(ctx, store, p.ID, ParticipantInput{}, other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, store, p.ID, ParticipantInput{FirstName: strPtr(" ")}, inst.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestParticipant_ListAndGet(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	stages, err := store.Events.ListStages(ctx, se.ID)
	require.NoError(t, err)
	svc := NewParticipantService(func() time.Time { return fixedNow })

	ann := testutil.Participant(t, store, inst.ID, "Ann", "Lee")
	testutil.Participant(t, store, inst.ID, "Bo", "Adams")
	created, err := register(t, store, ann.ID, []uint64{se.ID}, inst.ID)
	require.NoError(t, err)
	testutil.Result(t, store, created[0].RegistrationID, stages[0].ID, intPtr(1))

	list, err := svc.List(ctx, store, inst.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Bo Adams", list[0].FullName)
	require.Equal(t, notRegistered, list[0].Status)
	require.Equal(t, "—", list[0].Division)
	require.Equal(t, "Urban Challenge", list[1].Events)
	require.Equal(t, statusCompleted, list[1].Status)

	other := testutil.Season(t, store, 2025)
	list, err = svc.List(ctx, store, inst.ID, &other.ID)
	require.NoError(t, err)
	require.Equal(t, notRegistered, list[1].Events)

	d, err := svc.Get(ctx, store, ann.ID, inst.ID)
	require.NoError(t, err)
	require.Len(t, d.Registrations, 1)
	require.Equal(t, 2024, d.Registrations[0].SeasonYear)
	require.Equal(t, "1001", *d.Registrations[0].BibNo)

	_, err = svc.Get(ctx, store, ann.ID, inst.ID+100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParticipant_DeleteCascades(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")
	created, err := register(t, store, p.ID, []uint64{se.ID}, inst.ID)
	require.NoError(t, err)
	svc := NewParticipantService(nil)

	require.ErrorIs(t, svc.Delete(ctx, store, p.ID, inst.ID+1), ErrNotFound)
	require.NoError(t, store.Transaction(ctx, func(tx *repository.Store) error {
		return svc.Delete(ctx, tx, p.ID, inst.ID)
	}))

	_, err = store.Registrations.GetByID(ctx, created[0].RegistrationID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Bibs.ActiveBibNoAssignment(ctx, created[0].RegistrationID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBulkImport_PartialSuccess(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	testutil.Participant(t, store, inst.ID, "Ann", "Lee")
	svc := NewParticipantService(func() time.Time { return fixedNow })

	report, err := svc.BulkImport(ctx, store, []ImportRow{
		{FirstName: "Bo", LastName: "Chan", BirthDate: "1985-01-01", Sex: "M"},
		{FirstName: "", LastName: "Nobody"},
		{FirstName: "ANN", LastName: "lee"},
		{FirstName: "Cy", LastName: "Diaz", BirthDate: "bad"},
		{FirstName: "Bo", LastName: "Chan"},
	}, inst.ID)
	require.NoError(t, err)
	require.Equal(t, 2, report.Added)
	require.Equal(t, 3, report.Skipped)
	require.Len(t, report.Errors, 3)
	require.Contains(t, report.Errors[0], "Row 2")
	require.Contains(t, report.Errors[1], "Row 3")
	require.Contains(t, report.Errors[2], "Row 5")

	dup, err := svc.CheckDuplicate(ctx, store, " bo ", "CHAN", inst.ID)
	require.NoError(t, err)
	require.True(t, dup)

	list, err := svc.List(ctx, store, inst.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
}

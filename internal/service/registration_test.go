package service

import (
	"context"
	"errors"
	"testing"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
	"EventSeries/internal/testutil"

	"github.com/stretchr/testify/require"
)

func register(t *testing.T, store *repository.Store, participantID uint64, seIDs []uint64, institutionID uint64) ([]RegisteredEvent, error) {
	t.Helper()
	var out []RegisteredEvent
	err := store.Transaction(context.Background(), func(tx *repository.Store) error {
		created, err := NewRegistrationService(NewBibService()).Register(context.Background(), tx, participantID, seIDs, institutionID)
		out = created
		return err
	})
	return out, err
}

func TestRegister_AllocatesBibPerEvent(t *testing.T) {
	store := testutil.NewStore(t)
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	a := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1, 2)
	b := testutil.SeasonEvent(t, store, season.ID, "Coastal Trek", 1)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")

	created, err := register(t, store, p.ID, []uint64{a.ID, b.ID}, inst.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, "Urban Challenge", created[0].EventName)
	require.Equal(t, "1001", created[0].BibNo)
	require.Equal(t, "Coastal Trek", created[1].EventName)
	require.Equal(t, "1002", created[1].BibNo)
}

func TestRegister_RepeatIsNoop(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")

	_, err := register(t, store, p.ID, []uint64{se.ID}, inst.ID)
	require.NoError(t, err)

	created, err := register(t, store, p.ID, []uint64{se.ID}, inst.ID)
	require.NoError(t, err)
	require.Empty(t, created)

	regs, err := store.Registrations.ListByParticipant(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)

	n, err := store.Bibs.CountBibNos(ctx, season.ID, inst.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRegister_SkipsUnknownSeasonEvent(t *testing.T) {
	store := testutil.NewStore(t)
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")

	created, err := register(t, store, p.ID, []uint64{9999, se.ID}, inst.ID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "Urban Challenge", created[0].EventName)
}

func TestRegister_ParticipantOfOtherInstitution(t *testing.T) {
	store := testutil.NewStore(t)
	cbtt := testutil.Institution(t, store, "CBTT")
	fcit := testutil.Institution(t, store, "FCIT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	p := testutil.Participant(t, store, cbtt.ID, "Ann", "Lee")

	_, err := register(t, store, p.ID, []uint64{se.ID}, fcit.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = register(t, store, 4242, []uint64{se.ID}, cbtt.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_CopiesParticipantDivision(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	div := "F3039"
	p := &model.Participant{FirstName: "Ann", LastName: "Lee", InstitutionID: inst.ID, Division: &div}
	require.NoError(t, store.Participants.Create(ctx, p))

	created, err := register(t, store, p.ID, []uint64{se.ID}, inst.ID)
	require.NoError(t, err)
	reg, err := store.Registrations.GetByID(ctx, created[0].RegistrationID)
	require.NoError(t, err)
	require.NotNil(t, reg.Division)
	require.Equal(t, "F3039", *reg.Division)
}

func TestRegister_RollsBackWholeBatch(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	a := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1)
	b := testutil.SeasonEvent(t, store, season.ID, "Coastal Trek", 1)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		created, err := NewRegistrationService(NewBibService()).Register(ctx, tx, p.ID, []uint64{a.ID, b.ID}, inst.ID)
		require.NoError(t, err)
		require.Len(t, created, 2)
		return boom
	})
	require.ErrorIs(t, err, boom)

	regs, err := store.Registrations.ListByParticipant(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, regs)
	n, err := store.Bibs.CountBibNos(ctx, season.ID, inst.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAvailableEvents_LatestSeasonActiveOnly(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	svc := NewRegistrationService(NewBibService())

	got, err := svc.AvailableEvents(ctx, store)
	require.NoError(t, err)
	require.Empty(t, got)

	s24 := testutil.Season(t, store, 2024)
	s23 := testutil.Season(t, store, 2023)
	testutil.SeasonEvent(t, store, s23.ID, "Old Walk", 1)
	testutil.SeasonEvent(t, store, s24.ID, "Urban Challenge", 1)
	off := testutil.SeasonEvent(t, store, s24.ID, "Coastal Trek", 1)
	require.NoError(t, store.Events.UpdateStatus(ctx, off.ID, model.StatusInactive))

	got, err = svc.AvailableEvents(ctx, store)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Urban Challenge", got[0].EventName)
	require.Equal(t, 2024, got[0].SeasonYear)
}

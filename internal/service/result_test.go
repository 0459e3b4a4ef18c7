package service

import (
	"context"
	"testing"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
	"EventSeries/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestRecordResult_UpsertsPerStage(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	svc := NewResultService()
	inst := testutil.Institution(t, store, "CBTT")
	season := testutil.Season(t, store, 2024)
	se := testutil.SeasonEvent(t, store, season.ID, "Urban Challenge", 1, 2)
	otherSE := testutil.SeasonEvent(t, store, season.ID, "Coastal Trek", 1)
	stages, err := store.Events.ListStages(ctx, se.ID)
	require.NoError(t, err)
	otherStages, err := store.Events.ListStages(ctx, otherSE.ID)
	require.NoError(t, err)
	p := testutil.Participant(t, store, inst.ID, "Ann", "Lee")
	reg := testutil.Registration(t, store, p.ID, se.ID)

	res, err := svc.RecordResult(ctx, store, ResultInput{
		RegistrationID: reg.ID,
		StageID:        stages[0].ID,
		FinishTime:     strPtr(" 00:42:10 "),
		Placement:      intPtr(3),
	})
	require.NoError(t, err)
	require.NotZero(t, res.ID)
	require.Equal(t, "00:42:10", *res.FinishTime)

	// 同一分段再次录入覆盖原成绩
	again, err := svc.RecordResult(ctx, store, ResultInput{RegistrationID: reg.ID, StageID: stages[0].ID, Placement: intPtr(1), Points: intPtr(10)})
	require.NoError(t, err)
	require.Equal(t, res.ID, again.ID)

	var stored []model.Result
	require.NoError(t, store.DB().Where("registration_id = ?", reg.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	require.Equal(t, 1, *stored[0].Placement)
	require.Equal(t, 10, *stored[0].Points)

	_, err = svc.RecordResult(ctx, store, ResultInput{RegistrationID: reg.ID, StageID: otherStages[0].ID})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordResult(ctx, store, ResultInput{RegistrationID: reg.ID, StageID: stages[1].ID, Placement: intPtr(0)})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordResult(ctx, store, ResultInput{RegistrationID: 999, StageID: stages[1].ID})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.RecordResult(ctx, store, ResultInput{RegistrationID: reg.ID, StageID: 999})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.RecordResult(ctx, store, ResultInput{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordResult(ctx, store, ResultInput{RegistrationID: reg.ID, StageID: stages[1].ID})
	require.NoError(t, err)
	recent, err := svc.RecentResults(ctx, store, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, stages[1].ID, recent[0].StageID)
}

func TestCreateUser(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	svc := &UserService{cost: 4}
	inst := testutil.Institution(t, store, "CBTT")

	create := func(in CreateUserInput) (*model.User, error) {
		var out *model.User
		err := store.Transaction(ctx, func(tx *repository.Store) error {
			u, err := svc.CreateUser(ctx, tx, in)
			out = u
			return err
		})
		return out, err
	}

	u, err := create(CreateUserInput{
		FirstName:     "Hana",
		LastName:      "Rao",
		Username:      "hana",
		Email:         "hana@example.com",
		Password:      "s3cret",
		Role:          string(model.RoleHR),
		InstitutionID: &inst.ID,
	})
	require.NoError(t, err)
	require.True(t, CheckPassword(u, "s3cret"))
	require.False(t, CheckPassword(u, "wrong"))

	_, err = create(CreateUserInput{Username: "hana", Email: "other@example.com", Password: "x", Role: "admin"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = create(CreateUserInput{Username: "hr2", Email: "hr2@example.com", Password: "x", Role: "hr"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = create(CreateUserInput{Username: "x", Email: "x@example.com", Password: "x", Role: "coach"})
	require.ErrorIs(t, err, ErrValidation)
	missing := uint64(999)
	_, err = create(CreateUserInput{Username: "pl", Email: "pl@example.com", Password: "x", Role: "pulse_leader", InstitutionID: &missing})
	require.ErrorIs(t, err, ErrNotFound)

	users, err := svc.ListUsers(ctx, store)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestCreateInstitution(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	svc := NewInstitutionService()

	inst, err := svc.Create(ctx, store, "Fire College", " fcit ")
	require.NoError(t, err)
	require.Equal(t, "FCIT", inst.Code)

	_, err = svc.Create(ctx, store, "Fire College Two", "FCIT")
	require.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, store, "", "X")
	require.ErrorIs(t, err, ErrValidation)

	list, err := svc.List(ctx, store)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

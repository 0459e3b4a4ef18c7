package seed

import (
	"context"
	"testing"

	"EventSeries/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestRun_Idempotent(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, store, testutil.Logger()))
	require.NoError(t, Run(ctx, store, testutil.Logger()))

	insts, err := store.Institutions.List(ctx)
	require.NoError(t, err)
	require.Len(t, insts, len(institutions))

	n, err := store.Users.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, len(users), n)

	hr, err := store.Users.GetByUsername(ctx, "hr_cbtt")
	require.NoError(t, err)
	cbtt, err := store.Institutions.GetByCode(ctx, "CBTT")
	require.NoError(t, err)
	require.Equal(t, cbtt.ID, *hr.InstitutionID)
}

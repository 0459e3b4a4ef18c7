package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(RegistrationsCreated))
	require.NoError(t, reg.Register(RequestErrors))

	before := testutil.ToFloat64(RegistrationsCreated)
	RegistrationsCreated.Add(2)
	require.Equal(t, before+2, testutil.ToFloat64(RegistrationsCreated))

	RequestErrors.WithLabelValues("conflict").Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(RequestErrors.WithLabelValues("conflict")))

	n, err := testutil.GatherAndCount(reg, "eventseries_request_errors_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

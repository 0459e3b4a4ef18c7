package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RegistrationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "eventseries_registrations_created_total", Help: "Total registrations created"},
	)
	BibsAllocated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "eventseries_bibs_allocated_total", Help: "Total bib numbers allocated"},
	)
	BibAllocationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "eventseries_bib_allocation_retries_total", Help: "Transactions retried after a bib uniqueness conflict"},
	)
	RequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventseries_request_errors_total", Help: "API errors by kind"},
		[]string{"kind"},
	)
)

func Register() {
	prometheus.MustRegister(RegistrationsCreated, BibsAllocated, BibAllocationRetries, RequestErrors)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibertrack_assignments_total",
			Help: "Total number of customer-to-cabinet assignment attempts by outcome",
		},
		[]string{"tenant_id", "outcome"},
	)

	PortReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibertrack_port_releases_total",
			Help: "Total number of port releases",
		},
		[]string{"tenant_id"},
	)

	ReservationRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibertrack_reservation_retries_total",
			Help: "Reservations retried on the next candidate after losing a capacity race",
		},
		[]string{"tenant_id"},
	)

	NearestSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fibertrack_nearest_search_seconds",
			Help:    "Nearest-cabinet search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"tenant_id"},
	)

	PortsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fibertrack_ports_in_use",
			Help: "Currently reserved ports per cabinet",
		},
		[]string{"tenant_id", "cabinet_id"},
	)

	TenantMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibertrack_tenant_mismatch_total",
			Help: "Requests that targeted a cabinet of another tenant",
		},
		[]string{"tenant_id"},
	)
)

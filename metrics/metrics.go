package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spardha"

// Collectors holds the counters the services increment.
type Collectors struct {
	Registry             *prometheus.Registry
	Registrations        *prometheus.CounterVec
	RegistrationFailures *prometheus.CounterVec
	AdminLogins          *prometheus.CounterVec
	StatusChanges        *prometheus.CounterVec
}

func New() *Collectors {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collectors{
		Registry: reg,
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Teams registered, by event.",
		}, []string{"event"}),
		RegistrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_failures_total",
			Help:      "Rejected or failed registrations, by reason.",
		}, []string{"reason"}),
		AdminLogins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_logins_total",
			Help:      "Admin passkey login attempts, by result.",
		}, []string{"result"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Team status changes, by new status.",
		}, []string{"status"}),
	}
}

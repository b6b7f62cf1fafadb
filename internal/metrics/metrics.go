// Package metrics provides Prometheus instrumentation for vault unlocks.
// A Recorder owns its own registry so one process can hold several vaults
// in tests; the CLI exports it with WriteTextfile for the node_exporter
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all credvault metrics
	Namespace = "credvault"

	// Label names
	LabelFactor  = "factor"
	LabelResult  = "result"
	LabelReason  = "reason"
	LabelOutcome = "outcome"

	// Result values
	ResultSuccess     = "success"
	ResultWrongFactor = "wrong_factor"
	ResultLockedOut   = "locked_out"
	ResultCanceled    = "canceled"
	ResultError       = "error"

	// Clean reasons
	ReasonExplicit    = "explicit"
	ReasonLockout     = "lockout"
	ReasonInitFailure = "init_failure"
)

// Recorder collects vault metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	UnlocksTotal      *prometheus.CounterVec
	LockoutsTotal     *prometheus.CounterVec
	CleansTotal       *prometheus.CounterVec
	ChallengeDuration *prometheus.HistogramVec
	Unlocked          prometheus.Gauge
}

// NewRecorder registers the vault metrics on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// UnlocksTotal counts unlock attempts by factor and result.
		UnlocksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "unlocks_total",
				Help:      "Total number of unlock attempts by factor and result",
			},
			[]string{LabelFactor, LabelResult},
		),

		LockoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "lockouts_total",
				Help:      "Total number of attempt lockouts by factor",
			},
			[]string{LabelFactor},
		),

		CleansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cleans_total",
				Help:      "Total number of vault erasures by reason",
			},
			[]string{LabelReason},
		),

		// ChallengeDuration covers the time the user spends at the prompt.
		ChallengeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "biometric",
				Name:      "challenge_duration_seconds",
				Help:      "Duration of biometric challenges in seconds",
				Buckets:   []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{LabelOutcome},
		),

		Unlocked: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "unlocked",
				Help:      "Whether the vault is currently unlocked (1) or not (0)",
			},
		),
	}
}

// Registry returns the registry holding the vault metrics
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordUnlock records an unlock attempt
func (r *Recorder) RecordUnlock(factor, result string) {
	if r == nil {
		return
	}
	r.UnlocksTotal.WithLabelValues(factor, result).Inc()
	if result == ResultSuccess {
		r.Unlocked.Set(1)
	}
}

// RecordLockout records an attempt counter reaching its limit
func (r *Recorder) RecordLockout(factor string) {
	if r == nil {
		return
	}
	r.LockoutsTotal.WithLabelValues(factor).Inc()
}

// RecordClean records a vault erasure
func (r *Recorder) RecordClean(reason string) {
	if r == nil {
		return
	}
	r.CleansTotal.WithLabelValues(reason).Inc()
}

// RecordChallenge records how long a biometric challenge took
func (r *Recorder) RecordChallenge(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.ChallengeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetUnlocked updates the unlocked gauge
func (r *Recorder) SetUnlocked(unlocked bool) {
	if r == nil {
		return
	}
	if unlocked {
		r.Unlocked.Set(1)
	} else {
		r.Unlocked.Set(0)
	}
}

// WriteTextfile writes the current metrics in text exposition format,
// atomically replacing path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Package metrics exposes decoder and assembler counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gnss-bridge/internal/fix"
)

var (
	Units = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_units_total",
		Help: "Delimited units read from the receiver stream",
	}, []string{"kind"})
	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_dropped_total",
		Help: "Units dropped by structural validation",
	}, []string{"reason"})
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_messages_total",
		Help: "Validated messages by sentence or message type",
	}, []string{"type"})
	Fixes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_fixes_total",
		Help: "Fixes emitted by assembler path",
	}, []string{"path"})
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_status_transitions_total",
		Help: "Provider status transitions by new status",
	}, []string{"status"})
	ProviderStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gnss_provider_status",
		Help: "Current provider status (0 out of service, 1 temporarily unavailable, 2 available)",
	}, []string{"path"})
	SatellitesUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gnss_satellites_used",
		Help: "Non-stale satellites used in the fix from the last satellite list",
	})
)

// ObserveResult counts one handled unit.
func ObserveResult(kind string, r fix.Result) {
	Units.WithLabelValues(kind).Inc()
	if r.Drop != "" {
		Dropped.WithLabelValues(r.Drop).Inc()
		return
	}
	if r.Type != "" {
		Messages.WithLabelValues(r.Type).Inc()
	}
}

func Handler() http.Handler { return promhttp.Handler() }

// listener counts assembler output before passing it on.
type listener struct {
	path string
	next fix.Listener
}

// Listener wraps next so that fixes and transitions from the given assembler
// path ("nmea" or "ubx") are counted. next may be nil.
func Listener(path string, next fix.Listener) fix.Listener {
	return &listener{path: path, next: next}
}

func (l *listener) OnFix(s fix.Snapshot) {
	Fixes.WithLabelValues(l.path).Inc()
	if l.next != nil {
		l.next.OnFix(s)
	}
}

func (l *listener) OnStatusChange(s fix.Status, e fix.Extras, ms int64) {
	StatusTransitions.WithLabelValues(s.String()).Inc()
	ProviderStatus.WithLabelValues(l.path).Set(float64(s))
	if l.next != nil {
		l.next.OnStatusChange(s, e, ms)
	}
}

func (l *listener) OnSatelliteList(recs []fix.SatelliteRecord) {
	SatellitesUsed.Set(float64(fix.UsedCount(recs)))
	if l.next != nil {
		l.next.OnSatelliteList(recs)
	}
}

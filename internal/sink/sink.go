// Package sink delivers assembler output to consumers outside the process:
// MQTT topics, a Redis last-known store and NMEA over UDP. Delivery failures
// are logged and never reach the assemblers.
package sink

import (
	"log"

	"gnss-bridge/internal/fix"
)

// Multi fans out to every non-nil listener in order.
type Multi []fix.Listener

func (m Multi) OnFix(s fix.Snapshot) {
	for _, l := range m {
		if l != nil {
			l.OnFix(s)
		}
	}
}

func (m Multi) OnStatusChange(s fix.Status, e fix.Extras, ms int64) {
	for _, l := range m {
		if l != nil {
			l.OnStatusChange(s, e, ms)
		}
	}
}

func (m Multi) OnSatelliteList(recs []fix.SatelliteRecord) {
	for _, l := range m {
		if l != nil {
			l.OnSatelliteList(recs)
		}
	}
}

// ForPath lets path-aware listeners in m see which assembler reports.
func (m Multi) ForPath(path string) fix.Listener {
	out := make(Multi, len(m))
	for i, l := range m {
		if l != nil {
			out[i] = fix.ForPath(l, path)
		}
	}
	return out
}

// StatusMessage is the wire form of a provider status change.
type StatusMessage struct {
	Status       fix.Status     `json:"status"`
	Extras       map[string]any `json:"extras,omitempty"`
	UpdateTimeMs int64          `json:"update_time_ms"`
}

func NewStatusMessage(s fix.Status, e fix.Extras, ms int64) StatusMessage {
	return StatusMessage{Status: s, Extras: e.Map(), UpdateTimeMs: ms}
}

// Log writes status transitions to the standard logger.
type Log struct {
	Logf func(format string, args ...any)
}

func (l Log) logf(format string, args ...any) {
	if l.Logf != nil {
		l.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (Log) OnFix(fix.Snapshot) {}

func (l Log) OnStatusChange(s fix.Status, e fix.Extras, ms int64) {
	sats := -1
	if e.Satellites != nil {
		sats = *e.Satellites
	}
	l.logf("gnss status=%s satellites=%d update_time_ms=%d", s, sats, ms)
}

func (Log) OnSatelliteList([]fix.SatelliteRecord) {}

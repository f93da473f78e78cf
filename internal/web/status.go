package web

import (
	"sync"
	"sync/atomic"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/gps"
	"gnss-bridge/internal/sink"
)

// GPSSource is implemented by *gps.Service.
type GPSSource interface {
	Snapshot() gps.Snapshot
}

// Status is a fix.Listener that keeps the latest provider state for the web
// API and forwards every event to the websocket broadcaster.
type Status struct {
	startUnixNano int64
	gps           atomic.Value // GPSSource

	mu         sync.Mutex
	paths      map[string]pathStatus
	seq        uint64
	lastFix    *fix.Snapshot
	fixes      uint64
	satellites []fix.SatelliteRecord

	events *Broadcaster
}

type pathStatus struct {
	status fix.Status
	ms     int64
	extras fix.Extras
	seq    uint64
}

func NewStatus() *Status {
	s := &Status{events: NewBroadcaster(), paths: make(map[string]pathStatus)}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	return s
}

// SetGPS attaches the service whose counters appear under "gps".
func (s *Status) SetGPS(src GPSSource) {
	if src != nil {
		s.gps.Store(src)
	}
}

func (s *Status) Events() *Broadcaster { return s.events }

func (s *Status) OnFix(snap fix.Snapshot) {
	s.mu.Lock()
	s.lastFix = &snap
	s.fixes++
	s.mu.Unlock()
	s.events.Publish(Event{Type: EventFix, Fix: &snap})
}

func (s *Status) OnStatusChange(st fix.Status, e fix.Extras, ms int64) {
	s.setStatus("", st, e, ms)
}

// ForPath returns a listener whose status changes are kept apart from the
// other assembler path. Fixes and satellites are shared.
func (s *Status) ForPath(path string) fix.Listener {
	return pathListener{Status: s, path: path}
}

type pathListener struct {
	*Status
	path string
}

func (p pathListener) OnStatusChange(st fix.Status, e fix.Extras, ms int64) {
	p.setStatus(p.path, st, e, ms)
}

func (s *Status) setStatus(path string, st fix.Status, e fix.Extras, ms int64) {
	s.mu.Lock()
	s.seq++
	s.paths[path] = pathStatus{status: st, ms: ms, extras: e, seq: s.seq}
	s.mu.Unlock()
	msg := sink.NewStatusMessage(st, e, ms)
	s.events.Publish(Event{Type: EventStatus, Path: path, Status: &msg})
}

func (s *Status) OnSatelliteList(recs []fix.SatelliteRecord) {
	cp := append([]fix.SatelliteRecord(nil), recs...)
	s.mu.Lock()
	s.satellites = cp
	s.mu.Unlock()
	s.events.Publish(Event{Type: EventSatellites, Satellites: visibleSatellites(cp)})
}

// visibleSatellites drops records the consumer should hide.
func visibleSatellites(recs []fix.SatelliteRecord) []fix.SatelliteRecord {
	out := make([]fix.SatelliteRecord, 0, len(recs))
	for _, r := range recs {
		if !r.Stale() {
			out = append(out, r)
		}
	}
	return out
}

type StatusSnapshot struct {
	Service   string `json:"service"`
	NowUTC    string `json:"now_utc"`
	UptimeSec int64  `json:"uptime_sec"`

	GPS gps.Snapshot `json:"gps"`

	// ProviderStatus is the best status over all paths; PathStatus holds
	// each assembler path's own.
	ProviderStatus sink.StatusMessage            `json:"provider_status"`
	PathStatus     map[string]sink.StatusMessage `json:"path_status,omitempty"`
	FixesTotal     uint64                        `json:"fixes_total"`
	LastFix        *fix.Snapshot                 `json:"last_fix,omitempty"`
	SatellitesUsed int                           `json:"satellites_used"`
	Satellites     []fix.SatelliteRecord         `json:"satellites"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   serviceName,
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
	}
	if src, ok := s.gps.Load().(GPSSource); ok {
		snap.GPS = src.Snapshot()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var best pathStatus
	for path, ps := range s.paths {
		if path != "" {
			if snap.PathStatus == nil {
				snap.PathStatus = make(map[string]sink.StatusMessage)
			}
			snap.PathStatus[path] = sink.NewStatusMessage(ps.status, ps.extras, ps.ms)
		}
		// Ties go to the most recent change.
		if best.seq == 0 || ps.status > best.status || (ps.status == best.status && ps.seq > best.seq) {
			best = ps
		}
	}
	snap.ProviderStatus = sink.NewStatusMessage(best.status, best.extras, best.ms)
	snap.FixesTotal = s.fixes
	if s.lastFix != nil {
		f := *s.lastFix
		snap.LastFix = &f
	}
	snap.Satellites = visibleSatellites(s.satellites)
	snap.SatellitesUsed = fix.UsedCount(snap.Satellites)
	return snap
}

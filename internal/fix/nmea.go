package fix

import (
	"errors"
	"time"

	"gnss-bridge/internal/nmea"
)

// NMEAAssembler pairs GGA and RMC sentences that share a UTC time token into
// one fix. When the time token changes while only one of the pair has
// arrived, the partial fix is flushed rather than discarded.
type NMEAAssembler struct {
	core

	hasGGA      bool
	hasRMC      bool
	pendingTime string
	pendingDate string
}

func NewNMEAAssembler(l Listener, opts Options) *NMEAAssembler {
	return &NMEAAssembler{core: newCore(l, opts)}
}

// HandleSentence tokenizes, validates and applies one sentence. Invalid input
// is logged and drops the pending fix; it is never returned as an error.
func (a *NMEAAssembler) HandleSentence(raw string) Result {
	s, err := nmea.Tokenize(raw)
	if err != nil {
		a.opts.Logf("nmea dropped sentence body=%q: %v", s.Body, err)
		a.reset()
		if errors.Is(err, nmea.ErrChecksum) {
			return Result{Type: s.Type(), Drop: DropChecksum}
		}
		return Result{Drop: DropMalformed}
	}
	msg := nmea.Decode(s)
	_, unknown := msg.(nmea.Unknown)
	a.Handle(msg)
	return Result{Type: msg.Type(), Parsed: !unknown}
}

// Handle applies one decoded sentence. Only GGA and RMC take part in fix
// assembly; the other types are accepted and ignored.
func (a *NMEAAssembler) Handle(msg nmea.Message) {
	switch m := msg.(type) {
	case nmea.GGA:
		a.handleGGA(m)
	case nmea.RMC:
		a.handleRMC(m)
	}
}

func (a *NMEAAssembler) reset() {
	a.hasGGA = false
	a.hasRMC = false
	a.pendingTime = ""
	a.pendingDate = ""
	a.resetPending()
}

func (a *NMEAAssembler) handleGGA(g nmea.GGA) {
	extras := Extras{FixStatus: ptr(g.Quality)}
	if g.HasSatellites {
		extras.Satellites = ptr(g.Satellites)
	}
	if g.Quality == 0 {
		a.setStatus(TemporarilyUnavailable, extras, a.nowMs())
		a.reset()
		return
	}
	a.setStatus(Available, extras, a.nowMs())
	if g.Time == "" {
		return
	}
	a.advance(g.Time)

	p := &a.pending
	if g.HasPosition {
		p.Latitude, p.Longitude = ptr(g.Latitude), ptr(g.Longitude)
	}
	if g.HasAltitude {
		p.Altitude = ptr(g.Altitude)
	}
	if g.HasHDOP {
		p.Accuracy = ptr(g.HDOP * a.opts.PrecisionFactor)
	}
	p.Extras.Satellites = extras.Satellites
	p.Extras.FixStatus = extras.FixStatus
	sbas := 0
	if g.Quality == 2 {
		sbas = 1
	}
	p.Extras.SBASStatus = ptr(sbas)

	a.hasGGA = true
	a.completeIfPaired()
}

func (a *NMEAAssembler) handleRMC(r nmea.RMC) {
	if !r.Active {
		a.setStatus(TemporarilyUnavailable, Extras{}, a.nowMs())
		a.reset()
		return
	}
	a.setStatus(Available, Extras{}, a.nowMs())
	if r.Time == "" {
		return
	}
	a.advance(r.Time)

	p := &a.pending
	if r.HasPosition {
		p.Latitude, p.Longitude = ptr(r.Latitude), ptr(r.Longitude)
	}
	if r.HasSpeed && a.opts.SpeedEnabled {
		p.Speed = ptr(r.Speed)
	}
	if r.HasBearing {
		p.Bearing = ptr(r.Bearing)
	}
	a.pendingDate = r.Date

	a.hasRMC = true
	a.completeIfPaired()
}

// advance flushes a half-assembled fix when a new time token arrives.
func (a *NMEAAssembler) advance(token string) {
	if token != a.pendingTime && (a.hasGGA || a.hasRMC) {
		a.flush()
	}
	a.pendingTime = token
}

func (a *NMEAAssembler) completeIfPaired() {
	if a.hasGGA && a.hasRMC {
		a.flush()
	}
}

func (a *NMEAAssembler) flush() {
	a.emit(a.fixTimeMs())
	a.hasGGA = false
	a.hasRMC = false
	a.pendingTime = ""
	a.pendingDate = ""
}

// fixTimeMs combines the RMC date, or the local UTC date when no RMC was
// seen, with the pending time token.
func (a *NMEAAssembler) fixTimeMs() int64 {
	tod, err := nmea.ParseTimeOfDay(a.pendingTime)
	if err != nil {
		return 0
	}
	day, err := nmea.ParseDate(a.pendingDate)
	if err != nil {
		now := a.opts.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return day.Add(tod).UnixMilli()
}

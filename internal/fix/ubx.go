package fix

import (
	"errors"

	"gnss-bridge/internal/ubx"
)

// UBXAssembler turns decoded UBX messages into fixes. PVT messages drive the
// provider status and emission; a fix is emitted at most once per iTOW.
// Other messages only annotate the pending fix.
type UBXAssembler struct {
	core

	factory *ubx.Factory
	sats    *satelliteTracker

	lastTOW    uint32
	hasLastTOW bool
}

func NewUBXAssembler(l Listener, opts Options) *UBXAssembler {
	c := newCore(l, opts)
	f := ubx.NewFactory(ubx.Options{
		HNREnabled:   c.opts.HNREnabled,
		SpeedEnabled: c.opts.SpeedEnabled,
		Logf:         c.opts.Logf,
	})
	return &UBXAssembler{core: c, factory: f, sats: newSatelliteTracker()}
}

// HandleFrame validates and applies exactly one frame. A structurally invalid
// frame is logged and drops the pending fix.
func (a *UBXAssembler) HandleFrame(raw []byte) Result {
	fr, err := ubx.ParseFrame(raw)
	if err != nil {
		a.opts.Logf("ubx dropped frame len=%d: %v", len(raw), err)
		a.resetPending()
		return Result{Drop: dropReason(err)}
	}
	msg, ok := a.factory.Decode(fr)
	a.Handle(msg, ok)
	return Result{Type: fr.Key().String(), Parsed: ok}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ubx.ErrChecksum):
		return DropChecksum
	case errors.Is(err, ubx.ErrSync):
		return DropSync
	case errors.Is(err, ubx.ErrLength):
		return DropLength
	default:
		return DropShort
	}
}

// Handle applies one decoded message. Messages that were not parsed never
// contribute to the fix or the status.
func (a *UBXAssembler) Handle(msg ubx.Message, parsed bool) {
	if !parsed || msg == nil {
		return
	}
	p := &a.pending
	switch m := msg.(type) {
	case ubx.PVT:
		a.handlePVT(m)
	case ubx.Odo:
		p.Extras.Distance1 = ptr(m.Distance)
		p.Extras.Distance2 = ptr(m.TotalDistance)
	case ubx.Slas:
		p.Extras.SLASStatus = ptr(m.Status())
	case ubx.EsfStatus:
		p.Extras.FusionStatus = ptr(int(m.FusionMode))
	case ubx.SvInfo:
		recs := a.sats.update(m.Satellites)
		if a.listener != nil {
			a.listener.OnSatelliteList(recs)
		}
	}
}

func (a *UBXAssembler) handlePVT(m ubx.PVT) {
	p := &a.pending
	p.Latitude, p.Longitude = ptr(m.Latitude), ptr(m.Longitude)
	p.Altitude = ptr(m.HeightMSL)
	p.Accuracy = ptr(m.HorizontalAccuracy)
	p.Bearing = ptr(m.Heading)
	if m.HasSpeed {
		p.Speed = ptr(m.Speed)
	}
	if m.HasNumSV {
		p.Extras.Satellites = ptr(m.NumSV)
	}
	p.Extras.FixStatus = ptr(int(m.FixType))
	sbas := 0
	if m.DiffCorrected() {
		sbas = 1
	}
	p.Extras.SBASStatus = ptr(sbas)

	extras := Extras{Satellites: p.Extras.Satellites, FixStatus: p.Extras.FixStatus}
	if !m.IsFix() {
		a.setStatus(TemporarilyUnavailable, extras, m.UTCMillis())
		a.resetPending()
		return
	}
	a.setStatus(Available, extras, m.UTCMillis())
	if a.hasLastTOW && m.TOW == a.lastTOW {
		return
	}
	a.emit(m.UTCMillis())
	a.lastTOW = m.TOW
	a.hasLastTOW = true
}

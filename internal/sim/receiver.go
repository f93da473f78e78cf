// Package sim emulates a GNSS receiver for bench testing without hardware.
package sim

import (
	"context"
	"io"
	"math"
	"strings"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/sink"
)

const metersPerDegLat = 111_320.0

// Receiver flies a figure-eight around a center point and emits $GNRMC and
// $GNGGA once per Interval, the way a receiver streams on its serial port.
type Receiver struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
	Satellites   int
	Interval     time.Duration
}

func (r Receiver) withDefaults() Receiver {
	if r.RadiusM <= 0 {
		r.RadiusM = 500
	}
	if r.Period <= 0 {
		r.Period = 120 * time.Second
	}
	if r.Satellites <= 0 {
		r.Satellites = 10
	}
	if r.Interval <= 0 {
		r.Interval = time.Second
	}
	return r
}

// Position returns the deterministic position for now, the track in degrees
// and the ground speed in m/s.
func (r Receiver) Position(now time.Time) (latDeg, lonDeg, trackDeg, speedMps float64) {
	r = r.withDefaults()
	period := r.Period

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())

	// x = cos(2πt) east-west, y = 0.5*sin(4πt) north-south
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = r.CenterLatDeg + r.RadiusM*y/metersPerDegLat
	lonDeg = r.CenterLonDeg + r.RadiusM*x/(metersPerDegLat*math.Cos(r.CenterLatDeg*math.Pi/180.0))

	// d/dt of the unit path, per period
	vx := -math.Sin(w)
	vy := math.Cos(2 * w)
	trackDeg = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)
	speedMps = r.RadiusM * 2 * math.Pi / period.Seconds() * math.Hypot(vx, vy)
	return latDeg, lonDeg, trackDeg, speedMps
}

// Snapshot is the fix the emitted sentences describe.
func (r Receiver) Snapshot(now time.Time) fix.Snapshot {
	r = r.withDefaults()
	lat, lon, trk, spd := r.Position(now)
	alt := r.AltM
	hdop := 0.9
	acc := hdop * fix.DefaultPrecisionFactor
	sats := r.Satellites
	quality := 1
	return fix.Snapshot{
		Fix: fix.Fix{
			Latitude:  &lat,
			Longitude: &lon,
			Altitude:  &alt,
			Accuracy:  &acc,
			Speed:     &spd,
			Bearing:   &trk,
			Extras: fix.Extras{
				Satellites: &sats,
				FixStatus:  &quality,
			},
		},
		Time:       now.UTC().UnixMilli(),
		ReceivedAt: now.UTC(),
	}
}

func (r Receiver) Sentences(now time.Time) []string {
	out, _ := sink.EncodeFix(r.Snapshot(now))
	return out
}

// Run writes one burst of sentences per Interval until ctx is done or w
// fails. The first burst is written immediately.
func (r Receiver) Run(ctx context.Context, w io.Writer, now func() time.Time) error {
	r = r.withDefaults()
	if now == nil {
		now = time.Now
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		if _, err := io.WriteString(w, strings.Join(r.Sentences(now()), "")); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Stream runs the receiver into a pipe. Closing the reader or cancelling ctx
// stops it.
func (r Receiver) Stream(ctx context.Context) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_ = pw.CloseWithError(r.Run(ctx, pw, time.Now))
	}()
	return pr
}

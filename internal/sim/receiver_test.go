package sim

import (
	"bufio"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/nmea"
)

func TestReceiver_Position_Invariants(t *testing.T) {
	r := Receiver{CenterLatDeg: 45.0, CenterLonDeg: -122.0, RadiusM: 1000, Period: 60 * time.Second}

	for i := 0; i < 60; i++ {
		now := time.Date(2025, 12, 20, 19, 0, i, 0, time.UTC)
		lat, lon, trk, spd := r.Position(now)
		for _, v := range []float64{lat, lon, trk, spd} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("invalid value at %s: %v", now, v)
			}
		}
		if trk < 0 || trk >= 360 {
			t.Fatalf("track out of range: %v", trk)
		}
		radiusDeg := r.RadiusM / metersPerDegLat
		if math.Abs(lat-r.CenterLatDeg) > radiusDeg*0.51 {
			t.Fatalf("lat offset too large: %f", math.Abs(lat-r.CenterLatDeg))
		}
		maxLonDeg := radiusDeg / math.Cos(r.CenterLatDeg*math.Pi/180.0)
		if math.Abs(lon-r.CenterLonDeg) > maxLonDeg*1.01 {
			t.Fatalf("lon offset too large: %f", math.Abs(lon-r.CenterLonDeg))
		}
		// |v| peaks at sqrt(2) times the circular speed.
		if spd < 0 || spd > r.RadiusM*2*math.Pi/60*math.Sqrt2*1.001 {
			t.Fatalf("speed out of range: %f", spd)
		}
	}
}

func TestReceiver_Position_Deterministic(t *testing.T) {
	r := Receiver{CenterLatDeg: 1, CenterLonDeg: 2}
	now := time.Date(2025, 12, 20, 19, 0, 0, 123, time.UTC)

	lat1, lon1, trk1, spd1 := r.Position(now)
	lat2, lon2, trk2, spd2 := r.Position(now)
	if lat1 != lat2 || lon1 != lon2 || trk1 != trk2 || spd1 != spd2 {
		t.Fatalf("expected deterministic result for same now")
	}
}

func TestReceiver_SentencesDecode(t *testing.T) {
	r := Receiver{CenterLatDeg: 47.3769, CenterLonDeg: 8.5417, AltM: 408, Satellites: 12}
	now := time.Date(2025, 6, 1, 10, 20, 30, 0, time.UTC)

	out := r.Sentences(now)
	if len(out) != 2 {
		t.Fatalf("sentences=%q", out)
	}
	s, err := nmea.Tokenize(out[1])
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	gga := nmea.Decode(s).(nmea.GGA)
	wantLat, _, _, _ := r.Position(now)
	if math.Abs(gga.Latitude-wantLat) > 1e-6 || gga.Satellites != 12 || gga.Altitude != 408 {
		t.Fatalf("gga=%+v", gga)
	}
}

func TestReceiver_StreamFeedsAssembler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := Receiver{CenterLatDeg: 10, CenterLonDeg: 20, Interval: 10 * time.Millisecond}
	stream := r.Stream(ctx)
	defer stream.Close()

	var fixes int
	a := fix.NewNMEAAssembler(listenerFunc(func(fix.Snapshot) { fixes++ }), fix.Options{SpeedEnabled: true, Logf: func(string, ...any) {}})

	sc := bufio.NewScanner(stream)
	for i := 0; i < 4 && sc.Scan(); i++ {
		line := sc.Text()
		if !strings.HasPrefix(line, "$GN") {
			t.Fatalf("line=%q", line)
		}
		a.HandleSentence(line)
	}
	if fixes < 1 {
		t.Fatalf("fixes=%d want >= 1", fixes)
	}

	cancel()
	for sc.Scan() {
	}
	if err := sc.Err(); err != nil && err != context.Canceled {
		t.Fatalf("scanner err=%v", err)
	}
}

type listenerFunc func(fix.Snapshot)

func (f listenerFunc) OnFix(s fix.Snapshot)                       { f(s) }
func (listenerFunc) OnStatusChange(fix.Status, fix.Extras, int64) {}
func (listenerFunc) OnSatelliteList([]fix.SatelliteRecord)        {}

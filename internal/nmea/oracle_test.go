package nmea

import (
	"math"
	"strings"
	"testing"

	gonmea "github.com/adrianmo/go-nmea"
)

// Cross-check the decoders against an independent NMEA implementation.
func TestDecode_AgreesWithGoNMEA(t *testing.T) {
	for _, line := range loggedSentences {
		trimmed := strings.TrimSpace(line)
		ref, err := gonmea.Parse(trimmed)
		if err != nil {
			t.Fatalf("go-nmea Parse(%q) error: %v", trimmed, err)
		}
		got := mustDecode(t, line)

		switch want := ref.(type) {
		case gonmea.GGA:
			g := got.(GGA)
			requireClose(t, "gga lat", g.Latitude, want.Latitude)
			requireClose(t, "gga lon", g.Longitude, want.Longitude)
			requireClose(t, "gga alt", g.Altitude, want.Altitude)
			requireClose(t, "gga hdop", g.HDOP, want.HDOP)
			if int64(g.Satellites) != want.NumSatellites {
				t.Fatalf("sats=%d want %d", g.Satellites, want.NumSatellites)
			}
		case gonmea.RMC:
			r := got.(RMC)
			requireClose(t, "rmc lat", r.Latitude, want.Latitude)
			requireClose(t, "rmc lon", r.Longitude, want.Longitude)
			requireClose(t, "rmc course", r.Bearing, want.Course)
			requireClose(t, "rmc speed", r.Speed, want.Speed*1.852/3.6)
			if r.Active != (want.Validity == gonmea.ValidRMC) {
				t.Fatalf("active=%v validity=%q", r.Active, want.Validity)
			}
		case gonmea.GLL:
			g := got.(GLL)
			requireClose(t, "gll lat", g.Latitude, want.Latitude)
			requireClose(t, "gll lon", g.Longitude, want.Longitude)
		case gonmea.VTG:
			v := got.(VTG)
			requireClose(t, "vtg track", v.TrueTrack, want.TrueTrack)
			requireClose(t, "vtg kmh", v.SpeedKmh, want.GroundSpeedKPH)
		case gonmea.GSA:
			g := got.(GSA)
			requireClose(t, "gsa pdop", g.PDOP, want.PDOP)
			requireClose(t, "gsa hdop", g.HDOP, want.HDOP)
			if len(g.PRNs) != len(nonEmpty(want.SV)) {
				t.Fatalf("prns=%v want %v", g.PRNs, want.SV)
			}
		}
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func requireClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s=%f want %f", name, got, want)
	}
}

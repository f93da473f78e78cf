package sink

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/nmea"
)

const metersPerSecondToKnots = 3.6 / 1.852

type sentenceSender interface {
	SendSentences(sentences ...string) error
}

// NMEAOut re-encodes every fix that has a position as a $GNRMC and $GNGGA
// pair, e.g. for chart plotters listening on UDP 10110.
type NMEAOut struct {
	out sentenceSender
}

func NewNMEAOut(out sentenceSender) *NMEAOut {
	return &NMEAOut{out: out}
}

func (n *NMEAOut) OnFix(s fix.Snapshot) {
	sentences, ok := EncodeFix(s)
	if !ok {
		return
	}
	if err := n.out.SendSentences(sentences...); err != nil {
		log.Printf("nmea out send failed: %v", err)
	}
}

func (*NMEAOut) OnStatusChange(fix.Status, fix.Extras, int64) {}
func (*NMEAOut) OnSatelliteList([]fix.SatelliteRecord)        {}

// EncodeFix renders RMC and GGA sentences with checksums and CRLF. ok is false
// when the fix has no position.
func EncodeFix(s fix.Snapshot) ([]string, bool) {
	f := s.Fix
	if !f.HasPosition() {
		return nil, false
	}
	t := s.ReceivedAt.UTC()
	if s.Time > 0 {
		t = time.UnixMilli(s.Time).UTC()
	}
	hms := fmt.Sprintf("%02d%02d%02d.%02d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e7)
	lat, ns := formatCoordinate(*f.Latitude, 2, "N", "S")
	lon, ew := formatCoordinate(*f.Longitude, 3, "E", "W")

	rmc := fmt.Sprintf("GNRMC,%s,A,%s,%s,%s,%s,%s,%s,%s,,,A",
		hms, lat, ns, lon, ew,
		optional(f.Speed, 1, metersPerSecondToKnots),
		optional(f.Bearing, 1, 1),
		t.Format("020106"))

	quality := 1
	if q := f.Extras.FixStatus; q != nil && *q >= 1 && *q <= 8 {
		quality = *q
	}
	sats := ""
	if f.Extras.Satellites != nil {
		sats = fmt.Sprintf("%02d", *f.Extras.Satellites)
	}
	gga := fmt.Sprintf("GNGGA,%s,%s,%s,%s,%s,%d,%s,%s,%s,M,,M,,",
		hms, lat, ns, lon, ew, quality, sats,
		optional(f.Accuracy, 2, 1/fix.DefaultPrecisionFactor),
		optional(f.Altitude, 1, 1))

	return []string{nmea.Format(rmc), nmea.Format(gga)}, true
}

// formatCoordinate renders decimal degrees as [d]ddmm.mmmmm plus hemisphere.
func formatCoordinate(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	// Round at the minutes precision first so 59.999999' carries into the
	// degrees instead of printing as 60.00000.
	totalMin := math.Round(v*60*1e5) / 1e5
	deg := math.Floor(totalMin / 60)
	minutes := totalMin - deg*60
	return fmt.Sprintf("%0*d%08.5f", degDigits, int(deg), minutes), hemi
}

func optional(v *float64, prec int, scale float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v*scale, 'f', prec, 64)
}

package nmea

import (
	"strings"
	"time"
)

// Message is one decoded sentence. The concrete type is one of GGA, RMC, GSA,
// VTG, GLL or Unknown.
type Message interface {
	Type() string
}

// GGA: Global Positioning System Fix Data
// Fields:
//
//	0: talker+type
//	1: time (hhmmss.ss)
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid .. 8=simulation)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
//
// 10: units (M)
// 11: geoid separation (meters)
type GGA struct {
	Talker string
	Time   string

	Latitude    float64
	Longitude   float64
	HasPosition bool

	Quality       int
	Satellites    int
	HasSatellites bool
	HDOP          float64
	HasHDOP       bool

	Altitude    float64
	HasAltitude bool
	GeoidHeight float64
}

func (GGA) Type() string { return "GGA" }

// RMC: Recommended Minimum Specific GNSS Data
// Fields:
//
//	0: talker+type
//	1: time
//	2: status (A=active, V=void)
//	3: latitude
//	4: N/S
//	5: longitude
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg true)
//	9: date (ddmmyy)
//
// 10: magnetic variation (deg)
// 11: E/W
type RMC struct {
	Talker string
	Time   string
	Active bool

	Latitude    float64
	Longitude   float64
	HasPosition bool

	// Speed is in m/s.
	Speed      float64
	HasSpeed   bool
	Bearing    float64
	HasBearing bool

	Date              string
	MagneticVariation float64
}

func (RMC) Type() string { return "RMC" }

// Timestamp combines the date and time tokens. ok is false when either is
// missing or unparsable.
func (r RMC) Timestamp() (time.Time, bool) {
	day, err := ParseDate(r.Date)
	if err != nil {
		return time.Time{}, false
	}
	tod, err := ParseTimeOfDay(r.Time)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(tod), true
}

// GSA: GNSS DOP and Active Satellites
type GSA struct {
	Talker  string
	Mode    string // M=manual, A=automatic
	FixType int    // 1=no fix, 2=2D, 3=3D
	PRNs    []int
	PDOP    float64
	HDOP    float64
	VDOP    float64
}

func (GSA) Type() string { return "GSA" }

// VTG: Course Over Ground and Ground Speed
type VTG struct {
	Talker        string
	TrueTrack     float64
	MagneticTrack float64
	SpeedKnots    float64
	SpeedKmh      float64
	// Speed is in m/s, taken from the km/h field when present.
	Speed    float64
	HasSpeed bool
}

func (VTG) Type() string { return "VTG" }

// GLL: Geographic Position - Latitude/Longitude
type GLL struct {
	Talker      string
	Latitude    float64
	Longitude   float64
	HasPosition bool
	Time        string
	Active      bool
}

func (GLL) Type() string { return "GLL" }

// Unknown carries any sentence type that is not decoded.
type Unknown struct {
	ID     string
	Fields []string
}

func (u Unknown) Type() string {
	if len(u.ID) > 3 {
		return strings.ToUpper(u.ID[len(u.ID)-3:])
	}
	return strings.ToUpper(u.ID)
}

// Decode turns a validated sentence into its typed record. Malformed numeric
// fields are left at their zero value; the sentence is still decoded.
func Decode(s Sentence) Message {
	f := strings.Split(s.Body, ",")
	talker := s.Talker()
	switch s.Type() {
	case "GGA":
		return decodeGGA(talker, f)
	case "RMC":
		return decodeRMC(talker, f)
	case "GSA":
		return decodeGSA(talker, f)
	case "VTG":
		return decodeVTG(talker, f)
	case "GLL":
		return decodeGLL(talker, f)
	default:
		return Unknown{ID: s.ID(), Fields: f}
	}
}

// field returns f[i] trimmed, or "" when the sentence is short.
func field(f []string, i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return strings.TrimSpace(f[i])
}

func decodePosition(f []string, latIdx int) (lat, lon float64, ok bool) {
	lat, err := ParseLatitude(field(f, latIdx), field(f, latIdx+1))
	if err != nil {
		return 0, 0, false
	}
	lon, err = ParseLongitude(field(f, latIdx+2), field(f, latIdx+3))
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func decodeGGA(talker string, f []string) GGA {
	g := GGA{Talker: talker, Time: field(f, 1)}
	g.Latitude, g.Longitude, g.HasPosition = decodePosition(f, 2)
	g.Quality, _ = parseInt(field(f, 6))
	g.Satellites, g.HasSatellites = parseInt(field(f, 7))
	g.HDOP, g.HasHDOP = parseFloat(field(f, 8))
	g.Altitude, g.HasAltitude = parseFloat(field(f, 9))
	g.GeoidHeight, _ = parseFloat(field(f, 11))
	return g
}

func decodeRMC(talker string, f []string) RMC {
	r := RMC{Talker: talker, Time: field(f, 1), Date: field(f, 9)}
	r.Active = strings.EqualFold(field(f, 2), "A")
	r.Latitude, r.Longitude, r.HasPosition = decodePosition(f, 3)
	if v, err := ParseSpeed(field(f, 7), "N"); err == nil {
		r.Speed = v
		r.HasSpeed = true
	}
	r.Bearing, r.HasBearing = parseFloat(field(f, 8))
	if mv, ok := parseFloat(field(f, 10)); ok {
		if strings.EqualFold(field(f, 11), "W") {
			mv = -mv
		}
		r.MagneticVariation = mv
	}
	return r
}

// GSA fields: 1 mode, 2 fix type, 3..14 PRNs, 15 PDOP, 16 HDOP, 17 VDOP.
func decodeGSA(talker string, f []string) GSA {
	g := GSA{Talker: talker, Mode: field(f, 1)}
	g.FixType, _ = parseInt(field(f, 2))
	if g.FixType > 1 {
		for i := 3; i <= 14; i++ {
			if prn, ok := parseInt(field(f, i)); ok {
				g.PRNs = append(g.PRNs, prn)
			}
		}
	}
	g.PDOP, _ = parseFloat(field(f, 15))
	g.HDOP, _ = parseFloat(field(f, 16))
	g.VDOP, _ = parseFloat(field(f, 17))
	return g
}

// VTG fields: 1 true track, 2 T, 3 magnetic track, 4 M, 5 knots, 6 N, 7 km/h, 8 K.
func decodeVTG(talker string, f []string) VTG {
	v := VTG{Talker: talker}
	v.TrueTrack, _ = parseFloat(field(f, 1))
	v.MagneticTrack, _ = parseFloat(field(f, 3))
	v.SpeedKnots, _ = parseFloat(field(f, 5))
	v.SpeedKmh, _ = parseFloat(field(f, 7))
	if s, err := ParseSpeed(field(f, 7), "K"); err == nil {
		v.Speed, v.HasSpeed = s, true
	} else if s, err := ParseSpeed(field(f, 5), "N"); err == nil {
		v.Speed, v.HasSpeed = s, true
	}
	return v
}

// GLL fields: 1 lat, 2 N/S, 3 lon, 4 E/W, 5 time, 6 status.
func decodeGLL(talker string, f []string) GLL {
	g := GLL{Talker: talker, Time: field(f, 5)}
	g.Latitude, g.Longitude, g.HasPosition = decodePosition(f, 1)
	g.Active = strings.EqualFold(field(f, 6), "A")
	return g
}

package fix

import (
	"fmt"
	"time"
)

// Status is the provider availability.
type Status int

const (
	OutOfService Status = iota
	TemporarilyUnavailable
	Available
)

func (s Status) String() string {
	switch s {
	case OutOfService:
		return "OUT_OF_SERVICE"
	case TemporarilyUnavailable:
		return "TEMPORARILY_UNAVAILABLE"
	case Available:
		return "AVAILABLE"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{OutOfService, TemporarilyUnavailable, Available} {
		if string(b) == v.String() {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("fix: unknown status %q", b)
}

// Keys used when extras cross the process boundary.
const (
	KeySatellites    = "satellites"
	KeySystemTimeFix = "system_time_fix"
	KeyFixStatus     = "fix_status"
	KeySBASStatus    = "sbas_status"
	KeySLASStatus    = "slas_status"
	KeyFusionStatus  = "fusion_status"
	KeyDistance1     = "distance1_status"
	KeyDistance2     = "distance2_status"
)

// Extras holds the auxiliary status fields attached to a fix. Nil means the
// field was not reported.
type Extras struct {
	Satellites    *int    `json:"satellites,omitempty"`
	SystemTimeFix *int64  `json:"system_time_fix,omitempty"`
	FixStatus     *int    `json:"fix_status,omitempty"`
	SBASStatus    *int    `json:"sbas_status,omitempty"`
	SLASStatus    *int    `json:"slas_status,omitempty"`
	FusionStatus  *int    `json:"fusion_status,omitempty"`
	Distance1     *uint32 `json:"distance1_status,omitempty"`
	Distance2     *uint32 `json:"distance2_status,omitempty"`
}

// Map flattens the set fields into the string-keyed form consumers expect.
func (e Extras) Map() map[string]any {
	m := make(map[string]any)
	if e.Satellites != nil {
		m[KeySatellites] = *e.Satellites
	}
	if e.SystemTimeFix != nil {
		m[KeySystemTimeFix] = *e.SystemTimeFix
	}
	if e.FixStatus != nil {
		m[KeyFixStatus] = *e.FixStatus
	}
	if e.SBASStatus != nil {
		m[KeySBASStatus] = *e.SBASStatus
	}
	if e.SLASStatus != nil {
		m[KeySLASStatus] = *e.SLASStatus
	}
	if e.FusionStatus != nil {
		m[KeyFusionStatus] = *e.FusionStatus
	}
	if e.Distance1 != nil {
		m[KeyDistance1] = *e.Distance1
	}
	if e.Distance2 != nil {
		m[KeyDistance2] = *e.Distance2
	}
	return m
}

// Fix is a (possibly partial) position solution. Units: degrees, meters,
// meters/second.
type Fix struct {
	Latitude  *float64 `json:"lat_deg,omitempty"`
	Longitude *float64 `json:"lon_deg,omitempty"`
	Altitude  *float64 `json:"alt_m,omitempty"`
	Accuracy  *float64 `json:"accuracy_m,omitempty"`
	Speed     *float64 `json:"speed_mps,omitempty"`
	Bearing   *float64 `json:"bearing_deg,omitempty"`

	Extras Extras `json:"extras"`
}

// HasPosition reports whether both coordinates are set.
func (f Fix) HasPosition() bool { return f.Latitude != nil && f.Longitude != nil }

// Snapshot is an emitted fix.
type Snapshot struct {
	Fix Fix `json:"fix"`
	// Time is the receiver-reported UTC time in epoch ms, 0 when unknown.
	Time int64 `json:"time_ms"`
	// ReceivedAt is the local wall-clock time of emission.
	ReceivedAt time.Time `json:"received_at"`
}

// Listener receives assembler output. Calls are made synchronously from the
// goroutine feeding the assembler.
type Listener interface {
	OnFix(Snapshot)
	OnStatusChange(status Status, extras Extras, updateTimeMs int64)
	OnSatelliteList([]SatelliteRecord)
}

// PathListener is implemented by listeners that keep state per assembler
// path ("nmea" or "ubx").
type PathListener interface {
	ForPath(path string) Listener
}

// ForPath returns the listener to hand to the assembler for path.
func ForPath(l Listener, path string) Listener {
	if pl, ok := l.(PathListener); ok {
		return pl.ForPath(path)
	}
	return l
}

// Drop reasons reported in Result.
const (
	DropMalformed = "malformed"
	DropChecksum  = "checksum"
	DropSync      = "sync"
	DropLength    = "length"
	DropShort     = "short"
)

// Result describes what one Handle call did with its input.
type Result struct {
	// Type is the sentence type ("GGA") or UBX message name ("NAV-PVT").
	Type string
	// Parsed is false for unknown or disabled messages and dropped input.
	Parsed bool
	// Drop is set when the unit failed structural validation.
	Drop string
}

// Options configure an assembler. They are read once at construction.
type Options struct {
	// SpeedEnabled makes emitted fixes carry ground speed.
	SpeedEnabled bool
	// HNREnabled turns on UBX HNR-PVT decoding.
	HNREnabled bool
	// PrecisionFactor converts NMEA HDOP into an accuracy in meters.
	// Defaults to DefaultPrecisionFactor.
	PrecisionFactor float64

	// Now defaults to time.Now.
	Now func() time.Time
	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)
}

const DefaultPrecisionFactor = 5.0

func ptr[T any](v T) *T { return &v }

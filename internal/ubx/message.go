package ubx

// Message is one decoded UBX message. The concrete type is one of PVT, Odo,
// SvInfo, Slas, EsfStatus or NotImplemented.
type Message interface {
	Key() Key
	// ITow returns the GPS time of week in ms when the payload carries one.
	ITow() (uint32, bool)
}

var (
	KeyNavPVT    = MakeKey(0x01, 0x07)
	KeyNavOdo    = MakeKey(0x01, 0x09)
	KeyNavSvInfo = MakeKey(0x01, 0x30)
	KeyNavSlas   = MakeKey(0x01, 0x42)
	KeyEsfStatus = MakeKey(0x10, 0x10)
	KeyHnrPVT    = MakeKey(0x28, 0x00)
)

var keyNames = map[Key]string{
	KeyNavPVT:    "NAV-PVT",
	KeyNavOdo:    "NAV-ODO",
	KeyNavSvInfo: "NAV-SVINFO",
	KeyNavSlas:   "NAV-SLAS",
	KeyEsfStatus: "ESF-STATUS",
	KeyHnrPVT:    "HNR-PVT",
}

// PVT is a position/velocity/time solution from NAV-PVT or HNR-PVT.
type PVT struct {
	Source Key
	TOW    uint32
	// UTC is the solution time in epoch ms, 0 when the date fields did not
	// form a valid time.
	UTC int64

	FixType byte
	Flags   byte

	NumSV    int
	HasNumSV bool

	// Degrees.
	Latitude  float64
	Longitude float64
	// Meters above mean sea level.
	HeightMSL float64
	// Horizontal accuracy estimate, meters.
	HorizontalAccuracy float64

	// Ground speed in m/s, only set when speed reporting is enabled.
	Speed    float64
	HasSpeed bool
	// Heading in degrees.
	Heading float64
}

func (p PVT) Key() Key             { return p.Source }
func (p PVT) ITow() (uint32, bool) { return p.TOW, true }
func (p PVT) IsFix() bool          { return p.FixType != 0 }
func (p PVT) DiffCorrected() bool  { return p.Flags&0x02 != 0 }
func (p PVT) UTCMillis() int64     { return p.UTC }

// Odo carries the NAV-ODO odometer counters in meters.
type Odo struct {
	TOW           uint32
	Distance      uint32
	TotalDistance uint32
}

func (Odo) Key() Key               { return KeyNavOdo }
func (o Odo) ITow() (uint32, bool) { return o.TOW, true }

// SvInfo is the per-channel satellite list from NAV-SVINFO.
type SvInfo struct {
	TOW        uint32
	Satellites []Satellite
}

func (SvInfo) Key() Key               { return KeyNavSvInfo }
func (s SvInfo) ITow() (uint32, bool) { return s.TOW, true }

// Slas is the QZSS SLAS correction status from NAV-SLAS.
type Slas struct {
	TOW          uint32
	SatelliteID  byte
	ServiceFlags byte
	Count        byte
}

func (Slas) Key() Key               { return KeyNavSlas }
func (s Slas) ITow() (uint32, bool) { return s.TOW, true }

// Active reports whether corrections are in use: service flags 3, at least
// one correction and a known correction satellite.
func (s Slas) Active() bool {
	return s.ServiceFlags == 3 && s.Count > 0 && s.SatelliteID > 0
}

// Status is the correction satellite id while active, 0 otherwise.
func (s Slas) Status() int {
	if !s.Active() {
		return 0
	}
	return int(s.SatelliteID)
}

// FusionMode is the ESF-STATUS sensor fusion mode.
type FusionMode byte

const (
	FusionInitializing FusionMode = 0
	FusionFusing       FusionMode = 1
	FusionSuspended    FusionMode = 2
	FusionDisabled     FusionMode = 3
)

func (m FusionMode) String() string {
	switch m {
	case FusionInitializing:
		return "initializing"
	case FusionFusing:
		return "fusing"
	case FusionSuspended:
		return "suspended"
	case FusionDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// EsfStatus carries the ESF-STATUS fusion mode.
type EsfStatus struct {
	TOW        uint32
	FusionMode FusionMode
}

func (EsfStatus) Key() Key               { return KeyEsfStatus }
func (e EsfStatus) ITow() (uint32, bool) { return e.TOW, true }

// NotImplemented stands in for any message that is not decoded, including
// recognized messages whose decoding is disabled or whose payload is short.
type NotImplemented struct {
	Source Key
	TOW    uint32
	HasTOW bool
}

func (n NotImplemented) Key() Key             { return n.Source }
func (n NotImplemented) ITow() (uint32, bool) { return n.TOW, n.HasTOW }

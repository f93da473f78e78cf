package ubx

// Constellation tags a satellite with its GNSS system.
type Constellation string

const (
	ConstellationGPS     Constellation = "GPS"
	ConstellationSBAS    Constellation = "SBAS"
	ConstellationGalileo Constellation = "Galileo"
	ConstellationBeiDou  Constellation = "BeiDou"
	ConstellationQZSS    Constellation = "QZSS"
	ConstellationGLONASS Constellation = "GLONASS"
)

// Satellite is one NAV-SVINFO channel.
type Satellite struct {
	SVID int
	// Number is the constellation-relative satellite number.
	Number        int
	Constellation Constellation
	// CNO is the carrier-to-noise ratio in dBHz.
	CNO  int
	Used bool
}

type svidRange struct {
	lo, hi int
	offset int
	c      Constellation
}

var svidRanges = []svidRange{
	{1, 32, 0, ConstellationGPS},
	{33, 64, 27, ConstellationBeiDou},
	{65, 96, 64, ConstellationGLONASS},
	{120, 158, 0, ConstellationSBAS},
	{159, 163, 158, ConstellationBeiDou},
	{193, 197, 192, ConstellationQZSS},
	{211, 246, 210, ConstellationGalileo},
}

// SatelliteNumber maps a UBX svid to its constellation-relative number.
// ok is false for svids outside every known range.
func SatelliteNumber(svid int) (number int, c Constellation, ok bool) {
	for _, r := range svidRanges {
		if svid >= r.lo && svid <= r.hi {
			return svid - r.offset, r.c, true
		}
	}
	return 0, "", false
}

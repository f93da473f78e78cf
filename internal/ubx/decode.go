package ubx

const (
	navPVTMinLen    = 68
	hnrPVTMinLen    = 56
	navOdoMinLen    = 20
	navSvInfoMinLen = 8
	svInfoStride    = 12
	navSlasMinLen   = 20
	esfStatusMinLen = 16
)

// pvtLayout holds the payload offsets that differ between NAV-PVT and HNR-PVT.
type pvtLayout struct {
	minLen  int
	nano    int
	fixType int
	flags   int
	numSV   int // -1 when the message has no satellite count
	lon     int
	lat     int
	height  int
	speed   int
	heading int
	hAcc    int
}

var (
	navPVTLayout = pvtLayout{
		minLen: navPVTMinLen, nano: 16, fixType: 20, flags: 21, numSV: 23,
		lon: 24, lat: 28, height: 36, hAcc: 40, speed: 60, heading: 64,
	}
	hnrPVTLayout = pvtLayout{
		minLen: hnrPVTMinLen, nano: 12, fixType: 16, flags: 17, numSV: -1,
		lon: 20, lat: 24, height: 32, speed: 36, heading: 48, hAcc: 52,
	}
)

func decodeNavPVT(p []byte, opts Options) (Message, bool) {
	return decodePVT(KeyNavPVT, navPVTLayout, p, opts)
}

func decodeHnrPVT(p []byte, opts Options) (Message, bool) {
	if !opts.HNREnabled {
		return notImplemented(KeyHnrPVT, p), false
	}
	return decodePVT(KeyHnrPVT, hnrPVTLayout, p, opts)
}

// Both PVT variants share the iTOW/date/time layout in the first 11 bytes.
func decodePVT(key Key, l pvtLayout, p []byte, opts Options) (Message, bool) {
	if len(p) < l.minLen {
		opts.logf("ubx %s short payload len=%d", key, len(p))
		return notImplemented(key, p), false
	}
	m := PVT{
		Source:             key,
		TOW:                u4(p, 0),
		FixType:            p[l.fixType],
		Flags:              p[l.flags],
		Longitude:          float64(i4(p, l.lon)) / 1e7,
		Latitude:           float64(i4(p, l.lat)) / 1e7,
		HeightMSL:          float64(i4(p, l.height)) / 1000,
		HorizontalAccuracy: float64(u4(p, l.hAcc)) / 1000,
		Heading:            float64(i4(p, l.heading)) / 1e5,
	}
	m.UTC = utcMillis(u2(p, 4), p[6], p[7], p[8], p[9], p[10], i4(p, l.nano), opts.logf)
	if l.numSV >= 0 {
		m.NumSV = int(p[l.numSV])
		m.HasNumSV = true
	}
	if opts.SpeedEnabled {
		m.Speed = float64(i4(p, l.speed)) / 1000
		m.HasSpeed = true
	}
	return m, true
}

func decodeNavOdo(p []byte, opts Options) (Message, bool) {
	if len(p) < navOdoMinLen {
		opts.logf("ubx %s short payload len=%d", KeyNavOdo, len(p))
		return notImplemented(KeyNavOdo, p), false
	}
	return Odo{
		TOW:           u4(p, 4),
		Distance:      u4(p, 8),
		TotalDistance: u4(p, 12),
	}, true
}

// NAV-SVINFO: numCh at 4, then 12-byte channel blocks from offset 8 with
// svid at +1, flags at +2 (bit0 = used in fix) and cno at +4.
func decodeNavSvInfo(p []byte, opts Options) (Message, bool) {
	if len(p) < navSvInfoMinLen {
		opts.logf("ubx %s short payload len=%d", KeyNavSvInfo, len(p))
		return notImplemented(KeyNavSvInfo, p), false
	}
	numCh := int(p[4])
	if len(p) < navSvInfoMinLen+numCh*svInfoStride {
		opts.logf("ubx %s truncated numCh=%d len=%d", KeyNavSvInfo, numCh, len(p))
		return notImplemented(KeyNavSvInfo, p), false
	}

	m := SvInfo{TOW: u4(p, 0), Satellites: make([]Satellite, 0, numCh)}
	for i := 0; i < numCh; i++ {
		base := navSvInfoMinLen + i*svInfoStride
		sv := Satellite{
			SVID: int(p[base+1]),
			Used: p[base+2]&0x01 != 0,
			CNO:  int(p[base+4]),
		}
		sv.Number, sv.Constellation, _ = SatelliteNumber(sv.SVID)
		m.Satellites = append(m.Satellites, sv)
	}
	return m, true
}

func decodeNavSlas(p []byte, opts Options) (Message, bool) {
	if len(p) < navSlasMinLen {
		opts.logf("ubx %s short payload len=%d", KeyNavSlas, len(p))
		return notImplemented(KeyNavSlas, p), false
	}
	return Slas{
		TOW:          u4(p, 0),
		SatelliteID:  p[17],
		ServiceFlags: p[18],
		Count:        p[19],
	}, true
}

func decodeEsfStatus(p []byte, opts Options) (Message, bool) {
	if len(p) < esfStatusMinLen {
		opts.logf("ubx %s short payload len=%d", KeyEsfStatus, len(p))
		return notImplemented(KeyEsfStatus, p), false
	}
	return EsfStatus{TOW: u4(p, 0), FusionMode: FusionMode(p[12])}, true
}

func notImplemented(key Key, p []byte) NotImplemented {
	n := NotImplemented{Source: key}
	if len(p) >= 4 {
		n.TOW = u4(p, 0)
		n.HasTOW = true
	}
	return n
}

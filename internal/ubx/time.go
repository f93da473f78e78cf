package ubx

import (
	"fmt"
	"time"
)

// utcMillis assembles the UBX date/time fields into epoch milliseconds.
// The fields are joined into a fixed-width string and parsed as UTC so that
// out-of-range values are rejected rather than normalized. On failure the
// reason is logged and 0 is returned.
func utcMillis(year uint16, month, day, hour, minute, sec byte, nano int32, logf func(string, ...any)) int64 {
	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d", year, month, day, hour, minute, sec)
	t, err := time.ParseInLocation("20060102150405", s, time.UTC)
	if err != nil {
		if logf != nil {
			logf("ubx time decode failed raw=%s: %v", s, err)
		}
		return 0
	}
	return t.UnixMilli() + int64(nano/1e6)
}

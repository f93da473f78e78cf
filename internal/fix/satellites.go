package fix

import (
	"sort"

	"gnss-bridge/internal/ubx"
)

// StaleAfter is the number of consecutive satellite lists a satellite may be
// missing from before it is reported stale. Entries are evicted after twice
// that.
const StaleAfter = 9

// SatelliteRecord is one satellite as last reported by NAV-SVINFO.
type SatelliteRecord struct {
	SVID          int    `json:"svid"`
	Number        int    `json:"number"`
	Constellation string `json:"constellation,omitempty"`
	SNR           int    `json:"snr"`
	Used          bool   `json:"used"`
	// Age counts the satellite lists received since this svid was last seen.
	Age int `json:"age"`
}

func (r SatelliteRecord) Stale() bool { return r.Age > StaleAfter }

// satelliteTracker ages satellites across successive lists.
type satelliteTracker struct {
	byID map[int]SatelliteRecord
}

func newSatelliteTracker() *satelliteTracker {
	return &satelliteTracker{byID: make(map[int]SatelliteRecord)}
}

// update ages every known satellite, refreshes the ones in sats and returns
// the surviving records ordered by svid.
func (t *satelliteTracker) update(sats []ubx.Satellite) []SatelliteRecord {
	for id, r := range t.byID {
		r.Age++
		if r.Age > 2*StaleAfter {
			delete(t.byID, id)
			continue
		}
		t.byID[id] = r
	}
	for _, s := range sats {
		t.byID[s.SVID] = SatelliteRecord{
			SVID:          s.SVID,
			Number:        s.Number,
			Constellation: string(s.Constellation),
			SNR:           s.CNO,
			Used:          s.Used,
		}
	}

	out := make([]SatelliteRecord, 0, len(t.byID))
	for _, r := range t.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SVID < out[j].SVID })
	return out
}

// UsedCount returns how many non-stale records are used in the fix.
func UsedCount(recs []SatelliteRecord) int {
	n := 0
	for _, r := range recs {
		if r.Used && !r.Stale() {
			n++
		}
	}
	return n
}

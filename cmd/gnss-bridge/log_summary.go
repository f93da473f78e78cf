package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gnss-bridge/internal/gps"
	"gnss-bridge/internal/nmea"
	"gnss-bridge/internal/replay"
	"gnss-bridge/internal/ubx"
)

type logSummary struct {
	Segments    int
	Units       map[string]int
	Invalid     int
	MaxDuration time.Duration
	TypeCounts  map[string]int
}

// summarizeUnitLog counts units per kind and per message type. Units that
// fail their checksum or framing are counted as invalid.
func summarizeUnitLog(records []replay.Record) logSummary {
	s := logSummary{Units: map[string]int{}, TypeCounts: map[string]int{}}
	origin := time.Duration(0)
	hasUnits := false

	for _, r := range records {
		if r.Data == nil {
			s.Segments++
			origin = r.At
			continue
		}
		hasUnits = true
		s.Units[r.Kind]++
		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}

		typ, ok := unitType(r.Kind, r.Data)
		if !ok {
			s.Invalid++
			continue
		}
		s.TypeCounts[typ]++
	}
	if s.Segments == 0 && hasUnits {
		s.Segments = 1
	}
	return s
}

func unitType(kind string, data []byte) (string, bool) {
	switch kind {
	case gps.KindNMEA:
		sen, err := nmea.Tokenize(string(data))
		if err != nil {
			return "", false
		}
		return "NMEA-" + sen.Type(), true
	case gps.KindUBX:
		fr, err := ubx.ParseFrame(data)
		if err != nil {
			return "", false
		}
		return fr.Key().String(), true
	default:
		return "", false
	}
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.Open(path)
	if err != nil {
		return err
	}
	s := summarizeUnitLog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "units: nmea=%d ubx=%d\n", s.Units[gps.KindNMEA], s.Units[gps.KindUBX])
	fmt.Fprintf(w, "invalid_units: %d\n", s.Invalid)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	keys := make([]string, 0, len(s.TypeCounts))
	for k := range s.TypeCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "type_counts:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, s.TypeCounts[k])
	}
	return nil
}

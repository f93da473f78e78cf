package gps

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"gnss-bridge/internal/sirf"
	"gnss-bridge/internal/ubx"
)

// initCommands encodes the configured receiver init commands in the order
// they are written: SiRF first, then UBX.
func initCommands(sirfInit, ubxInit []string) ([][]byte, error) {
	out := make([][]byte, 0, len(sirfInit)+len(ubxInit))
	for i, c := range sirfInit {
		b, err := sirf.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("gps.sirf_init[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	for i, c := range ubxInit {
		b, err := parseUBXCommand(c)
		if err != nil {
			return nil, fmt.Errorf("gps.ubx_init[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// parseUBXCommand encodes "CLS ID [HEXPAYLOAD...]", e.g. "06 01 0107" polls
// the NAV-PVT message rate.
func parseUBXCommand(s string) ([]byte, error) {
	f := strings.Fields(s)
	if len(f) < 2 {
		return nil, fmt.Errorf("want \"CLS ID [HEX]\", got %q", s)
	}
	class, err := strconv.ParseUint(f[0], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("bad class %q", f[0])
	}
	id, err := strconv.ParseUint(f[1], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("bad id %q", f[1])
	}
	payload, err := hex.DecodeString(strings.Join(f[2:], ""))
	if err != nil {
		return nil, fmt.Errorf("bad payload: %w", err)
	}
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("payload too large len=%d", len(payload))
	}
	return ubx.Encode(byte(class), byte(id), payload), nil
}

// Package sirf encodes SiRF binary commands for transmission to a receiver.
// Only the encoder is provided; SiRF output is never decoded.
package sirf

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	start = [2]byte{0xA0, 0xA2}
	end   = [2]byte{0xB0, 0xB3}
)

// MaxPayload is the largest payload the 15-bit length field can describe.
const MaxPayload = 0x7FFF

var ErrEmptyPayload = errors.New("sirf: empty payload")

// Checksum is the 15-bit sum of the payload bytes.
func Checksum(payload []byte) uint16 {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return uint16(sum & 0x7FFF)
}

// Encode wraps a hex payload as start marker, big-endian length, payload,
// big-endian checksum and end marker. Whitespace in payloadHex is ignored.
func Encode(payloadHex string) ([]byte, error) {
	clean := strings.Join(strings.Fields(payloadHex), "")
	payload, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("sirf: decode payload: %w", err)
	}
	return EncodeBytes(payload)
}

func EncodeBytes(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("sirf: payload too large len=%d max=%d", len(payload), MaxPayload)
	}
	buf := make([]byte, 0, len(payload)+8)
	buf = append(buf, start[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint16(buf, Checksum(payload))
	return append(buf, end[:]...), nil
}

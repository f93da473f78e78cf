package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Sync1 = 0xB5
	Sync2 = 0x62

	// HeaderLen covers sync(2) + class + id + length(2).
	HeaderLen   = 6
	ChecksumLen = 2
)

var (
	ErrShortFrame = errors.New("ubx: frame too short")
	ErrSync       = errors.New("ubx: missing sync bytes")
	ErrLength     = errors.New("ubx: length mismatch")
	ErrChecksum   = errors.New("ubx: checksum mismatch")
)

// Key identifies a message by class (high byte) and id (low byte).
type Key uint16

func MakeKey(class, id byte) Key { return Key(uint16(class)<<8 | uint16(id)) }

func (k Key) Class() byte { return byte(k >> 8) }
func (k Key) ID() byte    { return byte(k) }

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UBX-%02X-%02X", k.Class(), k.ID())
}

// Frame is one structurally valid UBX frame.
type Frame struct {
	Class    byte
	ID       byte
	Payload  []byte
	Checksum [2]byte
}

func (f Frame) Key() Key { return MakeKey(f.Class, f.ID) }

// ParseFrame validates exactly one frame: sync bytes, declared payload length
// against the actual size, and the trailing checksum.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < HeaderLen+ChecksumLen {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	if b[0] != Sync1 || b[1] != Sync2 {
		return Frame{}, fmt.Errorf("%w: % X", ErrSync, b[:2])
	}
	n := int(binary.LittleEndian.Uint16(b[4:6]))
	if got := len(b) - HeaderLen - ChecksumLen; got != n {
		return Frame{}, fmt.Errorf("%w: header says %d, frame carries %d", ErrLength, n, got)
	}
	a, c := FrameChecksum(b, n)
	if a != b[HeaderLen+n] || c != b[HeaderLen+n+1] {
		return Frame{}, fmt.Errorf("%w: calculated %02X%02X, frame says %02X%02X", ErrChecksum, a, c, b[HeaderLen+n], b[HeaderLen+n+1])
	}

	payload := make([]byte, n)
	copy(payload, b[HeaderLen:HeaderLen+n])
	return Frame{
		Class:    b[2],
		ID:       b[3],
		Payload:  payload,
		Checksum: [2]byte{a, c},
	}, nil
}

// Encode builds a complete frame: sync, class, id, little-endian length,
// payload and checksum.
func Encode(class, id byte, payload []byte) []byte {
	buf := make([]byte, 0, HeaderLen+len(payload)+ChecksumLen)
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	a, c := Checksum(buf[2:])
	return append(buf, a, c)
}

// uintLE reads n little-endian bytes at off as an unsigned integer.
// Callers check the payload length first.
func uintLE(p []byte, off, n int) uint64 {
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(p[off+i])
	}
	return v
}

func u2(p []byte, off int) uint16 { return uint16(uintLE(p, off, 2)) }
func u4(p []byte, off int) uint32 { return uint32(uintLE(p, off, 4)) }
func i4(p []byte, off int) int32  { return int32(u4(p, off)) }

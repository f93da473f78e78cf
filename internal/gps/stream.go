package gps

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"gnss-bridge/internal/ubx"
)

const (
	KindNMEA = "nmea"
	KindUBX  = "ubx"
)

const (
	// NMEA sentences are at most 82 chars by the standard; proprietary ones
	// run longer.
	maxLineLen = 4096
	maxUBXLen  = 8192
)

// Unit is one delimited NMEA sentence (including its terminator) or one
// complete UBX frame (sync bytes through checksum).
type Unit struct {
	Kind string
	Data []byte
}

// StreamReader splits a byte stream into units. It keeps no partial state
// across units; bytes that cannot start a unit are skipped and counted.
type StreamReader struct {
	r       *bufio.Reader
	skipped int64
}

func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: bufio.NewReaderSize(r, 16*1024)}
}

// Skipped returns the number of noise bytes discarded so far.
func (s *StreamReader) Skipped() int64 { return s.skipped }

// Next returns the next unit. It returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream ends inside a unit.
func (s *StreamReader) Next() (Unit, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return Unit{}, err
		}
		switch b {
		case '$':
			u, ok, err := s.readLine()
			if err != nil {
				return Unit{}, err
			}
			if ok {
				return u, nil
			}
		case ubx.Sync1:
			u, ok, err := s.readFrame()
			if err != nil {
				return Unit{}, err
			}
			if ok {
				return u, nil
			}
		default:
			s.skipped++
		}
	}
}

// readLine reads the rest of a '$' line. The line ends at '\n', or at a bare
// '\r'. A fresh '$' or a byte NMEA cannot carry means the terminator was
// lost: the partial line is skipped and the byte is left for Next so the
// following unit is not swallowed. Overlong lines are discarded.
func (s *StreamReader) readLine() (Unit, bool, error) {
	buf := []byte{'$'}
	n := 1
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return Unit{}, false, unexpected(err)
		}
		switch {
		case b == '$' || ((b < 0x20 || b > 0x7e) && b != '\r' && b != '\n'):
			_ = s.r.UnreadByte()
			s.skipped += int64(n)
			return Unit{}, false, nil
		}

		n++
		if n <= maxLineLen {
			buf = append(buf, b)
		}
		switch b {
		case '\n':
			return s.line(buf, n)
		case '\r':
			if next, err := s.r.Peek(1); err != nil || next[0] != '\n' {
				return s.line(buf, n)
			}
		}
	}
}

func (s *StreamReader) line(buf []byte, n int) (Unit, bool, error) {
	if n > maxLineLen {
		s.skipped += int64(n)
		return Unit{}, false, nil
	}
	return Unit{Kind: KindNMEA, Data: buf}, true, nil
}

// readFrame reads a UBX frame after its first sync byte. The declared length
// decides how many bytes are consumed; validation is left to the decoder.
func (s *StreamReader) readFrame() (Unit, bool, error) {
	next, err := s.r.Peek(1)
	if err != nil {
		return Unit{}, false, unexpected(err)
	}
	if next[0] != ubx.Sync2 {
		s.skipped++
		return Unit{}, false, nil
	}

	hdr := make([]byte, ubx.HeaderLen)
	hdr[0] = ubx.Sync1
	if _, err := io.ReadFull(s.r, hdr[1:]); err != nil {
		return Unit{}, false, unexpected(err)
	}
	n := int(binary.LittleEndian.Uint16(hdr[4:6]))
	if n > maxUBXLen {
		s.skipped += int64(len(hdr))
		return Unit{}, false, nil
	}

	frame := make([]byte, ubx.HeaderLen+n+ubx.ChecksumLen)
	copy(frame, hdr)
	if _, err := io.ReadFull(s.r, frame[ubx.HeaderLen:]); err != nil {
		return Unit{}, false, unexpected(err)
	}
	return Unit{Kind: KindUBX, Data: frame}, true, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

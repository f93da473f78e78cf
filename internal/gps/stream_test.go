package gps

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"gnss-bridge/internal/nmea"
	"gnss-bridge/internal/ubx"
)

func readAllUnits(t *testing.T, sr *StreamReader) ([]Unit, error) {
	t.Helper()
	var out []Unit
	for {
		u, err := sr.Next()
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
}

func TestStreamReader_SplitsMixedStream(t *testing.T) {
	gga := nmea.Format("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	rmc := nmea.Format("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	// Payload bytes that look like NMEA delimiters must not split the frame.
	frame := ubx.Encode(0x01, 0x09, []byte("$\n$\r\n\xB5\x62 odometer..."))

	var in bytes.Buffer
	in.WriteString("noise\r\n")
	in.WriteString(gga)
	in.Write(frame)
	in.Write([]byte{0x00, 0xB5, 0x00})
	in.WriteString(rmc)

	sr := NewStreamReader(&in)
	units, err := readAllUnits(t, sr)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	if len(units) != 3 {
		t.Fatalf("units=%d want 3", len(units))
	}
	if units[0].Kind != KindNMEA || string(units[0].Data) != gga {
		t.Fatalf("unit 0 = %q", units[0].Data)
	}
	if units[1].Kind != KindUBX || !bytes.Equal(units[1].Data, frame) {
		t.Fatalf("unit 1 = % X", units[1].Data)
	}
	if units[2].Kind != KindNMEA || string(units[2].Data) != rmc {
		t.Fatalf("unit 2 = %q", units[2].Data)
	}
	if _, err := ubx.ParseFrame(units[1].Data); err != nil {
		t.Fatalf("frame not intact: %v", err)
	}
	if got := sr.Skipped(); got != int64(len("noise\r\n"))+3 {
		t.Fatalf("skipped=%d", got)
	}
}

func TestStreamReader_ResyncsAfterLostTerminator(t *testing.T) {
	rmc := nmea.Format("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	gga := nmea.Format("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	frame := ubx.Encode(0x01, 0x09, make([]byte, 20))

	var in bytes.Buffer
	in.WriteString("$GPGGA,1235")
	in.Write(frame)
	in.WriteString("$GPVTG,054.7,T")
	in.WriteString(rmc)
	in.WriteString(strings.TrimSuffix(gga, "\n"))
	in.WriteString(rmc)

	sr := NewStreamReader(&in)
	units, err := readAllUnits(t, sr)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	want := []Unit{
		{Kind: KindUBX, Data: frame},
		{Kind: KindNMEA, Data: []byte(rmc)},
		{Kind: KindNMEA, Data: []byte(strings.TrimSuffix(gga, "\n"))},
		{Kind: KindNMEA, Data: []byte(rmc)},
	}
	if len(units) != len(want) {
		t.Fatalf("units=%d want %d", len(units), len(want))
	}
	for i := range want {
		if units[i].Kind != want[i].Kind || !bytes.Equal(units[i].Data, want[i].Data) {
			t.Fatalf("unit %d = %s %q", i, units[i].Kind, units[i].Data)
		}
	}
	if got, want := sr.Skipped(), int64(len("$GPGGA,1235")+len("$GPVTG,054.7,T")); got != want {
		t.Fatalf("skipped=%d want %d", got, want)
	}
}

func TestStreamReader_DropsOverlongLine(t *testing.T) {
	good := nmea.Format("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	in := "$" + strings.Repeat("A", maxLineLen+100) + "\r\n" + good
	sr := NewStreamReader(strings.NewReader(in))
	units, err := readAllUnits(t, sr)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	if len(units) != 1 || string(units[0].Data) != good {
		t.Fatalf("unexpected units: %d", len(units))
	}
	if sr.Skipped() < maxLineLen {
		t.Fatalf("skipped=%d", sr.Skipped())
	}
}

func TestStreamReader_DropsOversizeFrameHeader(t *testing.T) {
	frame := ubx.Encode(0x01, 0x42, make([]byte, 20))
	in := append([]byte{0xB5, 0x62, 0x01, 0x07, 0xFF, 0xFF}, frame...)
	units, err := readAllUnits(t, NewStreamReader(bytes.NewReader(in)))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	if len(units) != 1 || !bytes.Equal(units[0].Data, frame) {
		t.Fatalf("unexpected units: %+v", units)
	}
}

func TestStreamReader_Truncated(t *testing.T) {
	frame := ubx.Encode(0x01, 0x09, make([]byte, 20))
	for name, in := range map[string][]byte{
		"Frame":  frame[:10],
		"Header": frame[:3],
		"Line":   []byte("$GPGGA,123519,4807"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewStreamReader(bytes.NewReader(in)).Next()
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Fatalf("err=%v want ErrUnexpectedEOF", err)
			}
		})
	}

	if _, err := NewStreamReader(bytes.NewReader(nil)).Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
}

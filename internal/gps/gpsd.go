package gps

import (
	"context"
	"io"
	"net"
	"strings"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// Raw mode 2 relays receiver output byte for byte, NMEA and UBX alike. gpsd's
// own JSON replies (VERSION, DEVICES, WATCH) are skipped by the splitter as
// noise.
const gpsdWatchRaw = "?WATCH={\"enable\":true,\"raw\":2}\n"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch asks gpsd to relay raw receiver bytes.
func gpsdWatch(w io.Writer) error {
	_, err := io.WriteString(w, gpsdWatchRaw)
	return err
}

// backoff doubles from min up to max.
type backoff struct {
	min, max, cur time.Duration
}

func newBackoff(lo, hi time.Duration) *backoff {
	return &backoff{min: lo, max: hi, cur: lo}
}

func (b *backoff) next() time.Duration {
	d := b.cur
	if b.cur < b.max {
		b.cur = min(b.cur*2, b.max)
	}
	return d
}

func (b *backoff) reset() { b.cur = b.min }

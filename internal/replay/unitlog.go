package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<kind>,<hex>
//   where t_ns is nanoseconds since START, kind names the unit ("nmea" or
//   "ubx") and hex is the unit exactly as it was read from the receiver.

type Record struct {
	At   time.Duration
	Kind string
	// Data is nil for START markers.
	Data []byte
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Open reads a whole log file.
func Open(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func parseLine(line string) (Record, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("want <t_ns>,<kind>,<hex>: %q", line)
	}
	tsStr := strings.TrimSpace(parts[0])
	kind := strings.ToLower(strings.TrimSpace(parts[1]))
	hexStr := strings.ReplaceAll(strings.TrimSpace(parts[2]), " ", "")
	if tsStr == "" || kind == "" || hexStr == "" {
		return Record{}, fmt.Errorf("empty field: %q", line)
	}

	tsNs, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", tsStr, err)
	}
	if tsNs < 0 {
		return Record{}, fmt.Errorf("negative timestamp %d", tsNs)
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return Record{}, fmt.Errorf("invalid hex payload: %w", err)
	}
	return Record{At: time.Duration(tsNs), Kind: kind, Data: b}, nil
}

// Writer appends units to a log. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteUnit(now time.Time, kind string, data []byte) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	if len(data) == 0 {
		return errors.New("unit is empty")
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s,%s\n", d.Nanoseconds(), kind, hex.EncodeToString(data))
	return err
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play replays records with their relative timing until the records run out
// (or forever with loop) or ctx is done.
//
// START markers reset the origin.
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(ctx context.Context, records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(Record) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin, lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Data == nil {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := max(r.At-origin, 0)
			if haveLast {
				wait := time.Duration(float64(max(at-lastAt, 0)) / speedMultiplier)
				if wait > 0 {
					if err := sleeper.Sleep(ctx, wait); err != nil {
						return err
					}
				}
			}

			if err := cb(r); err != nil {
				return err
			}
			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}

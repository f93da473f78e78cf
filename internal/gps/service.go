package gps

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/metrics"
	"gnss-bridge/internal/replay"
	"gnss-bridge/internal/sim"
)

const (
	SourceSerial = "serial"
	SourceGPSD   = "gpsd"
	SourceReplay = "replay"
	SourceSim    = "sim"
)

// Config controls the receiver reader.
//
// u-blox receivers typically appear as /dev/ttyACM* and SiRF ones behind a
// USB-serial bridge as /dev/ttyUSB*. Device may be empty to auto-detect.
// Parser options in Fix are read once when the Service is built.
type Config struct {
	Enable bool

	// Source selects the transport: "serial" (default), "gpsd", "replay" or
	// "sim".
	Source string

	Device string
	Baud   int

	// GPSDAddr is host:port for gpsd when Source=="gpsd".
	GPSDAddr string

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	// RecordPath, when set, receives every unit read as a replay log.
	RecordPath string

	// Init commands written to the serial port after open. SirfInit entries
	// are hex payloads; UBXInit entries are "CLS ID HEXPAYLOAD".
	SirfInit []string
	UBXInit  []string

	// Sim drives the "sim" source.
	Sim sim.Receiver

	Fix fix.Options
}

type Snapshot struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`

	Source     string `json:"source,omitempty"`
	Device     string `json:"device,omitempty"`
	Baud       int    `json:"baud,omitempty"`
	GPSDAddr   string `json:"gpsd_addr,omitempty"`
	ReplayPath string `json:"replay_path,omitempty"`

	NMEAUnits  uint64 `json:"nmea_units"`
	UBXUnits   uint64 `json:"ubx_units"`
	Dropped    uint64 `json:"dropped"`
	NoiseBytes int64  `json:"noise_bytes"`

	NMEAStatus string `json:"nmea_status"`
	UBXStatus  string `json:"ubx_status"`

	LastUnitUTC string `json:"last_unit_utc,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

type Service struct {
	cfg    Config
	source string

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer

	// feedMu serializes units into the assemblers, which are single-reader.
	feedMu sync.Mutex
	nmea   *fix.NMEAAssembler
	ubx    *fix.UBXAssembler
	rec    *replay.Writer

	noise atomic.Int64
}

// New builds a service that reports to l. Fixes and transitions are counted
// in the metrics package on the way through.
func New(cfg Config, l fix.Listener) *Service {
	src := strings.ToLower(strings.TrimSpace(cfg.Source))
	if src == "" {
		src = SourceSerial
	}
	s := &Service{
		cfg:    cfg,
		source: src,
		nmea:   fix.NewNMEAAssembler(metrics.Listener("nmea", fix.ForPath(l, "nmea")), cfg.Fix),
		ubx:    fix.NewUBXAssembler(metrics.Listener("ubx", fix.ForPath(l, "ubx")), cfg.Fix),
	}
	s.last.Store(Snapshot{
		Enabled:    cfg.Enable,
		Source:     src,
		Device:     cfg.Device,
		Baud:       cfg.Baud,
		GPSDAddr:   strings.TrimSpace(cfg.GPSDAddr),
		ReplayPath: cfg.ReplayPath,
		NMEAStatus: fix.OutOfService.String(),
		UBXStatus:  fix.OutOfService.String(),
	})
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	if path := strings.TrimSpace(s.cfg.RecordPath); path != "" {
		w, err := replay.CreateWriter(path)
		if err != nil {
			s.setErrorLocked(fmt.Sprintf("gps record open failed path=%s: %v", path, err))
			return err
		}
		s.feedMu.Lock()
		s.rec = w
		s.feedMu.Unlock()
		log.Printf("gps recording path=%s", path)
	}

	var err error
	switch s.source {
	case SourceGPSD:
		err = s.startGPSDLocked(ctx)
	case SourceReplay:
		err = s.startReplayLocked(ctx)
	case SourceSim:
		err = s.startSimLocked(ctx)
	case SourceSerial:
		err = s.startSerialLocked(ctx)
	default:
		err = fmt.Errorf("unknown gps source %q", s.source)
	}
	if err != nil {
		s.closeRecorder()
	}
	return err
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	cmds, err := initCommands(s.cfg.SirfInit, s.cfg.UBXInit)
	if err != nil {
		s.setErrorLocked(err.Error())
		return err
	}

	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			s.setErrorLocked("gps auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
			return fmt.Errorf("gps auto-detect failed")
		}
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	port, err := openSerial(device, baud)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", device, baud, err))
		return err
	}
	for _, c := range cmds {
		if _, err := port.Write(c); err != nil {
			_ = port.Close()
			s.setErrorLocked(fmt.Sprintf("gps init write failed device=%s: %v", device, err))
			return err
		}
	}
	s.closer = port

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = port.Close() }()

		log.Printf("gps enabled source=serial device=%s baud=%d init_cmds=%d", device, baud, len(cmds))
		err := s.runStream(childCtx, port)
		s.streamEnded(childCtx, "gps read stopped", err)
	}()

	s.updateLocked(func(sn *Snapshot) {
		sn.Connected = true
		sn.Device = device
		sn.Baud = baud
	})
	return nil
}

func (s *Service) startGPSDLocked(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.GPSDAddr)
	if addr == "" {
		addr = gpsdDefaultAddr
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("gps enabled source=gpsd addr=%s", addr)
		bo := newBackoff(250*time.Millisecond, 10*time.Second)

		for childCtx.Err() == nil {
			conn, err := dialGPSD(childCtx, addr)
			if err != nil {
				s.setError(fmt.Sprintf("gpsd dial failed addr=%s: %v", addr, err))
				select {
				case <-childCtx.Done():
					return
				case <-time.After(bo.next()):
				}
				continue
			}
			bo.reset()

			s.mu.Lock()
			// Swap the closer so Close() can interrupt an active connection.
			s.closer = conn
			s.mu.Unlock()

			if err := gpsdWatch(conn); err != nil {
				s.setError(fmt.Sprintf("gpsd watch failed: %v", err))
				_ = conn.Close()
				continue
			}
			s.update(func(sn *Snapshot) { sn.Connected = true })
			err = s.runStream(childCtx, conn)
			_ = conn.Close()
			s.streamEnded(childCtx, "gpsd read stopped", err)
		}
	}()

	s.updateLocked(func(sn *Snapshot) {
		sn.GPSDAddr = addr
		sn.Device = "gpsd"
	})
	return nil
}

func (s *Service) startReplayLocked(ctx context.Context) error {
	path := strings.TrimSpace(s.cfg.ReplayPath)
	recs, err := replay.Open(path)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps replay open failed path=%s: %v", path, err))
		return err
	}
	speed := s.cfg.ReplaySpeed
	if speed <= 0 {
		speed = 1
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("gps enabled source=replay path=%s records=%d speed=%g loop=%t", path, len(recs), speed, s.cfg.ReplayLoop)
		err := replay.Play(childCtx, recs, speed, s.cfg.ReplayLoop, nil, func(r replay.Record) error {
			s.Feed(Unit{Kind: r.Kind, Data: r.Data})
			return nil
		})
		if err == nil {
			log.Printf("gps replay finished path=%s", path)
		}
		s.streamEnded(childCtx, "gps replay stopped", err)
	}()

	s.updateLocked(func(sn *Snapshot) { sn.Connected = true })
	return nil
}

func (s *Service) startSimLocked(ctx context.Context) error {
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	rx := s.cfg.Sim
	stream := rx.Stream(childCtx)
	s.closer = stream

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("gps enabled source=sim center=%.5f,%.5f radius_m=%.0f", rx.CenterLatDeg, rx.CenterLonDeg, rx.RadiusM)
		err := s.runStream(childCtx, stream)
		_ = stream.Close()
		s.streamEnded(childCtx, "gps sim stopped", err)
	}()

	s.updateLocked(func(sn *Snapshot) {
		sn.Connected = true
		sn.Device = "sim"
	})
	return nil
}

// runStream splits r into units until it fails or ctx is done.
func (s *Service) runStream(ctx context.Context, r io.Reader) error {
	sr := NewStreamReader(r)
	var seen int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u, err := sr.Next()
		if n := sr.Skipped(); n != seen {
			s.noise.Add(n - seen)
			seen = n
		}
		if err != nil {
			return err
		}
		s.Feed(u)
	}
}

// streamEnded records why a transport stopped unless the service is closing.
func (s *Service) streamEnded(ctx context.Context, what string, err error) {
	s.update(func(sn *Snapshot) { sn.Connected = false })
	if ctx.Err() != nil || err == nil {
		return
	}
	s.setError(fmt.Sprintf("%s: %v", what, err))
}

// Feed routes one unit to its assembler. It may be called directly by
// callers that own their own transport.
//
// Lock order is mu then feedMu, so feedMu is released before the snapshot
// update takes mu.
func (s *Service) Feed(u Unit) fix.Result {
	s.feedMu.Lock()

	now := time.Now()
	if s.cfg.Fix.Now != nil {
		now = s.cfg.Fix.Now()
	}
	var recErr error
	if s.rec != nil {
		recErr = s.rec.WriteUnit(now, u.Kind, u.Data)
	}

	var res fix.Result
	switch u.Kind {
	case KindNMEA:
		res = s.nmea.HandleSentence(string(u.Data))
	case KindUBX:
		res = s.ubx.HandleFrame(u.Data)
	default:
		res = fix.Result{Drop: "kind"}
	}
	metrics.ObserveResult(u.Kind, res)

	nmeaStatus := s.nmea.Status().String()
	ubxStatus := s.ubx.Status().String()
	s.feedMu.Unlock()

	s.update(func(sn *Snapshot) {
		switch u.Kind {
		case KindNMEA:
			sn.NMEAUnits++
		case KindUBX:
			sn.UBXUnits++
		}
		if res.Drop != "" {
			sn.Dropped++
		}
		sn.NoiseBytes = s.noise.Load()
		sn.NMEAStatus = nmeaStatus
		sn.UBXStatus = ubxStatus
		sn.LastUnitUTC = now.UTC().Format(time.RFC3339Nano)
		if recErr != nil {
			sn.LastError = fmt.Sprintf("gps record write failed: %v", recErr)
		}
	})
	return res
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
	s.closeRecorder()
}

func (s *Service) closeRecorder() {
	s.feedMu.Lock()
	rec := s.rec
	s.rec = nil
	s.feedMu.Unlock()
	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Printf("gps record close failed: %v", err)
		}
	}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(fn)
}

func (s *Service) updateLocked(fn func(*Snapshot)) {
	cur := s.Snapshot()
	fn(&cur)
	s.last.Store(cur)
}

func (s *Service) setError(msg string) {
	s.update(func(sn *Snapshot) { sn.LastError = msg })
}

func (s *Service) setErrorLocked(msg string) {
	s.updateLocked(func(sn *Snapshot) { sn.LastError = msg })
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

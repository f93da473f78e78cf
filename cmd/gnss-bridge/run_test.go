package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gnss-bridge/internal/config"
	"gnss-bridge/internal/gps"
	"gnss-bridge/internal/nmea"
	"gnss-bridge/internal/replay"
	"gnss-bridge/internal/web"
)

func TestGPSConfig_Mapping(t *testing.T) {
	c := config.GPSConfig{
		Enable:          true,
		Source:          "serial",
		Device:          "AUTO",
		Baud:            38400,
		SpeedEnable:     true,
		HNREnable:       true,
		PrecisionFactor: 7,
		UBXInit:         []string{"06 01 F00500"},
		Record:          config.RecordConfig{Enable: false, Path: "/tmp/ignored.log"},
	}
	got := gpsConfig(c)
	if got.Device != "" || got.Baud != 38400 || got.RecordPath != "" {
		t.Fatalf("gps config=%+v", got)
	}
	if !got.Fix.SpeedEnabled || !got.Fix.HNREnabled || got.Fix.PrecisionFactor != 7 {
		t.Fatalf("fix options=%+v", got.Fix)
	}

	c.Device = "/dev/ttyACM1"
	c.Record.Enable = true
	got = gpsConfig(c)
	if got.Device != "/dev/ttyACM1" || got.RecordPath != "/tmp/ignored.log" || len(got.UBXInit) != 1 {
		t.Fatalf("gps config=%+v", got)
	}
}

func TestSetupLogging_WritesAllTargets(t *testing.T) {
	oldOut, oldFlags := log.Writer(), log.Flags()
	t.Cleanup(func() {
		log.SetOutput(oldOut)
		log.SetFlags(oldFlags)
	})

	path := filepath.Join(t.TempDir(), "logs", "gnss-bridge.log")
	var stdout bytes.Buffer
	buf := web.NewLogBuffer(10)
	closeLogs, err := setupLogging(config.LogsConfig{Path: path, MaxSizeMB: 1}, &stdout, buf, nil)
	if err != nil {
		t.Fatalf("setupLogging() error: %v", err)
	}
	log.Printf("gps enabled device=%s", "/dev/ttyACM0")
	closeLogs()

	if !strings.Contains(stdout.String(), "gps enabled device=/dev/ttyACM0") {
		t.Fatalf("stdout=%q", stdout.String())
	}
	if lines, _ := buf.Snapshot(0); len(lines) != 1 {
		t.Fatalf("buffer lines=%q", lines)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(b), "gps enabled") {
		t.Fatalf("log file=%q", b)
	}
}

func TestBuildOutputs_UDPOnly(t *testing.T) {
	out, err := buildOutputs(context.Background(), config.OutputConfig{
		UDP: config.UDPConfig{Enable: true, Dest: "127.0.0.1:10110"},
	}, web.NewStatus())
	if err != nil {
		t.Fatalf("buildOutputs() error: %v", err)
	}
	defer out.Close()
	// log, status and NMEA out
	if len(out.listeners) != 3 || len(out.closers) != 1 {
		t.Fatalf("listeners=%d closers=%d", len(out.listeners), len(out.closers))
	}
}

func TestBuildOutputs_BadUDPDest(t *testing.T) {
	_, err := buildOutputs(context.Background(), config.OutputConfig{
		UDP: config.UDPConfig{Enable: true, Dest: "no-port"},
	}, web.NewStatus())
	if err == nil || !strings.Contains(err.Error(), "udp broadcaster init failed") {
		t.Fatalf("err=%v", err)
	}
}

func TestRun_ReplayToNMEAOut(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error: %v", err)
	}
	defer pc.Close()

	in := filepath.Join(t.TempDir(), "in.log")
	w, err := replay.CreateWriter(in)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	now := time.Now()
	_ = w.WriteUnit(now, gps.KindNMEA, []byte(testGGA))
	_ = w.WriteUnit(now, gps.KindNMEA, []byte(testRMC))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	cfg := config.Config{
		GPS: config.GPSConfig{
			Enable: true,
			Source: "replay",
			Replay: config.ReplayConfig{Path: in},
		},
		Output: config.OutputConfig{
			UDP: config.UDPConfig{Enable: true, Dest: pc.LocalAddr().String()},
		},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, nil) }()

	_ = pc.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error: %v", err)
	}
	s, err := nmea.Tokenize(string(buf[:n]))
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", buf[:n], err)
	}
	if s.ID() != "GNRMC" || !strings.HasPrefix(s.Body, "GNRMC,123519.00,A,4807.03800,N,01131.00000,E,") {
		t.Fatalf("sentence=%q", s.Body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run() err=%v want canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run() did not stop")
	}
}

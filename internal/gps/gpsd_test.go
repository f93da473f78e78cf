package gps

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"gnss-bridge/internal/nmea"
)

func TestGPSDWatch_RequestsRawMode(t *testing.T) {
	var buf bytes.Buffer
	if err := gpsdWatch(&buf); err != nil {
		t.Fatalf("gpsdWatch() error: %v", err)
	}
	if buf.String() != `?WATCH={"enable":true,"raw":2}`+"\n" {
		t.Fatalf("unexpected watch command %q", buf.String())
	}
}

func TestBackoff(t *testing.T) {
	b := newBackoff(250*time.Millisecond, 1*time.Second)
	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Fatalf("next()[%d]=%s want %s", i, got, w)
		}
	}
	b.reset()
	if got := b.next(); got != 250*time.Millisecond {
		t.Fatalf("after reset next()=%s", got)
	}
}

func TestService_GPSDRawStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer ln.Close()

	watch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		watch <- line
		_, _ = conn.Write([]byte(`{"class":"VERSION","release":"3.25"}` + "\n"))
		_, _ = conn.Write([]byte(nmea.Format("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")))
		_, _ = conn.Write([]byte(nmea.Format("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")))
		_, _ = conn.Write(pvtFrame(5000, 3))
		// Hold the connection open until the service closes it.
		_, _ = conn.Read(make([]byte, 1))
	}()

	l := newChanListener()
	svc := New(Config{Enable: true, Source: SourceGPSD, GPSDAddr: ln.Addr().String(), Fix: quietOptions()}, l)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer svc.Close()

	select {
	case got := <-watch:
		if got != gpsdWatchRaw {
			t.Fatalf("watch=%q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("gpsd never received WATCH")
	}

	l.waitFixes(t, 2)
	snap := waitSnapshot(t, svc, func(s Snapshot) bool { return s.UBXUnits == 1 })
	if snap.NMEAUnits != 2 || snap.NoiseBytes == 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.GPSDAddr != ln.Addr().String() || !snap.Connected {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

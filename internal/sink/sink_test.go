package sink

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	gonmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/nmea"
)

func ptr[T any](v T) *T { return &v }

func sampleSnapshot() fix.Snapshot {
	return fix.Snapshot{
		Fix: fix.Fix{
			Latitude:  ptr(48.1173),
			Longitude: ptr(-11.516667),
			Altitude:  ptr(545.4),
			Accuracy:  ptr(4.5),
			Speed:     ptr(11.52),
			Bearing:   ptr(84.4),
			Extras: fix.Extras{
				Satellites: ptr(8),
				FixStatus:  ptr(2),
			},
		},
		Time:       time.Date(1994, time.March, 23, 12, 35, 19, 0, time.UTC).UnixMilli(),
		ReceivedAt: time.Date(2024, time.May, 17, 8, 0, 0, 0, time.UTC),
	}
}

type recordingListener struct{ fixes, statuses, lists int }

func (r *recordingListener) OnFix(fix.Snapshot)                           { r.fixes++ }
func (r *recordingListener) OnStatusChange(fix.Status, fix.Extras, int64) { r.statuses++ }
func (r *recordingListener) OnSatelliteList([]fix.SatelliteRecord)        { r.lists++ }

func TestMulti_FansOutSkippingNil(t *testing.T) {
	a, b := &recordingListener{}, &recordingListener{}
	m := Multi{a, nil, b}
	m.OnFix(fix.Snapshot{})
	m.OnStatusChange(fix.Available, fix.Extras{}, 0)
	m.OnSatelliteList(nil)
	for _, r := range []*recordingListener{a, b} {
		if r.fixes != 1 || r.statuses != 1 || r.lists != 1 {
			t.Fatalf("unexpected counts: %+v", r)
		}
	}
}

func TestStatusMessage_UsesExternalKeys(t *testing.T) {
	b, err := json.Marshal(NewStatusMessage(fix.TemporarilyUnavailable, fix.Extras{Satellites: ptr(3), SLASStatus: ptr(0)}, 42))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"status":"TEMPORARILY_UNAVAILABLE","extras":{"satellites":3,"slas_status":0},"update_time_ms":42}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}
}

func TestLog_StatusChange(t *testing.T) {
	var lines []string
	l := Log{Logf: func(format string, args ...any) {
		lines = append(lines, format)
	}}
	l.OnFix(fix.Snapshot{})
	l.OnStatusChange(fix.Available, fix.Extras{}, 1)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "gnss status=") {
		t.Fatalf("lines=%q", lines)
	}
}

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.msgs = append(p.msgs, published{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: p.err}
}

func TestMQTT_PublishesTopics(t *testing.T) {
	p := &fakePublisher{}
	m := newMQTT(p, "gnss/", 1)

	m.OnFix(sampleSnapshot())
	m.OnStatusChange(fix.Available, fix.Extras{FixStatus: ptr(3)}, 7)
	m.OnSatelliteList([]fix.SatelliteRecord{{SVID: 5, Number: 5, Constellation: "GPS", SNR: 40, Used: true}})

	if len(p.msgs) != 3 {
		t.Fatalf("published=%d want 3", len(p.msgs))
	}
	wantTopics := []string{"gnss/fix", "gnss/status", "gnss/satellites"}
	wantRetained := []bool{true, true, false}
	for i, msg := range p.msgs {
		if msg.topic != wantTopics[i] || msg.retained != wantRetained[i] || msg.qos != 1 {
			t.Fatalf("msg[%d]=%s retained=%v qos=%d", i, msg.topic, msg.retained, msg.qos)
		}
	}

	var snap fix.Snapshot
	if err := json.Unmarshal(p.msgs[0].payload, &snap); err != nil {
		t.Fatalf("fix payload: %v", err)
	}
	if snap.Fix.Extras.Satellites == nil || *snap.Fix.Extras.Satellites != 8 || *snap.Fix.Latitude != 48.1173 {
		t.Fatalf("unexpected fix payload: %s", p.msgs[0].payload)
	}
	if !strings.Contains(string(p.msgs[1].payload), `"fix_status":3`) {
		t.Fatalf("unexpected status payload: %s", p.msgs[1].payload)
	}
}

func TestMQTT_PublishErrorIsNotFatal(t *testing.T) {
	p := &fakePublisher{err: errors.New("not connected")}
	m := newMQTT(p, "gnss", 0)
	m.OnFix(sampleSnapshot())
	m.OnFix(sampleSnapshot())
	if len(p.msgs) != 2 {
		t.Fatalf("published=%d want 2", len(p.msgs))
	}
	m.Close()
}

type setCall struct {
	key   string
	value []byte
	ttl   time.Duration
}

type fakeRedis struct {
	calls []setCall
	err   error
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if _, ok := ctx.Deadline(); !ok {
		panic("redis call without deadline")
	}
	f.calls = append(f.calls, setCall{key, value.([]byte), ttl})
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedis_StoresLastKnown(t *testing.T) {
	f := &fakeRedis{}
	r := newRedis(f, "gnss", 30*time.Second)

	r.OnFix(sampleSnapshot())
	r.OnStatusChange(fix.Available, fix.Extras{}, 99)
	r.OnSatelliteList(nil)

	if len(f.calls) != 2 {
		t.Fatalf("calls=%d want 2", len(f.calls))
	}
	if f.calls[0].key != "gnss:fix" || f.calls[1].key != "gnss:status" || f.calls[0].ttl != 30*time.Second {
		t.Fatalf("unexpected calls: %+v", f.calls)
	}
	if !strings.Contains(string(f.calls[1].value), `"status":"AVAILABLE"`) {
		t.Fatalf("status payload: %s", f.calls[1].value)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestRedis_SetErrorIsNotFatal(t *testing.T) {
	f := &fakeRedis{err: errors.New("READONLY")}
	r := newRedis(f, "gnss", 0)
	r.OnFix(sampleSnapshot())
	if len(f.calls) != 1 {
		t.Fatalf("calls=%d", len(f.calls))
	}
}

func TestEncodeFix_RoundTrips(t *testing.T) {
	sentences, ok := EncodeFix(sampleSnapshot())
	if !ok || len(sentences) != 2 {
		t.Fatalf("EncodeFix() = %v, %v", sentences, ok)
	}
	if !strings.HasPrefix(sentences[0], "$GNRMC,123519.00,A,4807.03800,N,01131.00002,W,") {
		t.Fatalf("rmc=%q", sentences[0])
	}

	s, err := nmea.Tokenize(sentences[0])
	if err != nil {
		t.Fatalf("Tokenize(rmc) error: %v", err)
	}
	rmc := nmea.Decode(s).(nmea.RMC)
	if math.Abs(rmc.Latitude-48.1173) > 1e-6 || math.Abs(rmc.Longitude+11.516667) > 1e-6 {
		t.Fatalf("position=%f,%f", rmc.Latitude, rmc.Longitude)
	}
	if math.Abs(rmc.Speed-11.52) > 0.05 || rmc.Bearing != 84.4 || rmc.Date != "230394" {
		t.Fatalf("unexpected rmc: %+v", rmc)
	}

	s, err = nmea.Tokenize(sentences[1])
	if err != nil {
		t.Fatalf("Tokenize(gga) error: %v", err)
	}
	gga := nmea.Decode(s).(nmea.GGA)
	if gga.Quality != 2 || gga.Satellites != 8 || gga.HDOP != 0.9 || gga.Altitude != 545.4 {
		t.Fatalf("unexpected gga: %+v", gga)
	}

	// An independent parser accepts both sentences.
	for _, line := range sentences {
		if _, err := gonmea.Parse(strings.TrimSpace(line)); err != nil {
			t.Fatalf("go-nmea rejected %q: %v", line, err)
		}
	}
}

func TestEncodeFix_Edges(t *testing.T) {
	if _, ok := EncodeFix(fix.Snapshot{}); ok {
		t.Fatalf("fix without position encoded")
	}

	got, hemi := formatCoordinate(12.9999999999, 2, "N", "S")
	if got != "1300.00000" || hemi != "N" {
		t.Fatalf("carry: %s %s", got, hemi)
	}
	got, hemi = formatCoordinate(-0.5, 3, "E", "W")
	if got != "00030.00000" || hemi != "W" {
		t.Fatalf("small west: %s %s", got, hemi)
	}

	snap := fix.Snapshot{
		Fix:        fix.Fix{Latitude: ptr(1.0), Longitude: ptr(2.0)},
		ReceivedAt: time.Date(2024, time.May, 17, 8, 1, 2, 340_000_000, time.UTC),
	}
	sentences, _ := EncodeFix(snap)
	if !strings.HasPrefix(sentences[0], "$GNRMC,080102.34,A,") || !strings.Contains(sentences[0], ",,,170524,,,A*") {
		t.Fatalf("rmc=%q", sentences[0])
	}
	if !strings.Contains(sentences[1], ",1,,,,M,,M,,*") {
		t.Fatalf("gga=%q", sentences[1])
	}
}

type fakeSender struct{ got [][]string }

func (f *fakeSender) SendSentences(s ...string) error {
	f.got = append(f.got, s)
	return nil
}

func TestNMEAOut_SendsOnlyPositionedFixes(t *testing.T) {
	f := &fakeSender{}
	n := NewNMEAOut(f)
	n.OnFix(fix.Snapshot{})
	n.OnFix(sampleSnapshot())
	n.OnStatusChange(fix.Available, fix.Extras{}, 0)
	if len(f.got) != 1 || len(f.got[0]) != 2 {
		t.Fatalf("sent=%v", f.got)
	}
}

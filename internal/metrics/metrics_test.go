package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"gnss-bridge/internal/fix"
)

type countingListener struct{ fixes, statuses, lists int }

func (c *countingListener) OnFix(fix.Snapshot)                           { c.fixes++ }
func (c *countingListener) OnStatusChange(fix.Status, fix.Extras, int64) { c.statuses++ }
func (c *countingListener) OnSatelliteList([]fix.SatelliteRecord)        { c.lists++ }

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	b, _ := io.ReadAll(rr.Body)
	return string(b)
}

func TestListener_CountsAndForwards(t *testing.T) {
	next := &countingListener{}
	l := Listener("ubx", next)
	l.OnFix(fix.Snapshot{})
	l.OnStatusChange(fix.Available, fix.Extras{}, 0)
	l.OnSatelliteList([]fix.SatelliteRecord{{SVID: 1, Used: true}, {SVID: 2, Used: true, Age: 10}, {SVID: 3}})

	if next.fixes != 1 || next.statuses != 1 || next.lists != 1 {
		t.Fatalf("not forwarded: %+v", next)
	}

	body := scrape(t)
	for _, want := range []string{
		`gnss_fixes_total{path="ubx"}`,
		`gnss_status_transitions_total{status="AVAILABLE"}`,
		`gnss_provider_status{path="ubx"} 2`,
		`gnss_satellites_used 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestListener_NilNext(t *testing.T) {
	l := Listener("nmea", nil)
	l.OnFix(fix.Snapshot{})
	l.OnStatusChange(fix.TemporarilyUnavailable, fix.Extras{}, 0)
	l.OnSatelliteList(nil)
}

func TestObserveResult(t *testing.T) {
	ObserveResult("nmea", fix.Result{Type: "GGA", Parsed: true})
	ObserveResult("ubx", fix.Result{Drop: fix.DropChecksum})

	body := scrape(t)
	for _, want := range []string{
		`gnss_units_total{kind="nmea"}`,
		`gnss_units_total{kind="ubx"}`,
		`gnss_messages_total{type="GGA"}`,
		`gnss_dropped_total{reason="checksum"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

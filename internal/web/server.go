package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gnss-bridge/internal/metrics"
)

const serviceName = "gnss-bridge"

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // clients are on the local network
	},
}

func Handler(status *Status, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if snap.GPS.Enabled && !snap.GPS.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "gps disconnected: %s\n", snap.GPS.LastError)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveEvents(w, r, status.Events())
	})

	mux.Handle("/metrics", metrics.Handler())

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body>", serviceName)
		_, _ = fmt.Fprintf(w, "<h1>%s</h1>", serviceName)
		_, _ = fmt.Fprintf(w, "<p>JSON: <a href=\"/api/status\">/api/status</a>, live events: <code>/ws</code>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>source=%s\nconnected=%t\nprovider_status=%s\nfixes_total=%d\nsatellites_used=%d</pre>",
			html.EscapeString(snap.GPS.Source), snap.GPS.Connected, snap.ProviderStatus.Status,
			snap.FixesTotal, snap.SatellitesUsed,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

// serveEvents streams broadcaster events until the client goes away. Incoming
// messages are read and discarded so close frames are noticed.
func serveEvents(w http.ResponseWriter, r *http.Request, events *Broadcaster) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id, ch := events.Subscribe(32)
	defer events.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

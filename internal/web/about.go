package web

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

type AboutResponse struct {
	Service    string            `json:"service"`
	NowUTC     string            `json:"now_utc"`
	GoVersion  string            `json:"go_version"`
	ModulePath string            `json:"module_path,omitempty"`
	Version    string            `json:"version,omitempty"`
	Commit     string            `json:"commit,omitempty"`
	Dirty      bool              `json:"dirty,omitempty"`
	BuildTime  string            `json:"build_time,omitempty"`
	Deps       map[string]string `json:"deps,omitempty"`
}

// reportedDeps are the modules whose versions matter when debugging a
// receiver or broker problem in the field.
var reportedDeps = []string{
	"github.com/eclipse/paho.mqtt.golang",
	"github.com/redis/go-redis/v9",
	"github.com/gorilla/websocket",
	"go.bug.st/serial",
}

func about(now time.Time, bi *debug.BuildInfo) AboutResponse {
	resp := AboutResponse{
		Service:   serviceName,
		NowUTC:    now.UTC().Format(time.RFC3339Nano),
		GoVersion: runtime.Version(),
	}
	if bi == nil {
		return resp
	}
	resp.ModulePath = bi.Main.Path
	resp.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			resp.Commit = s.Value
		case "vcs.modified":
			resp.Dirty = s.Value == "true"
		case "vcs.time":
			resp.BuildTime = s.Value
		}
	}
	for _, d := range bi.Deps {
		for _, want := range reportedDeps {
			if strings.EqualFold(d.Path, want) {
				if resp.Deps == nil {
					resp.Deps = make(map[string]string)
				}
				resp.Deps[d.Path] = d.Version
			}
		}
	}
	return resp
}

func AboutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		bi, _ := debug.ReadBuildInfo()
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, about(time.Now(), bi))
	})
}

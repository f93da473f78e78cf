package web

import (
	"sort"
	"sync"
	"time"

	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/sink"
)

const (
	EventFix        = "fix"
	EventStatus     = "status"
	EventSatellites = "satellites"
)

// Event is one message on the /ws stream. Status events carry the assembler
// Path ("nmea" or "ubx") they came from.
type Event struct {
	Type       string                `json:"type"`
	TimeUTC    string                `json:"time_utc"`
	Path       string                `json:"path,omitempty"`
	Fix        *fix.Snapshot         `json:"fix,omitempty"`
	Status     *sink.StatusMessage   `json:"status,omitempty"`
	Satellites []fix.SatelliteRecord `json:"satellites,omitempty"`
}

// Broadcaster fans out events to websocket clients. It keeps the most recent
// event of each type so a new subscriber starts with the current state.
// Slow subscribers miss events rather than block the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	last   map[string]Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan Event),
		last: make(map[string]Event),
	}
}

func (b *Broadcaster) Subscribe(buffer int) (int, <-chan Event) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	// status first so a client never sees a fix before the provider state
	for _, typ := range []string{EventStatus, EventSatellites, EventFix} {
		for _, ev := range b.lastOfType(typ) {
			select {
			case ch <- ev:
			default:
			}
		}
	}
	b.mu.Unlock()
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.TimeUTC == "" {
		ev.TimeUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	b.mu.Lock()
	b.last[lastKey(ev)] = ev
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
}

// Status events are kept per path so one path never hides the other.
func lastKey(ev Event) string {
	if ev.Path == "" {
		return ev.Type
	}
	return ev.Type + "/" + ev.Path
}

func (b *Broadcaster) lastOfType(typ string) []Event {
	var out []Event
	for _, ev := range b.last {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

type sseEvent struct {
	name string
	data []byte
}

// Hub fans tracker events out to each user's connected SSE sessions. It
// implements progress.Emitter; delivery is best-effort and a slow consumer
// drops events rather than blocking the pipelines.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan sseEvent]struct{}
	log  logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[chan sseEvent]struct{}),
		log:  log.With("module", "sse_hub"),
	}
}

func (h *Hub) Emit(userID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- sseEvent{name: event, data: data}:
		default:
			// Slow consumer; the next snapshot on reconnect resyncs it.
		}
	}
}

func (h *Hub) subscribe(userID string) (chan sseEvent, func()) {
	ch := make(chan sseEvent, 64)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan sseEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[userID], ch)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// connections returns the number of live sessions for userID.
func (h *Hub) connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// handleEvents streams tracker events to the client. On connect the client
// receives a snapshot of its in-flight actions so a reconnect never misses
// running transfers.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := s.hub.subscribe(uid)
	defer cancel()

	snapshot, err := json.Marshal(s.tracker.Snapshot(uid))
	if err == nil {
		writeSSE(w, progress.EventInitialActions, snapshot)
		flusher.Flush()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-ch:
			writeSSE(w, ev.name, ev.data)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

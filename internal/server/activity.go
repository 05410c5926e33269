package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// activityBacklog is how many recent events are kept for Last-Event-ID
	// replay.
	activityBacklog = 500

	activityKeepalive = 15 * time.Second
)

// activityEvent is one portal event as sent to stream clients.
type activityEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// activityHub fans portal events out to connected admin streams and keeps a
// ring of recent events for reconnecting clients.
type activityHub struct {
	mu      sync.RWMutex
	clients map[*activityClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [activityBacklog]activityEvent
	ringPos int
	ringLen int
}

type activityClient struct {
	topics []string
	ch     chan *activityEvent
}

func newActivityHub() *activityHub {
	return &activityHub{clients: make(map[*activityClient]struct{})}
}

func (h *activityHub) broadcast(topic string, payload []byte) {
	evt := &activityEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % activityBacklog
	if h.ringLen < activityBacklog {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// Slow client; it can catch up with Last-Event-ID.
		}
	}
}

func (h *activityHub) subscribe(topics []string) *activityClient {
	c := &activityClient{topics: topics, ch: make(chan *activityEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *activityHub) unsubscribe(c *activityClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns buffered events newer than lastID, oldest first.
func (h *activityHub) since(lastID uint64) []*activityEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*activityEvent
	start := (h.ringPos - h.ringLen + activityBacklog) % activityBacklog
	for i := range h.ringLen {
		evt := h.ring[(start+i)%activityBacklog]
		if evt.ID > lastID {
			out = append(out, &evt)
		}
	}
	return out
}

func (c *activityClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopic(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches dot-separated topics NATS style: "*" is one segment,
// a trailing ">" is one or more.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, seg := range pat {
		if seg == ">" {
			return i < len(top)
		}
		if i >= len(top) || (seg != "*" && seg != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleActivityStream handles GET /admin/activity/stream.
func (p *Portal) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	c := p.hub.subscribe(topics)
	defer p.hub.unsubscribe(c)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if lastID, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, evt := range p.hub.since(lastID) {
				if c.wants(evt.Topic) {
					writeActivityEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(activityKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-c.ch:
			writeActivityEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeActivityEvent(w http.ResponseWriter, evt *activityEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}

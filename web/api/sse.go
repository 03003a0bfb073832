package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventRunComplete announces a finished reconstruction run; EventTrace
// carries one validation decision from an in-flight rebuild.
const (
	EventRunComplete = "run_complete"
	EventTrace       = "trace"
)

// SSEHub fans run and trace events out to connected clients. All hub
// state is owned by the Run goroutine.
type SSEHub struct {
	clients    map[chan SSEEvent]struct{}
	broadcast  chan SSEEvent
	register   chan chan SSEEvent
	unregister chan chan SSEEvent

	// Most recent run-complete event, replayed to late subscribers so a
	// dashboard connecting between rebuilds still shows the last run.
	lastRun *SSEEvent
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients:    make(map[chan SSEEvent]struct{}),
		broadcast:  make(chan SSEEvent),
		register:   make(chan chan SSEEvent),
		unregister: make(chan chan SSEEvent),
	}
}

// Run starts the SSE hub loop
func (h *SSEHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			if h.lastRun != nil {
				select {
				case client <- *h.lastRun:
				default:
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}

		case event := <-h.broadcast:
			if event.Type == EventRunComplete {
				ev := event
				h.lastRun = &ev
			}
			for client := range h.clients {
				// Slow clients are dropped rather than blocking the hub
				select {
				case client <- event:
				default:
					close(client)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast sends an event to all clients
func (h *SSEHub) Broadcast(event SSEEvent) {
	h.broadcast <- event
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// Buffered so the replay on register never races the first write.
		client := make(chan SSEEvent, 8)
		s.sseHub.register <- client

		// Cleanup on disconnect
		done := r.Context().Done()
		go func() {
			<-done
			s.sseHub.unregister <- client
		}()

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		for event := range client {
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

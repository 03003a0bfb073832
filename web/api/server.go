package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/foreststore"
)

// Store interface for forest persistence
type Store interface {
	ListSkeletons(opts foreststore.ListOptions) ([]*domain.Skeleton, error)
	GetSkeleton(id string) (*domain.Skeleton, error)
	ListChildren(parentID string) ([]*domain.Skeleton, error)
	ListRuns(limit int) ([]*domain.RunStats, error)
}

// Rebuilder triggers a forest rebuild from the transcript directory
type Rebuilder interface {
	Rebuild(ctx context.Context) (*domain.RunStats, error)
}

// Server is the HTTP API server
type Server struct {
	store     Store
	rebuilder Rebuilder
	addr      string
	mux       *http.ServeMux
	sseHub    *SSEHub
}

// NewServer creates a new API server
func NewServer(store Store, rebuilder Rebuilder, addr string) *Server {
	s := &Server{
		store:     store,
		rebuilder: rebuilder,
		addr:      addr,
		mux:       http.NewServeMux(),
		sseHub:    NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/forest", s.listForestHandler())
	s.mux.HandleFunc("/api/forest/", s.getSkeletonHandler())
	s.mux.HandleFunc("/api/runs", s.listRunsHandler())
	s.mux.HandleFunc("/api/rebuild", s.rebuildHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

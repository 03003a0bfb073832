package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/foreststore"
)

// SkeletonResponse is the API response for a task skeleton
type SkeletonResponse struct {
	TaskID                string `json:"task_id"`
	CreatedAt             string `json:"created_at"`
	LastActivity          string `json:"last_activity,omitempty"`
	Workspace             string `json:"workspace,omitempty"`
	TruncatedInstruction  string `json:"truncated_instruction,omitempty"`
	ParentTaskID          string `json:"parent_task_id,omitempty"`
	ReconstructedParentID string `json:"reconstructed_parent_id,omitempty"`
	Depth                 int    `json:"depth"`
	IsRootTask            bool   `json:"is_root_task"`
}

// StatusResponse is the API response for overall forest status
type StatusResponse struct {
	Skeletons int          `json:"skeletons"`
	Roots     int          `json:"roots"`
	LastRun   *RunResponse `json:"last_run,omitempty"`
}

// RunResponse is the API response for a reconstruction run
type RunResponse struct {
	RunID            string                `json:"run_id"`
	StartedAt        string                `json:"started_at"`
	FinishedAt       string                `json:"finished_at,omitempty"`
	Duration         string                `json:"duration"`
	TotalRecords     int                   `json:"total_records"`
	MalformedRecords int                   `json:"malformed_records"`
	TotalSkeletons   int                   `json:"total_skeletons"`
	ValidatedEdges   int                   `json:"validated_edges"`
	InvalidatedEdges int                   `json:"invalidated_edges"`
	InvalidatedBy    map[domain.Reason]int `json:"invalidated_by,omitempty"`
	ResolvedEdges    int                   `json:"resolved_edges"`
	AmbiguousMatches int                   `json:"ambiguous_matches"`
	Unresolved       int                   `json:"unresolved"`
	RootCount        int                   `json:"root_count"`
	MaxDepth         int                   `json:"max_depth"`
}

func skeletonToResponse(sk *domain.Skeleton) SkeletonResponse {
	resp := SkeletonResponse{
		TaskID:                sk.TaskID,
		CreatedAt:             sk.CreatedAt.Format(time.RFC3339),
		Workspace:             sk.Workspace,
		TruncatedInstruction:  sk.TruncatedInstruction,
		ParentTaskID:          sk.ParentTaskID,
		ReconstructedParentID: sk.ReconstructedParentID,
		Depth:                 sk.Depth,
		IsRootTask:            sk.IsRootTask,
	}
	if !sk.LastActivity.IsZero() {
		resp.LastActivity = sk.LastActivity.Format(time.RFC3339)
	}
	return resp
}

func runToResponse(st *domain.RunStats) RunResponse {
	resp := RunResponse{
		RunID:            st.RunID,
		StartedAt:        st.StartedAt.Format(time.RFC3339),
		Duration:         st.Duration().Round(time.Millisecond).String(),
		TotalRecords:     st.TotalRecords,
		MalformedRecords: st.MalformedRecords,
		TotalSkeletons:   st.TotalSkeletons,
		ValidatedEdges:   st.ValidatedEdges,
		InvalidatedEdges: st.InvalidatedEdges,
		InvalidatedBy:    st.InvalidatedBy,
		ResolvedEdges:    st.ResolvedEdges,
		AmbiguousMatches: st.AmbiguousMatches,
		Unresolved:       st.Unresolved,
		RootCount:        st.RootCount,
		MaxDepth:         st.MaxDepth,
	}
	if !st.FinishedAt.IsZero() {
		resp.FinishedAt = st.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		skeletons, err := s.store.ListSkeletons(foreststore.ListOptions{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var status StatusResponse
		status.Skeletons = len(skeletons)
		for _, sk := range skeletons {
			if sk.IsRootTask {
				status.Roots++
			}
		}

		runs, err := s.store.ListRuns(1)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(runs) > 0 {
			resp := runToResponse(runs[0])
			status.LastRun = &resp
		}

		writeJSON(w, status)
	}
}

func (s *Server) listForestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		opts := foreststore.ListOptions{
			Workspace: r.URL.Query().Get("workspace"),
			RootsOnly: r.URL.Query().Get("roots") == "true",
		}

		skeletons, err := s.store.ListSkeletons(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]SkeletonResponse, len(skeletons))
		for i, sk := range skeletons {
			responses[i] = skeletonToResponse(sk)
		}

		writeJSON(w, responses)
	}
}

func (s *Server) getSkeletonHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		// Path is /api/forest/{taskID} or /api/forest/{taskID}/children
		path := strings.TrimPrefix(r.URL.Path, "/api/forest/")
		if path == "" {
			writeError(w, http.StatusBadRequest, "task ID required")
			return
		}

		if taskID, ok := strings.CutSuffix(path, "/children"); ok {
			children, err := s.store.ListChildren(taskID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			responses := make([]SkeletonResponse, len(children))
			for i, sk := range children {
				responses[i] = skeletonToResponse(sk)
			}
			writeJSON(w, responses)
			return
		}

		sk, err := s.store.GetSkeleton(path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sk == nil {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}

		writeJSON(w, skeletonToResponse(sk))
	}
}

func (s *Server) listRunsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		runs, err := s.store.ListRuns(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]RunResponse, len(runs))
		for i, st := range runs {
			responses[i] = runToResponse(st)
		}

		writeJSON(w, responses)
	}
}

func (s *Server) rebuildHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if s.rebuilder == nil {
			writeError(w, http.StatusServiceUnavailable, "rebuild not available")
			return
		}

		stats, err := s.rebuilder.Rebuild(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := runToResponse(stats)
		s.Broadcast(SSEEvent{Type: EventRunComplete, Data: resp})

		writeJSON(w, resp)
	}
}

package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"briefme/internal/core"
	"briefme/internal/ingest"
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

var serverStartTime = time.Now()

// requireSecret rejects requests whose named header does not carry the
// configured secret. An unset secret closes the surface entirely.
func (s *Server) requireSecret(header, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(header)
			if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				s.respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealth handles the /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version: "v1.0.0",
		Uptime:  time.Since(serverStartTime).String(),
	})
}

// handleCronDaily handles POST /api/cron/daily: a batch run across every
// workspace.
func (s *Server) handleCronDaily(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.RunAll(r.Context())
	if err != nil {
		s.log.Error("Batch run failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type workspaceNowRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// handleWorkspaceNow handles POST /api/cron/workspace-now: an on-demand
// run for a single workspace.
func (s *Server) handleWorkspaceNow(w http.ResponseWriter, r *http.Request) {
	var req workspaceNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkspaceID == "" {
		s.respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	result, err := s.runner.RunOne(r.Context(), req.WorkspaceID)
	if err != nil {
		s.log.Error("Workspace run failed", "workspace_id", req.WorkspaceID, "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "workspace run failed")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleListRuns handles GET /api/runs?workspace_id=...&limit=N.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		s.respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.db.RunLogs().ListRecent(r.Context(), workspaceID, limit)
	if err != nil {
		s.log.Error("Failed to list runs", "workspace_id", workspaceID, "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// linkedInIngestRequest accepts either an explicit post row or a
// forwarded notification email to parse.
type linkedInIngestRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Post        *struct {
		AuthorName string `json:"author_name"`
		AuthorURL  string `json:"author_url"`
		PostURL    string `json:"post_url"`
		Content    string `json:"content"`
	} `json:"post"`
	Email *struct {
		Subject  string `json:"subject"`
		TextBody string `json:"text_body"`
		HTMLBody string `json:"html_body"`
	} `json:"email"`
}

// handleLinkedInIngest handles POST /api/ingest/linkedin. Posts are
// deduplicated by URL within the workspace; a post whose author URL
// matches a tracked source is attributed to that voice.
func (s *Server) handleLinkedInIngest(w http.ResponseWriter, r *http.Request) {
	var req linkedInIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WorkspaceID == "" {
		s.respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	var parsed ingest.ParsedPost
	switch {
	case req.Post != nil:
		parsed = ingest.ParsedPost{
			AuthorName: req.Post.AuthorName,
			AuthorURL:  req.Post.AuthorURL,
			PostURL:    req.Post.PostURL,
			Content:    req.Post.Content,
		}
	case req.Email != nil:
		parsed = ingest.ParseNotificationEmail(req.Email.Subject, req.Email.TextBody, req.Email.HTMLBody)
	default:
		s.respondError(w, http.StatusBadRequest, "either post or email is required")
		return
	}

	if parsed.Content == "" && parsed.PostURL == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "nothing to ingest")
		return
	}

	ctx := r.Context()
	if parsed.PostURL != "" {
		exists, err := s.db.Posts().ExistsByURL(ctx, req.WorkspaceID, parsed.PostURL)
		if err != nil {
			s.log.Error("Dedupe lookup failed", "workspace_id", req.WorkspaceID, "error", err.Error())
			s.respondError(w, http.StatusInternalServerError, "ingest failed")
			return
		}
		if exists {
			s.respondJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
	}

	post := core.Post{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Platform:    core.PlatformLinkedIn,
		AuthorName:  parsed.AuthorName,
		AuthorURL:   parsed.AuthorURL,
		PostURL:     parsed.PostURL,
		Content:     parsed.Content,
		CreatedAt:   time.Now().UTC(),
	}
	if parsed.AuthorURL != "" {
		source, err := s.db.Voices().FindSourceByURL(ctx, core.PlatformLinkedIn, parsed.AuthorURL)
		if err != nil {
			s.log.Warn("Voice lookup failed", "author_url", parsed.AuthorURL, "error", err.Error())
		} else if source != nil {
			post.VoiceID = source.VoiceID
			if post.AuthorName == "" {
				post.AuthorName = source.VoiceName
			}
		}
	}

	if err := s.db.Posts().CreateBatch(ctx, []core.Post{post}); err != nil {
		s.log.Error("Post insert failed", "workspace_id", req.WorkspaceID, "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"status":  "created",
		"post_id": post.ID,
	})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode response", "error", err.Error())
	}
}

// respondError writes a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

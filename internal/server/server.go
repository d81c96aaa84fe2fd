package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crosspost/internal"
	"crosspost/internal/publish"
	"crosspost/internal/uploaders"
)

// Publisher runs one job to completion. Satisfied by
// publish.Orchestrator.
type Publisher interface {
	Publish(ctx context.Context, job publish.Job) []publish.PlatformResult
}

// Validator checks credential availability per platform. Satisfied by
// secrets.Resolver.
type Validator interface {
	Validate(ctx context.Context, channel string, platforms []string) map[string]bool
}

type Server struct {
	log       zerolog.Logger
	publisher Publisher
	validator Validator
}

func NewRouter(log zerolog.Logger, publisher Publisher, validator Validator) http.Handler {
	s := &Server{log: log, publisher: publisher, validator: validator}

	r := chi.NewRouter()
	r.Use(requestLogger(log))
	r.Get("/", s.handleHealth)
	r.Get("/validate/{channelID}", s.handleValidate)
	r.Post("/publish", s.handlePublish)
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			log.Info().Msgf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: internal.Version})
}

type validateResponse struct {
	ChannelID string          `json:"channel_id"`
	Platforms map[string]bool `json:"platforms"`
	AllValid  bool            `json:"all_valid"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	platforms := []string{uploaders.PlatformYouTube, uploaders.PlatformTikTok}
	if raw := r.URL.Query().Get("platforms"); raw != "" {
		platforms = splitList(raw)
	}

	result := s.validator.Validate(r.Context(), channelID, platforms)

	allValid := true
	for _, ok := range result {
		allValid = allValid && ok
	}
	writeJSON(w, http.StatusOK, validateResponse{
		ChannelID: channelID,
		Platforms: result,
		AllValid:  allValid,
	})
}

type publishRequest struct {
	ChannelID   string   `json:"channel_id"`
	VideoURL    string   `json:"video_url"`
	Platforms   []string `json:"platforms"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Caption     string   `json:"caption,omitempty"`
}

type publishResponse struct {
	Status    string                   `json:"status"`
	Message   string                   `json:"message"`
	ChannelID string                   `json:"channel_id"`
	Platforms []string                 `json:"platforms"`
	JobID     *string                  `json:"job_id"`
	Results   []publish.PlatformResult `json:"results,omitempty"`
	Summary   *publish.Summary         `json:"summary,omitempty"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChannelID == "" || req.VideoURL == "" {
		writeError(w, http.StatusBadRequest, "channel_id and video_url are required")
		return
	}
	if len(req.Platforms) == 0 {
		writeError(w, http.StatusBadRequest, "at least one platform is required")
		return
	}
	for _, p := range req.Platforms {
		if !uploaders.Known(p) {
			writeError(w, http.StatusBadRequest, "unknown platform: "+p)
			return
		}
	}

	dryRun := r.URL.Query().Get("dry_run") == "true"
	job := publish.Job{
		ChannelID:   req.ChannelID,
		VideoURL:    req.VideoURL,
		Platforms:   req.Platforms,
		Title:       req.Title,
		Description: req.Description,
		Caption:     req.Caption,
		DryRun:      dryRun,
	}

	if dryRun {
		results := s.publisher.Publish(r.Context(), job)
		summary := publish.Summarize(results)

		status := "validated"
		if !summary.AllValid {
			status = "error"
		}
		writeJSON(w, http.StatusOK, publishResponse{
			Status:    status,
			Message:   "dry run complete",
			ChannelID: req.ChannelID,
			Platforms: req.Platforms,
			Results:   results,
			Summary:   &summary,
		})
		return
	}

	// Fire and forget: accepted jobs run detached from the request
	// context and expose no tracking handle.
	requestID := uuid.NewString()
	go func() {
		log := s.log.With().Str("request_id", requestID).Logger()
		results := s.publisher.Publish(context.Background(), job)
		summary := publish.Summarize(results)
		log.Info().
			Int("succeeded", summary.SuccessCount).
			Int("total", len(results)).
			Msg("background publish finished")
	}()

	writeJSON(w, http.StatusAccepted, publishResponse{
		Status:    "accepted",
		Message:   "upload tasks scheduled, check logs for progress",
		ChannelID: req.ChannelID,
		Platforms: req.Platforms,
	})
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package jobmanager

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"apex-portrait/internal/httpserver"
	"apex-portrait/internal/jobs"
)

type createRequest struct {
	Prompt *string `json:"prompt"`
	Style  string  `json:"style"`
	Seed   any     `json:"seed"`
}

type createResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type listResponse struct {
	Jobs []Record `json:"jobs"`
}

type Options struct {
	Store  *Store
	Logger *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	store := opts.Store
	if store == nil {
		store = NewStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &handler{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpserver.WithLogging(logger))
	r.Use(httpserver.AllowAllCORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/jobs", h.create)
	r.Get("/jobs", h.list)
	r.Get("/jobs/{id}", h.get)
	return r
}

type handler struct {
	store  *Store
	logger *slog.Logger
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	const maxBody = 1 << 20
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req createRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == nil {
		httpserver.WriteError(w, http.StatusUnprocessableEntity, "prompt is required")
		return
	}

	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = jobs.DefaultStyle
	}

	rec := h.store.Create(*req.Prompt, style, req.Seed)
	h.logger.Info("job created", "job_id", rec.JobID, "style", rec.Style)

	httpserver.WriteJSON(w, http.StatusOK, createResponse{JobID: rec.JobID, Status: rec.Status})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, listResponse{Jobs: h.store.List()})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		httpserver.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, rec)
}

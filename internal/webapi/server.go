// Package webapi exposes the catalog, presets, generation pipeline and saved
// profiles as a JSON API.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apex-portrait/internal/httpserver"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
)

type Generator interface {
	Generate(ctx context.Context, form portrait.FormData) pipeline.Outcome
}

type ProfileStore interface {
	Save(ctx context.Context, p portrait.Profile, name string) (string, error)
	List(ctx context.Context) map[string]portrait.Profile
	Names(ctx context.Context) []string
	Load(ctx context.Context, name string) (portrait.Profile, bool)
	Delete(ctx context.Context, name string) bool
}

type Options struct {
	Generator      Generator
	Store          ProfileStore
	Presets        *portrait.PresetBook
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
}

type Server struct {
	gen     Generator
	store   ProfileStore
	presets *portrait.PresetBook
	logger  *slog.Logger
	metrics *Metrics
	reg     *prometheus.Registry
	timeout time.Duration
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	presets := opts.Presets
	if presets == nil {
		presets = portrait.DefaultPresetBook()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Server{
		gen:     opts.Generator,
		store:   opts.Store,
		presets: presets,
		logger:  logger,
		metrics: NewMetrics(reg),
		reg:     reg,
		timeout: timeout,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpserver.WithLogging(s.logger))
	r.Use(httpserver.AllowAllCORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/presets", s.handlePresets)
		r.Post("/presets/{name}/apply", s.handleApplyPreset)
		r.Post("/generate", s.handleGenerate)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/import", s.handleImport)
			r.Get("/{name}", s.handleGetProfile)
			r.Delete("/{name}", s.handleDeleteProfile)
			r.Get("/{name}/export", s.handleExport)
		})
	})
	return r
}

type catalogField struct {
	Field   portrait.Field    `json:"field"`
	Title   string            `json:"title"`
	Basic   bool              `json:"basic"`
	Options []portrait.Option `json:"options"`
}

type catalogResponse struct {
	Fields   []catalogField    `json:"fields"`
	Defaults portrait.FormData `json:"defaults"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	resp := catalogResponse{Defaults: portrait.DefaultForm()}
	for _, f := range portrait.Fields() {
		resp.Fields = append(resp.Fields, catalogField{
			Field:   f,
			Title:   f.Title(),
			Basic:   f.IsBasic(),
			Options: portrait.OptionsFor(f),
		})
	}
	httpserver.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"presets": s.presets.List()})
}

type formResponse struct {
	Form   portrait.FormData `json:"form"`
	Status string            `json:"status"`
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	next, found := s.presets.Apply(form, name)
	if !found {
		httpserver.WriteError(w, http.StatusNotFound, "unknown preset: "+name)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, formResponse{Form: next, Status: portrait.AppliedPresetStatus(next.PresetName)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		httpserver.WriteError(w, http.StatusServiceUnavailable, "generator not configured")
		return
	}

	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	out := s.gen.Generate(ctx, form)
	s.metrics.observe(out)

	status := http.StatusOK
	if !out.Generated() {
		status = http.StatusUnprocessableEntity
	}
	httpserver.WriteJSON(w, status, out.Report())
}

// decodeForm reads a FormData body over the defaults. An empty body yields the
// default form.
func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request) (portrait.FormData, bool) {
	const maxBody = 1 << 20

	form := portrait.DefaultForm()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&form); err != nil && !errors.Is(err, io.EOF) {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return portrait.FormData{}, false
	}
	return form.WithDefaults(), true
}

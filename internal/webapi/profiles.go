package webapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"apex-portrait/internal/httpserver"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
)

const maxImportBytes = 5 << 20

type profileListResponse struct {
	Names    []string                    `json:"names"`
	Profiles map[string]portrait.Profile `json:"profiles"`
}

type importResponse struct {
	Profile portrait.Profile  `json:"profile"`
	Form    portrait.FormData `json:"form"`
	SavedAs string            `json:"saved_as,omitempty"`
	Status  string            `json:"status"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	profiles := s.store.List(r.Context())
	httpserver.WriteJSON(w, http.StatusOK, profileListResponse{
		Names:    s.store.Names(r.Context()),
		Profiles: profiles,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := profileName(r)
	p, ok := s.store.Load(r.Context(), name)
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "profile not found: "+name)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if !s.store.Delete(r.Context(), profileName(r)) {
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := profileName(r)
	p, ok := s.store.Load(r.Context(), name)
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "profile not found: "+name)
		return
	}

	data, err := profilestore.MarshalExport(p)
	if err != nil {
		s.logger.Error("export failed", "name", name, "err", err)
		httpserver.WriteError(w, http.StatusInternalServerError, "failed to export profile")
		return
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		filename = name
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("content-disposition", "attachment; filename="+strconv.Quote(profilestore.ExportFilename(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport accepts a multipart upload in field "file". With save=true the
// profile is also stored under the optional "name" field.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	p, err := profilestore.Import(file)
	switch {
	case errors.Is(err, profilestore.ErrParse):
		s.metrics.imports.WithLabelValues("parse_error").Inc()
		httpserver.WriteError(w, http.StatusBadRequest, profilestore.ErrParse.Error())
		return
	case err != nil:
		s.metrics.imports.WithLabelValues("read_error").Inc()
		httpserver.WriteError(w, http.StatusBadRequest, profilestore.ErrRead.Error())
		return
	}
	s.metrics.imports.WithLabelValues("ok").Inc()

	resp := importResponse{
		Profile: p,
		Form:    portrait.DefaultForm().WithProfile(p),
		Status:  "✅ Profile imported",
	}

	if save, _ := strconv.ParseBool(r.FormValue("save")); save {
		if !s.requireStore(w) {
			return
		}
		key, err := s.store.Save(r.Context(), p, strings.TrimSpace(r.FormValue("name")))
		if err != nil {
			s.logger.Error("import save failed", "err", err)
			httpserver.WriteError(w, http.StatusInternalServerError, "failed to save imported profile")
			return
		}
		resp.SavedAs = key
		resp.Status += " | 💾 Saved to: " + key
	}

	httpserver.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httpserver.WriteError(w, http.StatusServiceUnavailable, "profile storage not configured")
		return false
	}
	return true
}

func profileName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

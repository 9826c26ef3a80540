package server

import (
	"fmt"
	"net/http"
	"strconv"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	s.writeJSON(w, http.StatusOK, s.catalog.Categories())
}

func (s *Server) handlePresetPage(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	size, err := intQuery(r, "size", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.catalog.Page(r.PathValue("name"), page, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, ok := s.catalog.Lookup(name)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %q", errPresetNotFound, name))
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

func floatQuery(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return f, nil
}

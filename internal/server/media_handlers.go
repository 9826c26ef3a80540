package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/MeKo-Tech/phonix/internal/media"
)

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errStorageUnavailable)
		return
	}

	var (
		items []media.Metadata
		err   error
	)
	if tag := r.URL.Query().Get("tag"); tag != "" {
		items, err = s.store.ByTag(r.Context(), tag)
	} else {
		items, err = s.store.Search(r.Context(), r.URL.Query().Get("q"))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errStorageUnavailable)
		return
	}

	data, meta, err := s.store.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		s.log().Error("failed to write media", "id", meta.ID, "error", err)
	}
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errStorageUnavailable)
		return
	}
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEdit runs the secondary edit surface on an uploaded image.
// Settings come from the query: rotation, crop=x,y,w,h, overlay, seed, quality.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	settings, err := editSettings(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quality, err := floatQuery(r, "quality", s.cfg.Quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	seed := s.cfg.Seed
	if v := r.URL.Query().Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: seed must be an integer", errBadRequest))
			return
		}
		seed = n
	}
	now := s.now()
	if seed == 0 {
		seed = now.UnixNano()
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := composite.DecodeBytesLimit(body, s.cfg.MaxPixels)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := edit.Export(src.Image, settings, seed, quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.edits.Add(1)

	s.writeAttachment(w, composite.ExportFilename(composite.PrefixEdited, now), data)
}

func editSettings(r *http.Request) (edit.Settings, error) {
	q := r.URL.Query()
	settings := edit.DefaultSettings()

	if v := q.Get("rotation"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings, fmt.Errorf("%w: rotation must be an integer", errBadRequest)
		}
		settings.Rotation = n
	}

	if v := q.Get("crop"); v != "" {
		c, err := edit.ParseCrop(v)
		if err != nil {
			return settings, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		settings.Crop = c
	}

	overlay, err := edit.ParseOverlay(q.Get("overlay"))
	if err != nil {
		return settings, err
	}
	settings.Overlay = overlay

	return settings.Normalize(), nil
}

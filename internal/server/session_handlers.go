package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/MeKo-Tech/phonix/internal/session"
)

type loadURLRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type presetRequest struct {
	Name string `json:"name" validate:"required"`
}

type saveRequest struct {
	Owner string   `json:"owner" validate:"required,max=128"`
	Tags  []string `json:"tags" validate:"max=32,dive,max=64"`
}

type saveResponse struct {
	Reference media.Reference `json:"reference"`
	Metadata  media.Metadata  `json:"metadata"`
}

type chainResponse struct {
	Chain []filter.Op `json:"chain"`
	CSS   string      `json:"css"`
	Glow  string      `json:"glow,omitempty"`
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", errSessionNotFound, id))
		return nil, false
	}
	return sess, true
}

// loadSource reads an image from the request: a raw image body, or a JSON
// body {"url": ...} naming an external reference. An empty body yields nil.
func (s *Server) loadSource(w http.ResponseWriter, r *http.Request) (*composite.Source, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loadURLRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			return nil, err
		}
		if s.fetcher == nil {
			return nil, fmt.Errorf("%w: loading by url is disabled", errBadRequest)
		}
		data, err := s.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			return nil, &composite.ImageDecodeError{Err: err}
		}
		return composite.DecodeBytesLimit(data, s.cfg.MaxPixels)
	}

	data, err := s.readBody(w, r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return composite.DecodeBytesLimit(data, s.cfg.MaxPixels)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	src, err := s.loadSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.sessions.Create()
	if src != nil {
		sess.Load(src)
	}

	s.log().Info("session created", "session", sess.ID(), "loaded", src != nil)
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	s.writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Discard(id) {
		s.writeError(w, r, fmt.Errorf("%w: %s", errSessionNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	src, err := s.loadSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if src == nil {
		s.writeError(w, r, &composite.ImageDecodeError{Err: errors.New("empty image data")})
		return
	}

	sess.Load(src)
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSetParameters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var u filter.Update
	if err := s.decodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := sess.SetParameters(u); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req presetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	preset, found := s.catalog.Lookup(req.Name)
	if !found {
		s.writeError(w, r, fmt.Errorf("%w: %q", errPresetNotFound, req.Name))
		return
	}
	if _, err := sess.ApplyPreset(preset); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	sess.Reset()
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	params := sess.Parameters()
	ops := filter.Chain(params)
	s.writeJSON(w, http.StatusOK, chainResponse{
		Chain: ops,
		CSS:   filter.CSS(ops),
		Glow:  filter.GlowCSS(params),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	size, err := intQuery(r, "size", s.cfg.PreviewSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params := sess.Parameters()
	img, err := sess.Preview(size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := composite.EncodeJPEG(img, s.cfg.Quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	w.Header().Set("X-Filter-Chain", filter.CSS(filter.Chain(params)))
	if glow := filter.GlowCSS(params); glow != "" {
		w.Header().Set("X-Preview-Glow", glow)
	}
	if _, err := w.Write(data); err != nil {
		s.log().Error("failed to write preview", "error", err)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	quality, err := floatQuery(r, "quality", s.cfg.Quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	exp, err := sess.Export(r.Context(), quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.exports.Add(1)

	s.writeAttachment(w, composite.ExportFilename(composite.PrefixEnhanced, exp.Created), exp.Data)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.store == nil {
		s.writeError(w, r, errStorageUnavailable)
		return
	}

	var req saveRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	exp, err := sess.Export(r.Context(), s.cfg.Quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.exports.Add(1)

	meta := media.NewGalleryMetadata(req.Owner, exp.FiltersApplied(), edit.NormalizeTags(req.Tags), exp.Created)
	ref, err := s.store.Submit(r.Context(), exp.Data, meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.saves.Add(1)

	meta.Size = int64(len(exp.Data))
	s.log().Info("enhanced photo saved", "session", sess.ID(), "media", ref.ID, "preset", exp.Preset)
	s.writeJSON(w, http.StatusCreated, saveResponse{Reference: ref, Metadata: meta})
}

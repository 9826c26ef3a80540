package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/MeKo-Tech/phonix/internal/session"
	"github.com/go-playground/validator/v10"
)

var (
	errSessionNotFound    = errors.New("session not found")
	errPresetNotFound     = errors.New("preset not found")
	errBadRequest         = errors.New("bad request")
	errStorageUnavailable = errors.New("storage not configured")
	errTooLarge           = errors.New("request body too large")
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		decodeErr *composite.ImageDecodeError
		encodeErr *composite.ExportEncodeError
		submitErr *media.StorageSubmitError
		validErr  validator.ValidationErrors
	)

	switch {
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &encodeErr):
		return http.StatusInternalServerError
	case errors.As(err, &submitErr):
		return http.StatusBadGateway
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, errPresetNotFound),
		errors.Is(err, media.ErrNotFound),
		errors.Is(err, catalog.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.As(err, &validErr),
		errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrPageOutOfRange),
		errors.Is(err, edit.ErrUnknownOverlay):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoImage),
		errors.Is(err, session.ErrDiscarded):
		return http.StatusConflict
	case errors.Is(err, errStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.failed.Add(1)
		s.log().Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	} else {
		s.log().Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		s.log().Error("failed to write response", "error", err)
	}
}

// readBody reads a size-limited request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// decodeJSON decodes a JSON body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return err
	}
	return nil
}

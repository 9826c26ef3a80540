// Package session tracks the per-image editing state: the loaded source, the
// current parameter snapshot and the selected preset.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/filter"
	"golang.org/x/sync/singleflight"
)

// NoPreset marks a session whose parameters were not set from a preset.
const NoPreset = "None"

var (
	ErrNoImage   = errors.New("no image loaded")
	ErrDiscarded = errors.New("session discarded")
)

// State is the session lifecycle position.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateEditing
	StatePresetApplied
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StatePresetApplied:
		return "preset_applied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateEmpty; st <= StatePresetApplied; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Export is one finished export of a session.
type Export struct {
	Data       []byte
	Parameters filter.Parameters
	Preset     string
	Width      int
	Height     int
	Created    time.Time

	generation uint64
}

// FiltersApplied lists the preset name when one was selected.
func (e Export) FiltersApplied() []string {
	if e.Preset == "" || e.Preset == NoPreset {
		return []string{}
	}
	return []string{e.Preset}
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID             string            `json:"id"`
	State          State             `json:"state"`
	Parameters     filter.Parameters `json:"parameters"`
	SelectedPreset string            `json:"selectedPreset"`
	Width          int               `json:"width,omitempty"`
	Height         int               `json:"height,omitempty"`
	Format         string            `json:"format,omitempty"`
	Chain          []filter.Op       `json:"chain"`
	PreviewCSS     string            `json:"previewCss"`
	LastExport     *time.Time        `json:"lastExport,omitempty"`
}

type exportFunc func(src *composite.Source, params filter.Parameters, quality float64) ([]byte, error)

// Session is the mutable working state for one image.
// All methods are safe for concurrent use; at most one export renders at a time.
type Session struct {
	id     string
	logger *slog.Logger
	now    func() time.Time
	export exportFunc

	mu         sync.Mutex
	state      State
	source     *composite.Source
	params     filter.Parameters
	preset     string
	generation uint64
	lastExport time.Time
	lastUsed   time.Time

	exports singleflight.Group
}

// New creates an empty session.
func New(id string, logger *slog.Logger) *Session {
	s := &Session{
		id:     id,
		logger: logger,
		now:    time.Now,
		export: composite.Export,
		params: filter.Identity(),
		preset: NoPreset,
	}
	s.lastUsed = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Load installs a decoded source and starts a fresh edit with identity parameters.
// Loading replaces any previous image; an export of that image still in
// flight is discarded.
func (s *Session) Load(src *composite.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = src
	s.params = filter.Identity()
	s.preset = NoPreset
	s.state = StateLoaded
	s.generation++
	s.lastExport = time.Time{}
	s.touchLocked()

	s.log().Debug("image loaded", "session", s.id, "format", src.Format, "width", src.Width, "height", src.Height)
}

// LoadReader decodes r and loads it. On decode failure the session is left
// exactly as it was and the *composite.ImageDecodeError is returned.
func (s *Session) LoadReader(r io.Reader) error {
	src, err := composite.Decode(r)
	if err != nil {
		s.log().Warn("image decode failed", "session", s.id, "error", err)
		return err
	}
	s.Load(src)
	return nil
}

// SetParameters merges u into the current snapshot, clamping every field.
func (s *Session) SetParameters(u filter.Update) (filter.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return s.params, ErrNoImage
	}

	s.params = s.params.Merge(u)
	s.state = StateEditing
	s.touchLocked()
	return s.params, nil
}

// ApplyPreset replaces the whole snapshot with the preset's parameters and
// records the preset as selected.
func (s *Session) ApplyPreset(p catalog.Preset) (filter.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return s.params, ErrNoImage
	}

	s.params = filter.Clamp(p.Parameters)
	s.preset = p.Name
	s.state = StatePresetApplied
	s.touchLocked()
	return s.params, nil
}

// Reset returns to identity parameters and clears the selected preset.
func (s *Session) Reset() filter.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params = filter.Identity()
	s.preset = NoPreset
	if s.source != nil {
		s.state = StateEditing
	}
	s.touchLocked()
	return s.params
}

// Parameters returns the current snapshot.
func (s *Session) Parameters() filter.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SelectedPreset returns the selected preset name or NoPreset.
func (s *Session) SelectedPreset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preset
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Chain returns the filter chain for the current snapshot.
func (s *Session) Chain() []filter.Op {
	return filter.Chain(s.Parameters())
}

// Snapshot returns a consistent read-only view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		State:          s.state,
		Parameters:     s.params,
		SelectedPreset: s.preset,
		Chain:          filter.Chain(s.params),
		PreviewCSS:     filter.PreviewCSS(s.params),
	}
	if s.source != nil {
		snap.Width = s.source.Width
		snap.Height = s.source.Height
		snap.Format = s.source.Format
	}
	if !s.lastExport.IsZero() {
		t := s.lastExport
		snap.LastExport = &t
	}
	return snap
}

// Preview renders the current snapshot at display resolution.
func (s *Session) Preview(maxSize int) (*image.NRGBA, error) {
	s.mu.Lock()
	src, params := s.source, s.params
	s.touchLocked()
	s.mu.Unlock()

	if src == nil {
		return nil, ErrNoImage
	}
	return composite.Render(src, params, maxSize), nil
}

// Export renders the full-resolution source with the current snapshot and
// encodes it. Concurrent calls share a single offscreen render and receive
// the same result. If the session is discarded or reloaded while the render
// runs, the render finishes but its result is dropped and ErrDiscarded is
// returned. Cancelling ctx stops waiting without stopping the render.
func (s *Session) Export(ctx context.Context, quality float64) (Export, error) {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return Export{}, ErrNoImage
	}
	src, params, preset, gen := s.source, s.params, s.preset, s.generation
	render := s.export
	s.touchLocked()
	s.mu.Unlock()

	// Only callers exporting the same image with the same snapshot share a render.
	key := fmt.Sprintf("%d/%v/%g", gen, params, quality)
	ch := s.exports.DoChan(key, func() (any, error) {
		start := s.now()
		data, err := render(src, params, quality)
		if err != nil {
			return nil, err
		}
		s.log().Debug("export rendered",
			"session", s.id,
			"width", src.Width,
			"height", src.Height,
			"bytes", len(data),
			"ms", s.now().Sub(start).Milliseconds(),
		)
		return Export{
			Data:       data,
			Parameters: params,
			Preset:     preset,
			Width:      src.Width,
			Height:     src.Height,
			Created:    s.now(),
			generation: gen,
		}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Export{}, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		return Export{}, res.Err
	}
	exp := res.Val.(Export)

	s.mu.Lock()
	defer s.mu.Unlock()
	if exp.generation != s.generation {
		s.log().Info("dropping export of discarded image", "session", s.id)
		return Export{}, ErrDiscarded
	}
	s.lastExport = exp.Created
	return exp, nil
}

// Discard clears the image and edits and returns the session to Empty.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = nil
	s.params = filter.Identity()
	s.preset = NoPreset
	s.state = StateEmpty
	s.generation++
	s.lastExport = time.Time{}
	s.touchLocked()
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touchLocked() {
	s.lastUsed = s.now()
}

func (s *Session) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

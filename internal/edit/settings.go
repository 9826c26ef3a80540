// Package edit implements the secondary edit surface: rotation, crop,
// decorative overlays and media tags.
package edit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Overlay is a decorative layer composited over the edited image.
type Overlay string

const (
	OverlayNone      Overlay = "None"
	OverlayVignette  Overlay = "Vignette"
	OverlayLightLeak Overlay = "Light Leak"
	OverlayFilmGrain Overlay = "Film Grain"
	OverlayBokeh     Overlay = "Bokeh"
)

// Overlays lists the available overlays in display order.
var Overlays = []Overlay{OverlayNone, OverlayVignette, OverlayLightLeak, OverlayFilmGrain, OverlayBokeh}

var ErrUnknownOverlay = errors.New("unknown overlay")

// ParseOverlay resolves an overlay name. Matching ignores case and treats
// '-' and '_' as spaces, so "light-leak" is accepted. Empty means none.
func ParseOverlay(name string) (Overlay, error) {
	key := normalizeOverlay(name)
	if key == "" {
		return OverlayNone, nil
	}
	for _, o := range Overlays {
		if normalizeOverlay(string(o)) == key {
			return o, nil
		}
	}
	return OverlayNone, fmt.Errorf("%w: %q", ErrUnknownOverlay, name)
}

func normalizeOverlay(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Crop selects a region in percent of the source dimensions.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullCrop keeps the whole image.
func FullCrop() Crop {
	return Crop{Width: 100, Height: 100}
}

// Settings are the secondary edit parameters.
type Settings struct {
	Rotation int      `json:"rotation"`
	Crop     Crop     `json:"crop"`
	Overlay  Overlay  `json:"overlay"`
	Tags     []string `json:"tags,omitempty"`
}

// DefaultSettings returns the untouched state.
func DefaultSettings() Settings {
	return Settings{Crop: FullCrop(), Overlay: OverlayNone}
}

// Normalize wraps rotation into [0, 360) and keeps the crop rectangle inside
// the image with a non-empty size.
func (s Settings) Normalize() Settings {
	r := s.Rotation % 360
	if r < 0 {
		r += 360
	}
	s.Rotation = r

	c := s.Crop
	c.Width = clamp(c.Width, 1, 100)
	c.Height = clamp(c.Height, 1, 100)
	c.X = clamp(c.X, 0, 100-c.Width)
	c.Y = clamp(c.Y, 0, 100-c.Height)
	s.Crop = c

	if s.Overlay == "" {
		s.Overlay = OverlayNone
	}
	return s
}

// Rotate advances the rotation by one clockwise quarter turn.
func (s Settings) Rotate() Settings {
	s.Rotation = (s.Rotation + 90) % 360
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ParseCrop parses "x,y,width,height" in percent.
func ParseCrop(v string) (Crop, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return Crop{}, fmt.Errorf("crop must be x,y,width,height, got %q", v)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Crop{}, fmt.Errorf("crop value %q is not a number", p)
		}
		vals[i] = f
	}
	return Crop{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Package filter holds the image adjustment parameter model and the ordered
// filter chain derived from it.
package filter

import "math"

// Parameters is one snapshot of the eight adjustment sliders.
// Values are percentages except Blur (pixels), HueRotate (degrees) and Warmth.
type Parameters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Blur       float64 `json:"blur"`
	HueRotate  float64 `json:"hueRotate"`
	Sepia      float64 `json:"sepia"`
	Warmth     float64 `json:"warmth"`
	Glow       float64 `json:"glow"`
}

// Range is an inclusive valid interval for one parameter field.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range. NaN collapses to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Valid ranges for each field.
var (
	BrightnessRange = Range{Min: 50, Max: 150}
	ContrastRange   = Range{Min: 50, Max: 150}
	SaturationRange = Range{Min: 0, Max: 200}
	BlurRange       = Range{Min: 0, Max: 10}
	HueRotateRange  = Range{Min: 0, Max: 360}
	SepiaRange      = Range{Min: 0, Max: 100}
	WarmthRange     = Range{Min: -50, Max: 50}
	GlowRange       = Range{Min: 0, Max: 100}
)

// Identity returns the parameters that leave an image unchanged.
func Identity() Parameters {
	return Parameters{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
	}
}

// Clamp returns a copy of p with every field forced into its valid range.
func Clamp(p Parameters) Parameters {
	return Parameters{
		Brightness: BrightnessRange.Clamp(p.Brightness),
		Contrast:   ContrastRange.Clamp(p.Contrast),
		Saturation: SaturationRange.Clamp(p.Saturation),
		Blur:       BlurRange.Clamp(p.Blur),
		HueRotate:  HueRotateRange.Clamp(p.HueRotate),
		Sepia:      SepiaRange.Clamp(p.Sepia),
		Warmth:     WarmthRange.Clamp(p.Warmth),
		Glow:       GlowRange.Clamp(p.Glow),
	}
}

// Valid reports whether every field of p is inside its range.
func (p Parameters) Valid() bool {
	return BrightnessRange.Contains(p.Brightness) &&
		ContrastRange.Contains(p.Contrast) &&
		SaturationRange.Contains(p.Saturation) &&
		BlurRange.Contains(p.Blur) &&
		HueRotateRange.Contains(p.HueRotate) &&
		SepiaRange.Contains(p.Sepia) &&
		WarmthRange.Contains(p.Warmth) &&
		GlowRange.Contains(p.Glow)
}

// IsIdentity reports whether p equals Identity().
func (p Parameters) IsIdentity() bool {
	return p == Identity()
}

// Update is a partial change to Parameters. Nil fields are left untouched.
type Update struct {
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Blur       *float64 `json:"blur,omitempty"`
	HueRotate  *float64 `json:"hueRotate,omitempty"`
	Sepia      *float64 `json:"sepia,omitempty"`
	Warmth     *float64 `json:"warmth,omitempty"`
	Glow       *float64 `json:"glow,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u == Update{}
}

// Merge applies u on top of p and clamps the result.
// Out-of-range values are clamped, never rejected.
func (p Parameters) Merge(u Update) Parameters {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	out := p
	set(&out.Brightness, u.Brightness)
	set(&out.Contrast, u.Contrast)
	set(&out.Saturation, u.Saturation)
	set(&out.Blur, u.Blur)
	set(&out.HueRotate, u.HueRotate)
	set(&out.Sepia, u.Sepia)
	set(&out.Warmth, u.Warmth)
	set(&out.Glow, u.Glow)

	return Clamp(out)
}

// Float returns a pointer to v, for building an Update literal.
func Float(v float64) *float64 {
	return &v
}

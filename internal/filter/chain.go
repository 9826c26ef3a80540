package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a single adjustment operation.
type Kind uint8

const (
	KindBrightness Kind = iota + 1
	KindContrast
	KindSaturate
	KindBlur
	KindHueRotate
	KindSepia
	KindWarmthSepia
	KindWarmthHueRotate
)

var kindNames = map[Kind]string{
	KindBrightness:      "brightness",
	KindContrast:        "contrast",
	KindSaturate:        "saturate",
	KindBlur:            "blur",
	KindHueRotate:       "hue-rotate",
	KindSepia:           "sepia",
	KindWarmthSepia:     "warmth-sepia",
	KindWarmthHueRotate: "warmth-hue-rotate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown filter kind %d", uint8(k))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown filter kind %q", string(text))
}

// Op is one typed adjustment with its amount.
type Op struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
}

// Chain derives the ordered adjustment list for p.
// The order is fixed: brightness, contrast, saturate, blur, hue-rotate, sepia,
// then the warmth-derived op. Preview and export both consume this list, so
// reordering it changes the rendered result.
func Chain(p Parameters) []Op {
	ops := make([]Op, 0, 7)
	ops = append(ops,
		Op{Kind: KindBrightness, Value: p.Brightness},
		Op{Kind: KindContrast, Value: p.Contrast},
		Op{Kind: KindSaturate, Value: p.Saturation},
		Op{Kind: KindBlur, Value: p.Blur},
		Op{Kind: KindHueRotate, Value: p.HueRotate},
		Op{Kind: KindSepia, Value: p.Sepia},
	)

	if op, ok := WarmthOp(p.Warmth); ok {
		ops = append(ops, op)
	}

	return ops
}

// WarmthOp maps a warmth value to its op. Positive warmth warms through sepia,
// negative warmth cools through a hue rotation by the same (negative) degrees,
// zero contributes nothing.
func WarmthOp(warmth float64) (Op, bool) {
	switch {
	case warmth > 0:
		return Op{Kind: KindWarmthSepia, Value: warmth}, true
	case warmth < 0:
		return Op{Kind: KindWarmthHueRotate, Value: warmth}, true
	default:
		return Op{}, false
	}
}

// CSS renders the op as a CSS filter function.
func (o Op) CSS() string {
	v := formatNumber(o.Value)
	switch o.Kind {
	case KindBrightness:
		return "brightness(" + v + "%)"
	case KindContrast:
		return "contrast(" + v + "%)"
	case KindSaturate:
		return "saturate(" + v + "%)"
	case KindBlur:
		return "blur(" + v + "px)"
	case KindHueRotate, KindWarmthHueRotate:
		return "hue-rotate(" + v + "deg)"
	case KindSepia, KindWarmthSepia:
		return "sepia(" + v + "%)"
	default:
		return ""
	}
}

// CSS joins a chain into a CSS filter property value.
func CSS(ops []Op) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		if s := op.CSS(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// GlowCSS returns the preview-only glow as a CSS drop shadow, or "" when glow is off.
// Glow never enters the export chain.
func GlowCSS(p Parameters) string {
	if p.Glow <= 0 {
		return ""
	}
	return fmt.Sprintf("drop-shadow(0 0 %spx rgba(255, 255, 255, %s))",
		formatNumber(p.Glow/2), formatNumber(p.Glow/100))
}

// PreviewCSS is the full style the browser preview applies: the chain plus glow.
func PreviewCSS(p Parameters) string {
	css := CSS(Chain(p))
	if glow := GlowCSS(p); glow != "" {
		css += " " + glow
	}
	return css
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

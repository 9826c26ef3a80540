package filter

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChainOrder(t *testing.T) {
	p := Parameters{Brightness: 110, Contrast: 130, Saturation: 140, Blur: 0, HueRotate: 30, Sepia: 10, Warmth: 15, Glow: 5}

	want := []Op{
		{Kind: KindBrightness, Value: 110},
		{Kind: KindContrast, Value: 130},
		{Kind: KindSaturate, Value: 140},
		{Kind: KindBlur, Value: 0},
		{Kind: KindHueRotate, Value: 30},
		{Kind: KindSepia, Value: 10},
		{Kind: KindWarmthSepia, Value: 15},
	}

	if diff := cmp.Diff(want, Chain(p)); diff != "" {
		t.Fatalf("chain mismatch (-want +got):\n%s", diff)
	}
}

func TestChainIsPure(t *testing.T) {
	p := Parameters{Brightness: 90, Contrast: 120, Saturation: 60, Blur: 1.5, HueRotate: 200, Sepia: 40, Warmth: -12, Glow: 0}

	first := Chain(p)
	second := Chain(p)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("chain not deterministic (-first +second):\n%s", diff)
	}
}

func TestWarmthBranching(t *testing.T) {
	tests := []struct {
		name   string
		warmth float64
		want   *Op
	}{
		{"warm", 20, &Op{Kind: KindWarmthSepia, Value: 20}},
		{"cool", -20, &Op{Kind: KindWarmthHueRotate, Value: -20}},
		{"neutral", 0, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Identity()
			p.Warmth = tc.warmth
			ops := Chain(p)

			if tc.want == nil {
				if len(ops) != 6 {
					t.Fatalf("expected 6 ops without warmth, got %d", len(ops))
				}
				return
			}
			if len(ops) != 7 {
				t.Fatalf("expected 7 ops, got %d", len(ops))
			}
			if ops[6] != *tc.want {
				t.Fatalf("warmth op: got %+v, want %+v", ops[6], *tc.want)
			}
		})
	}
}

func TestCSS(t *testing.T) {
	p := Parameters{Brightness: 110, Contrast: 130, Saturation: 140, Blur: 0, HueRotate: 30, Sepia: 10, Warmth: -20}

	got := CSS(Chain(p))
	want := "brightness(110%) contrast(130%) saturate(140%) blur(0px) hue-rotate(30deg) sepia(10%) hue-rotate(-20deg)"
	if got != want {
		t.Fatalf("css mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestGlowCSS(t *testing.T) {
	if got := GlowCSS(Identity()); got != "" {
		t.Fatalf("expected no glow, got %q", got)
	}

	p := Identity()
	p.Glow = 40
	want := "drop-shadow(0 0 20px rgba(255, 255, 255, 0.4))"
	if got := GlowCSS(p); got != want {
		t.Fatalf("glow css: got %q, want %q", got, want)
	}
	if got := PreviewCSS(p); got != CSS(Chain(p))+" "+want {
		t.Fatalf("preview css should append glow, got %q", got)
	}
}

func TestOpJSON(t *testing.T) {
	data, err := json.Marshal(Op{Kind: KindWarmthHueRotate, Value: -5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"kind":"warmth-hue-rotate","value":-5}` {
		t.Fatalf("unexpected json: %s", data)
	}

	var op Op
	if err := json.Unmarshal([]byte(`{"kind":"saturate","value":120}`), &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.Kind != KindSaturate || op.Value != 120 {
		t.Fatalf("unexpected op: %+v", op)
	}
}

package edit

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{
			name: "defaults unchanged",
			in:   DefaultSettings(),
			want: DefaultSettings(),
		},
		{
			name: "rotation wrapped",
			in:   Settings{Rotation: 460, Crop: FullCrop(), Overlay: OverlayNone},
			want: Settings{Rotation: 100, Crop: FullCrop(), Overlay: OverlayNone},
		},
		{
			name: "negative rotation",
			in:   Settings{Rotation: -90, Crop: FullCrop()},
			want: Settings{Rotation: 270, Crop: FullCrop(), Overlay: OverlayNone},
		},
		{
			name: "crop kept inside image",
			in:   Settings{Crop: Crop{X: 80, Y: -5, Width: 50, Height: 0}},
			want: Settings{Crop: Crop{X: 50, Y: 0, Width: 50, Height: 1}, Overlay: OverlayNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestRotateCycles(t *testing.T) {
	s := DefaultSettings()
	for _, want := range []int{90, 180, 270, 0} {
		s = s.Rotate()
		assert.Equal(t, want, s.Rotation)
	}
}

func TestParseOverlay(t *testing.T) {
	for in, want := range map[string]Overlay{
		"":           OverlayNone,
		"none":       OverlayNone,
		"Vignette":   OverlayVignette,
		"light-leak": OverlayLightLeak,
		"FILM_GRAIN": OverlayFilmGrain,
		" bokeh ":    OverlayBokeh,
	} {
		got, err := ParseOverlay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOverlay("lens flare")
	assert.ErrorIs(t, err, ErrUnknownOverlay)
}

func TestApplyRotateAndCrop(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x >= 20 {
				c = color.NRGBA{B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	rotated, err := Apply(img, Settings{Rotation: 90, Crop: FullCrop()}, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), rotated.Bounds())
	// clockwise: the red left half ends up on top
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, rotated.NRGBAAt(10, 5))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, rotated.NRGBAAt(10, 35))

	cropped, err := Apply(img, Settings{Crop: Crop{X: 50, Y: 0, Width: 50, Height: 50}}, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), cropped.Bounds())
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			assert.Equal(t, color.NRGBA{B: 255, A: 255}, cropped.NRGBAAt(x, y))
		}
	}
}

func TestApplyUnknownOverlay(t *testing.T) {
	_, err := Apply(solid(4, 4, color.NRGBA{A: 255}), Settings{Crop: FullCrop(), Overlay: "Sparkles"}, 1)
	assert.ErrorIs(t, err, ErrUnknownOverlay)
}

func TestVignetteDarkensCorners(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	out, err := Apply(solid(64, 64, white), Settings{Crop: FullCrop(), Overlay: OverlayVignette}, 1)
	require.NoError(t, err)

	center := out.NRGBAAt(32, 32)
	corner := out.NRGBAAt(0, 0)
	assert.Equal(t, white, center)
	assert.Less(t, corner.R, center.R)
}

func TestLightLeakWarmsTopLeft(t *testing.T) {
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	out, err := Apply(solid(32, 32, gray), Settings{Crop: FullCrop(), Overlay: OverlayLightLeak}, 1)
	require.NoError(t, err)

	tl := out.NRGBAAt(0, 0)
	assert.Greater(t, tl.R, tl.B)
	assert.Equal(t, gray, out.NRGBAAt(31, 31))
}

func TestSeededOverlaysAreDeterministic(t *testing.T) {
	bounds := image.Rect(0, 0, 48, 32)
	for _, o := range []Overlay{OverlayFilmGrain, OverlayBokeh} {
		a, err := OverlayLayer(o, bounds, 7)
		require.NoError(t, err)
		b, err := OverlayLayer(o, bounds, 7)
		require.NoError(t, err)
		require.NotNil(t, a, o)
		assert.Equal(t, bounds, a.Bounds())
		assert.Equal(t, a.Pix, b.Pix, o)
	}

	none, err := OverlayLayer(OverlayNone, bounds, 7)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestExportJPEG(t *testing.T) {
	data, err := Export(solid(16, 16, color.NRGBA{G: 200, A: 255}), DefaultSettings().Rotate(), 1, 0.95)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 3)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data[:3])
}

func TestTags(t *testing.T) {
	tags, err := AddTag(nil, "  Sunset ")
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset"}, tags)

	_, err = AddTag(tags, "SUNSET")
	assert.ErrorIs(t, err, ErrDuplicateTag)

	_, err = AddTag(tags, "   ")
	assert.ErrorIs(t, err, ErrEmptyTag)

	tags, err = AddTag(tags, "party")
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset", "party"}, tags)

	assert.Equal(t, []string{"party"}, RemoveTag(tags, "sunset"))
	assert.Equal(t, []string{"sunset", "party"}, tags, "RemoveTag must not mutate its input")

	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{"A", " a", "", "b"}))
}

func TestParseCrop(t *testing.T) {
	c, err := ParseCrop("10, 20,50,40")
	require.NoError(t, err)
	assert.Equal(t, Crop{X: 10, Y: 20, Width: 50, Height: 40}, c)

	_, err = ParseCrop("10,20,50")
	assert.Error(t, err)
	_, err = ParseCrop("a,b,c,d")
	assert.Error(t, err)
}

func TestApplyFreeRotation(t *testing.T) {
	img := solid(20, 20, color.NRGBA{G: 255, A: 255})

	out, err := Apply(img, Settings{Rotation: 45, Crop: FullCrop()}, 1)
	require.NoError(t, err)
	b := out.Bounds()
	assert.Greater(t, b.Dx(), 20)
	assert.Equal(t, b.Dx(), b.Dy())

	// the middle stays image, the corners are uncovered background
	assert.Equal(t, uint8(255), out.NRGBAAt(b.Dx()/2, b.Dy()/2).G)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)

	s := Settings{Rotation: 45}.Rotate()
	assert.Equal(t, 135, s.Rotation)
}

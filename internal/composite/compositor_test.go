package composite

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/phonix/internal/filter"
)

func fillRect(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func blendNRGBA(top, bottom color.NRGBA) color.NRGBA {
	sa := float64(top.A) / 255.0
	ba := float64(bottom.A) / 255.0

	outA := sa + ba*(1.0-sa)
	if outA == 0 {
		return color.NRGBA{}
	}

	blend := func(s, b uint8) uint8 {
		sp := float64(s) * sa
		bp := float64(b) * ba
		outPremult := sp + bp*(1.0-sa)
		return uint8(math.Round(outPremult / outA))
	}

	return color.NRGBA{
		R: blend(top.R, bottom.R),
		G: blend(top.G, bottom.G),
		B: blend(top.B, bottom.B),
		A: uint8(math.Round(outA * 255.0)),
	}
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(1, w-1)),
				G: uint8(y * 255 / max(1, h-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeRoundTrip(t *testing.T) {
	src, err := DecodeBytes(encodePNG(t, gradient(30, 20)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if src.Format != "png" {
		t.Fatalf("expected png format, got %q", src.Format)
	}
	if src.Width != 30 || src.Height != 20 {
		t.Fatalf("unexpected size %dx%d", src.Width, src.Height)
	}
}

func TestDecodeFailure(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, gradient(8, 8))[:20]},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tc.data))
			var decErr *ImageDecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected ImageDecodeError, got %v", err)
			}
		})
	}
}

func TestRenderBoundsPreviewSize(t *testing.T) {
	src := FromImage(gradient(400, 100))

	out := Render(src, filter.Identity(), 200)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 50 {
		t.Fatalf("expected 200x50 preview, got %v", out.Bounds())
	}

	full := Render(src, filter.Identity(), 0)
	if full.Bounds().Dx() != 400 || full.Bounds().Dy() != 100 {
		t.Fatalf("expected full-size render, got %v", full.Bounds())
	}

	small := FromImage(gradient(50, 40))
	kept := Render(small, filter.Identity(), 512)
	if kept.Bounds() != small.Image.Bounds() {
		t.Fatalf("small source should not be upscaled, got %v", kept.Bounds())
	}
}

func TestRenderMatchesExportAtFullResolution(t *testing.T) {
	img := gradient(16, 16)
	src := FromImage(img)
	params := filter.Parameters{Brightness: 110, Contrast: 130, Saturation: 140, HueRotate: 30, Sepia: 10, Warmth: 15, Glow: 5}

	preview := Render(src, params, 0)
	direct := apply(img, params, 1)

	if !bytes.Equal(preview.Pix, direct.Pix) {
		t.Fatal("full-resolution preview should be pixel-identical to the export surface")
	}
}

func TestExportJPEG(t *testing.T) {
	src, err := DecodeBytes(encodePNG(t, gradient(100, 100)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	params := filter.Parameters{Brightness: 110, Contrast: 130, Saturation: 140, Blur: 0, HueRotate: 30, Sepia: 10, Warmth: 15, Glow: 5}

	data, err := Export(src, params, DefaultQuality)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF {
		t.Fatalf("missing JPEG signature: % x", data[:min(3, len(data))])
	}

	decoded, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("re-decode export: %v", err)
	}
	if decoded.Format != "jpeg" || decoded.Width != 100 || decoded.Height != 100 {
		t.Fatalf("unexpected export %s %dx%d", decoded.Format, decoded.Width, decoded.Height)
	}
}

func TestEncodeJPEGQualityFallback(t *testing.T) {
	img := gradient(32, 32)

	def, err := EncodeJPEG(img, DefaultQuality)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, q := range []float64{0, -1, 2, math.NaN()} {
		got, err := EncodeJPEG(img, q)
		if err != nil {
			t.Fatalf("encode q=%v: %v", q, err)
		}
		if !bytes.Equal(got, def) {
			t.Fatalf("quality %v should fall back to the default", q)
		}
	}

	low, err := EncodeJPEG(img, 0.1)
	if err != nil {
		t.Fatalf("encode low: %v", err)
	}
	if len(low) >= len(def) {
		t.Fatalf("low quality (%d bytes) should be smaller than default (%d bytes)", len(low), len(def))
	}
}

func TestExportFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	if got := ExportFilename(PrefixEnhanced, ts); got != "enhanced_1700000000123.jpg" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := ExportFilename(PrefixEdited, ts); !strings.HasPrefix(got, "edited_") {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestAlphaOver(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	fillRect(dst, dst.Bounds(), color.NRGBA{G: 255, A: 255})

	overlay := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		overlay.SetNRGBA(1, y, color.NRGBA{R: 255, A: 128})
	}

	if err := AlphaOver(dst, overlay); err != nil {
		t.Fatalf("AlphaOver: %v", err)
	}

	want := blendNRGBA(color.NRGBA{R: 255, A: 128}, color.NRGBA{G: 255, A: 255})
	if got := dst.NRGBAAt(1, 2); got != want {
		t.Fatalf("blended pixel: got %+v, want %+v", got, want)
	}
	if got := dst.NRGBAAt(0, 0); got != (color.NRGBA{G: 255, A: 255}) {
		t.Fatalf("transparent overlay pixel should leave dst alone, got %+v", got)
	}
}

func TestAlphaOverValidatesBounds(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	bad := image.NewNRGBA(image.Rect(1, 1, 3, 3))

	if err := AlphaOver(dst, bad); err == nil {
		t.Fatal("expected error for mismatched bounds")
	}
}

// withDeclaredSize rewrites the IHDR dimensions of an encoded PNG without
// touching its pixel data.
func withDeclaredSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	if string(out[12:16]) != "IHDR" {
		t.Fatalf("unexpected first chunk %q", out[12:16])
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	data := withDeclaredSize(t, encodePNG(t, gradient(8, 8)), 30000, 30000)

	_, err := DecodeBytes(data)
	var decErr *ImageDecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected ImageDecodeError, got %v", err)
	}
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
	if decErr.Format != "png" {
		t.Fatalf("expected png format, got %q", decErr.Format)
	}
}

func TestDecodeBytesLimit(t *testing.T) {
	data := encodePNG(t, gradient(30, 20))

	if _, err := DecodeBytesLimit(data, 599); !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels at 599 pixels, got %v", err)
	}
	src, err := DecodeBytesLimit(data, 600)
	if err != nil {
		t.Fatalf("decode at exact limit: %v", err)
	}
	if src.Width != 30 || src.Height != 20 {
		t.Fatalf("unexpected size %dx%d", src.Width, src.Height)
	}
	if _, err := DecodeBytesLimit(data, 0); err != nil {
		t.Fatalf("zero limit should use the default: %v", err)
	}
}

package edit

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/disintegration/gift"
)

// Apply crops, rotates and decorates img according to settings.
// seed drives the random overlays (film grain, bokeh) so output is reproducible.
func Apply(img image.Image, settings Settings, seed int64) (*image.NRGBA, error) {
	s := settings.Normalize()
	if _, err := ParseOverlay(string(s.Overlay)); err != nil {
		return nil, err
	}

	g := gift.New()
	if rect := cropRect(img.Bounds(), s.Crop); rect != img.Bounds() {
		g.Add(gift.Crop(rect))
	}
	// Rotation is clockwise; gift rotates counter-clockwise.
	switch s.Rotation {
	case 0:
	case 90:
		g.Add(gift.Rotate270())
	case 180:
		g.Add(gift.Rotate180())
	case 270:
		g.Add(gift.Rotate90())
	default:
		g.Add(gift.Rotate(float32(360-s.Rotation), color.Transparent, gift.CubicInterpolation))
	}

	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	layer, err := OverlayLayer(s.Overlay, dst.Bounds(), seed)
	if err != nil {
		return nil, err
	}
	if layer != nil {
		if err := composite.AlphaOver(dst, layer); err != nil {
			return nil, fmt.Errorf("failed to composite overlay: %w", err)
		}
	}
	return dst, nil
}

// Export applies settings and encodes the result as JPEG.
func Export(img image.Image, settings Settings, seed int64, quality float64) ([]byte, error) {
	out, err := Apply(img, settings, seed)
	if err != nil {
		return nil, err
	}
	return composite.EncodeJPEG(out, quality)
}

func cropRect(b image.Rectangle, c Crop) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())

	x0 := b.Min.X + int(math.Round(c.X/100*w))
	y0 := b.Min.Y + int(math.Round(c.Y/100*h))
	x1 := x0 + max(1, int(math.Round(c.Width/100*w)))
	y1 := y0 + max(1, int(math.Round(c.Height/100*h)))

	return image.Rect(x0, y0, min(x1, b.Max.X), min(y1, b.Max.Y))
}

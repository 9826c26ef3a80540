package composite

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"time"

	"github.com/MeKo-Tech/phonix/internal/filter"
	"golang.org/x/image/draw"
)

const (
	// DefaultQuality is the JPEG quality used for downloads and gallery saves.
	DefaultQuality = 0.95
	// DefaultPreviewSize bounds the longest preview side in pixels.
	DefaultPreviewSize = 512
)

// Render produces the display-resolution preview of src under params.
// The source is scaled so its longest side is at most maxSize, and blur radii
// are scaled by the same factor so the preview matches the export.
// maxSize <= 0 renders at full resolution.
func Render(src *Source, params filter.Parameters, maxSize int) *image.NRGBA {
	img := src.Image
	scale := 1.0

	bounds := img.Bounds()
	longest := max(bounds.Dx(), bounds.Dy())
	if maxSize > 0 && longest > maxSize {
		scale = float64(maxSize) / float64(longest)
		w := max(1, int(math.Round(float64(bounds.Dx())*scale)))
		h := max(1, int(math.Round(float64(bounds.Dy())*scale)))

		scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
	}

	return apply(img, params, scale)
}

// Export re-renders the full-resolution source onto an offscreen surface the
// size of the source and encodes it as JPEG. quality is in (0,1]; anything
// else falls back to DefaultQuality.
func Export(src *Source, params filter.Parameters, quality float64) ([]byte, error) {
	surface := apply(src.Image, params, 1)
	if surface.Bounds().Dx() != src.Width || surface.Bounds().Dy() != src.Height {
		return nil, &ExportEncodeError{Err: fmt.Errorf("surface %v does not match source %dx%d", surface.Bounds(), src.Width, src.Height)}
	}
	return EncodeJPEG(surface, quality)
}

// EncodeJPEG serializes img as a JPEG byte stream.
func EncodeJPEG(img image.Image, quality float64) ([]byte, error) {
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(quality * 100))}); err != nil {
		return nil, &ExportEncodeError{Err: err}
	}
	if buf.Len() == 0 {
		return nil, &ExportEncodeError{Err: fmt.Errorf("encoder produced no data")}
	}
	return buf.Bytes(), nil
}

// ExportFilename builds the download name, e.g. enhanced_1700000000000.jpg.
func ExportFilename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%d.jpg", prefix, t.UnixMilli())
}

// Filename prefixes for the two edit surfaces.
const (
	PrefixEnhanced = "enhanced"
	PrefixEdited   = "edited"
)

func apply(img image.Image, params filter.Parameters, blurScale float64) *image.NRGBA {
	g := filter.Filters(filter.Chain(params), blurScale)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// AlphaOver draws src over dst with straight-alpha blending.
// Both images must share bounds.
func AlphaOver(dst *image.NRGBA, src image.Image) error {
	if src.Bounds() != dst.Bounds() {
		return fmt.Errorf("overlay bounds %v do not match %v", src.Bounds(), dst.Bounds())
	}

	bounds := dst.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if s.A == 0 {
				continue
			}

			d := dst.NRGBAAt(x, y)

			sa := float64(s.A) / 255.0
			da := float64(d.A) / 255.0

			outA := sa + da*(1.0-sa)
			if outA == 0 {
				dst.SetNRGBA(x, y, color.NRGBA{})
				continue
			}

			blend := func(srcVal, dstVal uint8) uint8 {
				srcPremult := float64(srcVal) * sa
				dstPremult := float64(dstVal) * da
				outPremult := srcPremult + dstPremult*(1.0-sa)
				return uint8(math.Round(outPremult / outA))
			}

			dst.SetNRGBA(x, y, color.NRGBA{
				R: blend(s.R, d.R),
				G: blend(s.G, d.G),
				B: blend(s.B, d.B),
				A: uint8(math.Round(outA * 255.0)),
			})
		}
	}

	return nil
}

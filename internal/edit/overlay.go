package edit

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
)

// OverlayLayer renders the overlay as a straight-alpha layer with the given
// bounds. OverlayNone yields a nil layer.
func OverlayLayer(o Overlay, bounds image.Rectangle, seed int64) (*image.NRGBA, error) {
	o, err := ParseOverlay(string(o))
	if err != nil {
		return nil, err
	}

	switch o {
	case OverlayVignette:
		return vignette(bounds), nil
	case OverlayLightLeak:
		return lightLeak(bounds), nil
	case OverlayFilmGrain:
		return filmGrain(bounds, seed), nil
	case OverlayBokeh:
		return bokeh(bounds, seed), nil
	default:
		return nil, nil
	}
}

// vignette darkens toward the corners.
func vignette(bounds image.Rectangle) *image.NRGBA {
	layer := image.NewNRGBA(bounds)
	cx := float64(bounds.Min.X) + float64(bounds.Dx())/2
	cy := float64(bounds.Min.Y) + float64(bounds.Dy())/2
	maxDist := math.Hypot(float64(bounds.Dx())/2, float64(bounds.Dy())/2)

	const inner = 0.5
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / maxDist
			t := math.Max(0, (d-inner)/(1-inner))
			a := 0.7 * t * t
			layer.SetNRGBA(x, y, color.NRGBA{A: uint8(math.Min(255, a*255))})
		}
	}
	return layer
}

// lightLeak washes a warm glow in from the top-left corner.
func lightLeak(bounds image.Rectangle) *image.NRGBA {
	layer := image.NewNRGBA(bounds)
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			fx := (float64(x-bounds.Min.X) + 0.5) / w
			fy := (float64(y-bounds.Min.Y) + 0.5) / h
			t := math.Max(0, 1-(fx+fy)/1.2)
			a := 0.6 * t * t
			layer.SetNRGBA(x, y, color.NRGBA{R: 255, G: 140, B: 60, A: uint8(math.Min(255, a*255))})
		}
	}
	return layer
}

// filmGrain is a fine perlin noise texture at low opacity.
func filmGrain(bounds image.Rectangle, seed int64) *image.NRGBA {
	// alpha: persistence, beta: lacunarity, n: octaves
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)
	layer := image.NewNRGBA(bounds)

	const scale = 1.7
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			val := p.Noise2D(float64(x)/scale, float64(y)/scale)
			normalized := (val + 1.0) / 2.0
			g := uint8(math.Max(0, math.Min(255, normalized*255)))
			layer.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 48})
		}
	}
	return layer
}

// bokeh scatters soft out-of-focus light discs.
func bokeh(bounds image.Rectangle, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	w, h := bounds.Dx(), bounds.Dy()
	short := float64(min(w, h))

	discs := image.NewNRGBA(bounds)
	n := 12 + rng.Intn(12)
	for i := 0; i < n; i++ {
		cx := float64(bounds.Min.X) + rng.Float64()*float64(w)
		cy := float64(bounds.Min.Y) + rng.Float64()*float64(h)
		r := short * (0.03 + rng.Float64()*0.07)
		c := color.NRGBA{
			R: 255,
			G: uint8(200 + rng.Intn(56)),
			B: uint8(150 + rng.Intn(106)),
			A: uint8(60 + rng.Intn(70)),
		}
		fillDisc(discs, cx, cy, r, c)
	}

	sigma := float32(math.Max(0.5, short/150))
	g := gift.New(gift.GaussianBlur(sigma))
	layer := image.NewNRGBA(bounds)
	g.Draw(layer, discs)
	return layer
}

func fillDisc(img *image.NRGBA, cx, cy, r float64, c color.NRGBA) {
	b := img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(cx-r)))
	x1 := min(b.Max.X, int(math.Ceil(cx+r)))
	y0 := max(b.Min.Y, int(math.Floor(cy-r)))
	y1 := min(b.Max.Y, int(math.Ceil(cy+r)))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) <= r {
				if img.NRGBAAt(x, y).A < c.A {
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}
}

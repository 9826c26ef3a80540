package filter

import (
	"math"

	"github.com/disintegration/gift"
)

// Filters builds the gift pipeline for a chain.
// blurScale multiplies blur radii so a downscaled preview matches the
// full-resolution export; pass 1 for export.
func Filters(ops []Op, blurScale float64) *gift.GIFT {
	g := gift.New()

	for _, op := range ops {
		switch op.Kind {
		case KindBrightness:
			if op.Value != 100 {
				g.Add(brightness(op.Value / 100))
			}
		case KindContrast:
			if op.Value != 100 {
				g.Add(contrast(op.Value / 100))
			}
		case KindSaturate:
			if op.Value != 100 {
				g.Add(colorMatrix(saturateMatrix(op.Value / 100)))
			}
		case KindBlur:
			sigma := op.Value * blurScale
			if sigma > 0 {
				g.Add(gift.GaussianBlur(float32(sigma)))
			}
		case KindHueRotate, KindWarmthHueRotate:
			if math.Mod(op.Value, 360) != 0 {
				g.Add(colorMatrix(hueRotateMatrix(op.Value)))
			}
		case KindSepia, KindWarmthSepia:
			if op.Value > 0 {
				g.Add(gift.Sepia(float32(op.Value)))
			}
		}
	}

	return g
}

// brightness scales every channel linearly, like CSS brightness().
func brightness(amount float64) gift.Filter {
	a := float32(amount)
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a1 float32) {
		return r0 * a, g0 * a, b0 * a, a0
	})
}

// contrast pivots every channel around mid-gray, like CSS contrast().
func contrast(amount float64) gift.Filter {
	a := float32(amount)
	intercept := 0.5 - 0.5*a
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a1 float32) {
		return r0*a + intercept, g0*a + intercept, b0*a + intercept, a0
	})
}

type matrix3 [3][3]float64

// saturateMatrix follows the Filter Effects saturate() definition.
func saturateMatrix(s float64) matrix3 {
	return matrix3{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
}

// hueRotateMatrix follows the Filter Effects hue-rotate() definition.
func hueRotateMatrix(deg float64) matrix3 {
	rad := deg * math.Pi / 180
	c := math.Cos(rad)
	s := math.Sin(rad)
	return matrix3{
		{0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928},
		{0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283},
		{0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072},
	}
}

func colorMatrix(m matrix3) gift.Filter {
	var f [3][3]float32
	for i := range m {
		for j := range m[i] {
			f[i][j] = float32(m[i][j])
		}
	}
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		r = f[0][0]*r0 + f[0][1]*g0 + f[0][2]*b0
		g = f[1][0]*r0 + f[1][1]*g0 + f[1][2]*b0
		b = f[2][0]*r0 + f[2][1]*g0 + f[2][2]*b0
		return r, g, b, a0
	})
}

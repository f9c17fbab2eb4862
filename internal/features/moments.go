package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// eccentricity returns the eccentricity of the ellipse with the same second
// central moments as the pixel set: 0 for a disc, approaching 1 as the
// region elongates.
func eccentricity(pixels []point) float64 {
	n := float64(len(pixels))
	if n == 0 {
		return 0
	}

	var mx, my float64
	for _, p := range pixels {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	mx /= n
	my /= n

	var sxx, syy, sxy float64
	for _, p := range pixels {
		dx, dy := float64(p.X)-mx, float64(p.Y)-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	cov := mat.NewSymDense(2, []float64{sxx / n, sxy / n, sxy / n, syy / n})

	var eig mat.EigenSym
	if !eig.Factorize(cov, false) {
		return 0
	}
	vals := eig.Values(nil) // ascending
	lmin, lmax := math.Max(vals[0], 0), math.Max(vals[1], 0)
	if lmax == 0 {
		return 0
	}
	return math.Sqrt(1 - lmin/lmax)
}

// Package interp provides a shape-preserving monotone cubic interpolant
// (Fritsch–Carlson PCHIP) over a strictly increasing set of samples.
package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInsufficientData is returned when fewer than 2 knots are supplied.
	ErrInsufficientData = errors.New("interp: need at least 2 points")
	// ErrNotIncreasing is returned when x is not strictly increasing.
	ErrNotIncreasing = errors.New("interp: x values must be strictly increasing")
)

// PCHIP is a piecewise cubic Hermite interpolant whose knot derivatives are
// chosen so the curve never overshoots between samples. Outside [x0, xn] it
// extrapolates linearly using the boundary segment's secant slope.
type PCHIP struct {
	xs []float64
	ys []float64
	ds []float64 // derivative at each knot

	delta []float64 // secant slope per segment
}

// New fits a PCHIP through (xs[i], ys[i]). The inputs are copied.
func New(xs, ys []float64) (*PCHIP, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interp: x/y length mismatch (%d vs %d)", len(xs), len(ys))
	}
	n := len(xs)
	if n < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrInsufficientData, n)
	}
	for i := 1; i < n; i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("%w (x[%d]=%g, x[%d]=%g)", ErrNotIncreasing, i-1, xs[i-1], i, xs[i])
		}
	}

	p := &PCHIP{
		xs:    append([]float64(nil), xs...),
		ys:    append([]float64(nil), ys...),
		ds:    make([]float64, n),
		delta: make([]float64, n-1),
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = p.xs[i+1] - p.xs[i]
		p.delta[i] = (p.ys[i+1] - p.ys[i]) / h[i]
	}

	if n == 2 {
		// Single segment degenerates to the secant line.
		p.ds[0] = p.delta[0]
		p.ds[1] = p.delta[0]
		return p, nil
	}

	// Interior derivatives: zero at local extrema or flats, otherwise the
	// weighted harmonic mean of the adjacent secant slopes.
	for i := 1; i < n-1; i++ {
		d0, d1 := p.delta[i-1], p.delta[i]
		if d0 == 0 || d1 == 0 || (d0 > 0) != (d1 > 0) {
			p.ds[i] = 0
			continue
		}
		w1 := 2*h[i] + h[i-1]
		w2 := h[i] + 2*h[i-1]
		p.ds[i] = (w1 + w2) / (w1/d0 + w2/d1)
	}

	p.ds[0] = edgeDerivative(h[0], h[1], p.delta[0], p.delta[1])
	p.ds[n-1] = edgeDerivative(h[n-2], h[n-3], p.delta[n-2], p.delta[n-3])

	return p, nil
}

// edgeDerivative is the one-sided three-point estimate at a boundary knot,
// clipped to keep the interpolant shape-preserving near the ends.
func edgeDerivative(h0, h1, d0, d1 float64) float64 {
	d := ((2*h0+h1)*d0 - h0*d1) / (h0 + h1)
	if sign(d) != sign(d0) {
		return 0
	}
	if sign(d0) != sign(d1) && math.Abs(d) > 3*math.Abs(d0) {
		return 3 * d0
	}
	return d
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Eval evaluates the interpolant at xq.
func (p *PCHIP) Eval(xq float64) float64 {
	n := len(p.xs)
	if xq <= p.xs[0] {
		return p.ys[0] + (xq-p.xs[0])*p.delta[0]
	}
	if xq >= p.xs[n-1] {
		return p.ys[n-1] + (xq-p.xs[n-1])*p.delta[n-2]
	}

	// Locate the containing segment [xs[i], xs[i+1]).
	i := sort.SearchFloat64s(p.xs, xq)
	if p.xs[i] == xq {
		return p.ys[i]
	}
	i--

	h := p.xs[i+1] - p.xs[i]
	t := (xq - p.xs[i]) / h
	t2 := t * t
	t3 := t2 * t

	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return h00*p.ys[i] + h10*h*p.ds[i] + h01*p.ys[i+1] + h11*h*p.ds[i+1]
}

// EvalSlice evaluates the interpolant at each query point.
func (p *PCHIP) EvalSlice(xq []float64) []float64 {
	out := make([]float64, len(xq))
	for i, x := range xq {
		out[i] = p.Eval(x)
	}
	return out
}

// Domain returns the fitted x range [min, max].
func (p *PCHIP) Domain() (float64, float64) {
	return p.xs[0], p.xs[len(p.xs)-1]
}

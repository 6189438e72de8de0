package optim

import (
	"math"
	"sort"
)

// Nelder–Mead coefficients: reflection, expansion, contraction, shrink.
const (
	nmAlpha = 1.0
	nmGamma = 2.0
	nmRho   = 0.5
	nmSigma = 0.5
)

// NMOptions configures the simplex search.
type NMOptions struct {
	// Step is the perturbation used to build the initial simplex from x0.
	Step float64
	// Tol terminates the search once the spread between the best and worst
	// simplex values drops below it.
	Tol float64
	// MaxIter caps the number of iterations; values below 20 are raised to 20.
	MaxIter int
}

// DefaultNMOptions returns the standard settings used by the diagnostics fit.
func DefaultNMOptions() NMOptions {
	return NMOptions{Step: 0.08, Tol: 1e-6, MaxIter: 200}
}

// NMResult is the outcome of one simplex minimization.
type NMResult struct {
	X     []float64
	F     float64
	Iters int
}

type vertex struct {
	x []float64
	f float64
}

// NelderMead minimizes f starting from x0, clamping every trial vertex
// coordinate into [lo[i], hi[i]] after each move. f must be defined (finite or
// a large penalty) everywhere inside the box.
func NelderMead(f func([]float64) float64, x0, lo, hi []float64, o NMOptions) NMResult {
	n := len(x0)
	if o.Step <= 0 {
		o.Step = 0.08
	}
	if o.Tol <= 0 {
		o.Tol = 1e-6
	}
	if o.MaxIter < 20 {
		o.MaxIter = 20
	}

	clamp := func(x []float64) {
		for i := range x {
			if x[i] < lo[i] {
				x[i] = lo[i]
			}
			if x[i] > hi[i] {
				x[i] = hi[i]
			}
		}
	}

	// Initial simplex: x0 plus one unit-step perturbation per coordinate.
	simplex := make([]vertex, n+1)
	for i := range simplex {
		x := append([]float64(nil), x0...)
		if i > 0 {
			x[i-1] += o.Step
		}
		clamp(x)
		simplex[i] = vertex{x: x, f: f(x)}
	}

	iters := 0
	for ; iters < o.MaxIter; iters++ {
		sort.SliceStable(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
		if math.Abs(simplex[n].f-simplex[0].f) < o.Tol {
			break
		}

		// Centroid of all but the worst vertex.
		centroid := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := range centroid {
				centroid[j] += simplex[i].x[j] / float64(n)
			}
		}

		worst := simplex[n]
		reflected := combine(centroid, worst.x, 1+nmAlpha, -nmAlpha)
		clamp(reflected)
		fr := f(reflected)

		switch {
		case fr < simplex[0].f:
			// Try to expand past the reflected point.
			expanded := combine(centroid, worst.x, 1+nmAlpha*nmGamma, -nmAlpha*nmGamma)
			clamp(expanded)
			if fe := f(expanded); fe < fr {
				simplex[n] = vertex{x: expanded, f: fe}
			} else {
				simplex[n] = vertex{x: reflected, f: fr}
			}
		case fr < simplex[n-1].f:
			simplex[n] = vertex{x: reflected, f: fr}
		default:
			var contracted []float64
			if fr < worst.f {
				// Outside contraction, between centroid and reflected point.
				contracted = combine(centroid, reflected, 1-nmRho, nmRho)
			} else {
				// Inside contraction, between centroid and worst point.
				contracted = combine(centroid, worst.x, 1-nmRho, nmRho)
			}
			clamp(contracted)
			fc := f(contracted)
			if fc < math.Min(fr, worst.f) {
				simplex[n] = vertex{x: contracted, f: fc}
			} else {
				// Shrink every vertex toward the best one.
				for i := 1; i <= n; i++ {
					shrunk := combine(simplex[0].x, simplex[i].x, 1-nmSigma, nmSigma)
					clamp(shrunk)
					simplex[i] = vertex{x: shrunk, f: f(shrunk)}
				}
			}
		}
	}

	sort.SliceStable(simplex, func(a, b int) bool { return simplex[a].f < simplex[b].f })
	return NMResult{X: append([]float64(nil), simplex[0].x...), F: simplex[0].f, Iters: iters}
}

// combine returns wa*a + wb*b elementwise.
func combine(a, b []float64, wa, wb float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = wa*a[i] + wb*b[i]
	}
	return out
}

package interp_test

import (
	"math"
	"testing"

	"ocv-diagnostics/internal/interp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPCHIP_KnotExactness verifies that evaluating at any input knot
// reproduces that knot's y value.
func TestPCHIP_KnotExactness(t *testing.T) {
	xs := []float64{0, 0.1, 0.35, 0.5, 0.82, 1.0}
	ys := []float64{4.2, 4.05, 3.9, 3.7, 3.4, 3.0}

	p, err := interp.New(xs, ys)
	require.NoError(t, err)

	for i := range xs {
		assert.InDelta(t, ys[i], p.Eval(xs[i]), 1e-12, "knot %d", i)
	}
}

// TestPCHIP_Monotone checks that a monotone sample set yields a monotone
// interpolant between every pair of knots.
func TestPCHIP_Monotone(t *testing.T) {
	xs := []float64{0, 0.2, 0.25, 0.5, 0.9, 1.0}
	ys := []float64{0, 0.01, 0.5, 0.55, 0.9, 1.0}

	p, err := interp.New(xs, ys)
	require.NoError(t, err)

	prev := math.Inf(-1)
	for x := 0.0; x <= 1.0; x += 1e-3 {
		y := p.Eval(x)
		assert.GreaterOrEqual(t, y+1e-12, prev, "non-monotone at x=%g", x)
		prev = y
	}
}

// TestPCHIP_NoOvershootAtExtremum: a local maximum in the data must not be
// exceeded between knots.
func TestPCHIP_NoOvershootAtExtremum(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{0, 1, 2, 1, 0}

	p, err := interp.New(xs, ys)
	require.NoError(t, err)

	for x := 0.0; x <= 4.0; x += 1e-3 {
		assert.LessOrEqual(t, p.Eval(x), 2.0+1e-12)
		assert.GreaterOrEqual(t, p.Eval(x), 0.0-1e-12)
	}
}

// TestPCHIP_LinearExtrapolation: outside the domain the interpolant follows
// the boundary segment's secant slope.
func TestPCHIP_LinearExtrapolation(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 2, 3}

	p, err := interp.New(xs, ys)
	require.NoError(t, err)

	// Left secant slope is 2, right secant slope is 1.
	assert.InDelta(t, -2.0, p.Eval(-1), 1e-12)
	assert.InDelta(t, 4.0, p.Eval(3), 1e-12)
}

// TestPCHIP_TwoPoints: two knots degenerate to the straight line.
func TestPCHIP_TwoPoints(t *testing.T) {
	p, err := interp.New([]float64{0, 2}, []float64{1, 5})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, p.Eval(1), 1e-12)
}

func TestPCHIP_Errors(t *testing.T) {
	_, err := interp.New([]float64{0}, []float64{1})
	assert.ErrorIs(t, err, interp.ErrInsufficientData)

	_, err = interp.New([]float64{0, 1, 1}, []float64{0, 1, 2})
	assert.ErrorIs(t, err, interp.ErrNotIncreasing)

	_, err = interp.New([]float64{0, 2, 1}, []float64{0, 1, 2})
	assert.ErrorIs(t, err, interp.ErrNotIncreasing)

	_, err = interp.New([]float64{0, 1}, []float64{0, 1, 2})
	assert.Error(t, err)
}

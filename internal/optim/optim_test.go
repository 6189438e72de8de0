package optim_test

import (
	"math"
	"testing"

	"ocv-diagnostics/internal/optim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRand_Deterministic: equal seeds produce equal sequences, different seeds
// diverge.
func TestRand_Deterministic(t *testing.T) {
	a := optim.NewRand(42)
	b := optim.NewRand(42)
	c := optim.NewRand(7)

	var diverged bool
	for i := 0; i < 100; i++ {
		va := a.Float64()
		assert.Equal(t, va, b.Float64(), "draw %d", i)
		assert.GreaterOrEqual(t, va, 0.0)
		assert.Less(t, va, 1.0)
		if va != c.Float64() {
			diverged = true
		}
	}
	assert.True(t, diverged, "distinct seeds must produce distinct streams")
}

// TestNelderMead_Quadratic: a separable quadratic is minimized to its interior
// optimum.
func TestNelderMead_Quadratic(t *testing.T) {
	f := func(x []float64) float64 {
		return (x[0]-0.3)*(x[0]-0.3) + 2*(x[1]-0.6)*(x[1]-0.6)
	}
	lo := []float64{0, 0}
	hi := []float64{1, 1}

	o := optim.DefaultNMOptions()
	o.MaxIter = 500
	o.Tol = 1e-12
	res := optim.NelderMead(f, []float64{0.9, 0.1}, lo, hi, o)

	assert.InDelta(t, 0.3, res.X[0], 1e-4)
	assert.InDelta(t, 0.6, res.X[1], 1e-4)
	assert.Less(t, res.F, 1e-7)
}

// TestNelderMead_BoundaryOptimum: when the unconstrained optimum lies outside
// the box, the clamped search settles on the boundary.
func TestNelderMead_BoundaryOptimum(t *testing.T) {
	f := func(x []float64) float64 {
		return (x[0]+0.5)*(x[0]+0.5) + (x[1]-0.5)*(x[1]-0.5)
	}
	o := optim.DefaultNMOptions()
	o.MaxIter = 500
	res := optim.NelderMead(f, []float64{0.8, 0.8}, []float64{0, 0}, []float64{1, 1}, o)

	assert.InDelta(t, 0.0, res.X[0], 1e-3)
	assert.InDelta(t, 0.5, res.X[1], 1e-3)
	for i := range res.X {
		require.GreaterOrEqual(t, res.X[i], 0.0)
		require.LessOrEqual(t, res.X[i], 1.0)
	}
}

// TestNelderMead_MinIterFloor: the iteration cap is never below 20.
func TestNelderMead_MinIterFloor(t *testing.T) {
	calls := 0
	f := func(x []float64) float64 {
		calls++
		return math.Abs(x[0] - 0.40001)
	}
	res := optim.NelderMead(f, []float64{0.9}, []float64{0}, []float64{1}, optim.NMOptions{MaxIter: 1, Tol: 1e-15})
	assert.LessOrEqual(t, res.Iters, 20)
	assert.Greater(t, calls, 2)
	assert.InDelta(t, 0.40001, res.X[0], 0.05)
}

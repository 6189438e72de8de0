package cell_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"ocv-diagnostics/internal/cell"
	"ocv-diagnostics/internal/halfcell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic electrode curves: a smooth NMC-like positive and an
// exponentially-relaxing graphite-like negative.
func peVoltage(sol float64) float64 { return 4.35 - 1.2*sol + 0.3*sol*sol }
func neVoltage(sol float64) float64 { return 0.1 + 0.6*math.Exp(-4*sol) }

func sampleCurve(t *testing.T, f func(float64) float64) *halfcell.Curve {
	t.Helper()
	var b strings.Builder
	for i := 0; i <= 200; i++ {
		sol := float64(i) / 200
		fmt.Fprintf(&b, "%.10f,%.10f\n", sol, f(sol))
	}
	c, err := halfcell.Parse(b.String())
	require.NoError(t, err)
	return c
}

func testEndpoints() cell.Endpoints {
	return cell.Endpoints{
		SolPEEoC: 0.05, SolPEEoD: 0.95,
		SolNEEoC: 0.85, SolNEEoD: 0.05,
	}
}

func buildPristine(t *testing.T, gridPoints int) *cell.Pristine {
	t.Helper()
	pr, err := cell.BuildPristine("test-cell", sampleCurve(t, peVoltage), sampleCurve(t, neVoltage), testEndpoints(), gridPoints)
	require.NoError(t, err)
	return pr
}

func TestBuildPristine_Basics(t *testing.T) {
	pr := buildPristine(t, 0)

	assert.Len(t, pr.XGrid, cell.DefaultGridPoints)
	assert.Equal(t, pr.OCVCell[0], pr.VMax)
	assert.Equal(t, pr.OCVCell[len(pr.OCVCell)-1], pr.VMin)
	assert.Greater(t, pr.VMax, pr.VMin)

	// SOL maps hit the endpoints exactly.
	assert.InDelta(t, 0.05, pr.SolPEFromX(0), 1e-12)
	assert.InDelta(t, 0.95, pr.SolPEFromX(1), 1e-12)
	assert.InDelta(t, 0.85, pr.SolNEFromX(0), 1e-12)
	assert.InDelta(t, 0.05, pr.SolNEFromX(1), 1e-12)

	// Cell curve matches the electrode difference at the grid points.
	mid := len(pr.XGrid) / 2
	assert.InDelta(t, pr.OCVPE[mid]-pr.OCVNE[mid], pr.OCVCell[mid], 1e-12)
}

func TestBuildPristine_ElectrodeValidRanges(t *testing.T) {
	pr := buildPristine(t, 101)

	// PE: SOL domain [0,1] mapped through eoc=0.05, eod=0.95.
	assert.InDelta(t, (0.0-0.05)/0.9, pr.PEValid.Lo, 1e-12)
	assert.InDelta(t, (1.0-0.05)/0.9, pr.PEValid.Hi, 1e-12)
	// NE map is decreasing, so the range must come out ordered.
	assert.Less(t, pr.NEValid.Lo, pr.NEValid.Hi)
	assert.True(t, pr.NEValid.Contains(0.5))
}

func TestBuildPristine_EndpointValidation(t *testing.T) {
	pe := sampleCurve(t, peVoltage)
	ne := sampleCurve(t, neVoltage)

	ep := testEndpoints()
	ep.SolPEEoD = ep.SolPEEoC
	_, err := cell.BuildPristine("bad", pe, ne, ep, 0)
	assert.Error(t, err)

	ep = testEndpoints()
	ep.SolNEEoC = math.NaN()
	_, err = cell.BuildPristine("bad", pe, ne, ep, 0)
	assert.Error(t, err)
}

// TestComputeDegraded_ZeroDegradationIdentity: with no degradation the solved
// window is exactly [0,1] and the degraded curve equals the pristine curve.
func TestComputeDegraded_ZeroDegradationIdentity(t *testing.T) {
	pr := buildPristine(t, 501)

	d, err := cell.ComputeDegraded(pr, cell.Params{}, 501)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, d.DeltaXEoC, 1e-12)
	assert.InDelta(t, 0.0, d.DeltaXEoD, 1e-12)
	assert.InDelta(t, 0.0, d.XCellEoC, 1e-12)
	assert.InDelta(t, 1.0, d.XCellEoD, 1e-12)
	assert.InDelta(t, 1.0, d.CellCapacity, 1e-12)

	require.Len(t, d.OCVCell, len(pr.OCVCell))
	for i := range d.OCVCell {
		assert.InDelta(t, pr.OCVCell[i], d.OCVCell[i], 1e-9, "point %d", i)
	}
}

func TestComputeDegraded_Infeasible(t *testing.T) {
	pr := buildPristine(t, 101)

	_, err := cell.ComputeDegraded(pr, cell.Params{LLI: 0.05, LAMPE: 1.0, LAMNE: 0.02}, 101)
	assert.ErrorIs(t, err, cell.ErrInfeasibleDegradation)

	_, err = cell.ComputeDegraded(pr, cell.Params{LLI: 0.05, LAMPE: 0.02, LAMNE: 1.0}, 101)
	assert.ErrorIs(t, err, cell.ErrInfeasibleDegradation)
}

func TestComputeDegraded_ModerateDegradation(t *testing.T) {
	pr := buildPristine(t, 1001)

	params := cell.Params{LLI: 0.05, LAMPE: 0.03, LAMNE: 0.02}
	d, err := cell.ComputeDegraded(pr, params, 401)
	require.NoError(t, err)

	assert.Greater(t, d.XCellEoD, d.XCellEoC)
	assert.Less(t, d.CellCapacity, 1.0)
	assert.InDelta(t, 1-params.LLI+d.DeltaXEoD, d.XCellEoD, 1e-12)

	// The solved window reproduces the pristine voltage limits at its ends.
	require.Len(t, d.OCVCell, 401)
	assert.InDelta(t, pr.VMax, d.OCVCell[0], 1e-7)
	assert.InDelta(t, pr.VMin, d.OCVCell[len(d.OCVCell)-1], 1e-7)
}

func TestBuildPlotAxis(t *testing.T) {
	pr := buildPristine(t, 101)
	d, err := cell.ComputeDegraded(pr, cell.Params{LLI: 0.1}, 101)
	require.NoError(t, err)

	axis := cell.BuildPlotAxis(pr, d, false)
	require.Len(t, axis, 101)
	assert.LessOrEqual(t, axis[0], math.Min(0, d.XCellEoC))
	assert.GreaterOrEqual(t, axis[len(axis)-1], 1.0)

	padded := cell.BuildPlotAxis(pr, d, true)
	assert.Less(t, padded[0], axis[0])
	assert.Greater(t, padded[len(padded)-1], axis[len(axis)-1])
}

func TestMapCurves(t *testing.T) {
	pr := buildPristine(t, 101)
	d, err := cell.ComputeDegraded(pr, cell.Params{LLI: 0.05, LAMPE: 0.03, LAMNE: 0.02}, 101)
	require.NoError(t, err)

	axis := cell.BuildPlotAxis(pr, d, true)
	m := cell.MapCurves(pr, d, axis)

	require.Len(t, m.PristineCell.OCV, len(axis))
	require.NotNil(t, m.DegradedCell)

	for i, x := range axis {
		if x < 0 || x > 1 {
			assert.False(t, m.PristineCell.Valid[i])
			assert.True(t, math.IsNaN(m.PristineCell.OCV[i]))
		} else {
			assert.True(t, m.PristineCell.Valid[i])
		}
		if m.DegradedCell.Valid[i] {
			assert.False(t, math.IsNaN(m.DegradedCell.OCV[i]))
			assert.True(t, x >= d.XCellEoC-1e-12 && x <= d.XCellEoD+1e-12)
		}
	}
}

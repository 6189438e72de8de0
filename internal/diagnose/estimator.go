package diagnose

import (
	"fmt"
	"math"

	"ocv-diagnostics/internal/cell"
	"ocv-diagnostics/internal/optim"
)

// objectivePenalty is returned for infeasible or non-finite trial parameters
// so the simplex search steers back into the feasible region.
const objectivePenalty = 1e6

// Options configures a diagnostics fit. Zero values select the defaults.
type Options struct {
	// GradientLimit is the flat-region slope threshold in V per SOC %.
	GradientLimit float64
	// NumStarts is the number of random starts on top of the fixed baseline.
	NumStarts int
	// MaxIter caps each simplex run (minimum 20 enforced).
	MaxIter int
	// Seed drives the start-point generator; equal seeds reproduce fits.
	Seed int64
	// OutputGrid is the forward model's curve resolution (profile default
	// when <= 0).
	OutputGrid int
	// CapacityNormalized marks measured capacity as pre-normalized to [0,1];
	// it is then rescaled by each candidate's cell capacity.
	CapacityNormalized bool
}

func (o Options) withDefaults() Options {
	if o.GradientLimit <= 0 {
		o.GradientLimit = 0.1
	}
	if o.NumStarts <= 0 {
		o.NumStarts = 100
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 200
	}
	if o.MaxIter < 20 {
		o.MaxIter = 20
	}
	return o
}

// Result is a completed diagnostics fit.
type Result struct {
	Theta cell.Params
	RMSE  float64

	MaskFlat []bool
	NumFlat  int

	// Predicted is the best-fit degraded OCV evaluated at each measured
	// capacity point.
	Predicted []float64

	// Degraded is the forward model re-evaluated at Theta for presentation.
	Degraded *cell.Degraded

	StartsTried     int
	StartsSucceeded int
}

// baselineStart is always tried before any random start.
var baselineStart = [3]float64{0.1, 0.1, 0.1}

// Estimate fits degradation parameters to a measured OCV curve against the
// given pristine cell.
func Estimate(pr *cell.Pristine, m *Measured, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if m == nil || m.Len() < 3 {
		return nil, ErrInsufficientData
	}
	grid := opts.OutputGrid
	if grid <= 0 {
		grid = len(pr.XGrid)
	}

	mask := FlatMask(m.Capacity, m.OCV, opts.GradientLimit)
	if !anyTrue(mask) {
		return nil, fmt.Errorf("%w (limit %g over %d points)", ErrNoFlatRegion, opts.GradientLimit, m.Len())
	}

	objective := func(theta []float64) float64 {
		params := clampParams(theta)
		d, err := cell.ComputeDegraded(pr, params, grid)
		if err != nil {
			return objectivePenalty
		}
		pred := predictAtMeasured(d, m, opts.CapacityNormalized)
		rmse := maskedRMSE(pred, m.OCV, mask)
		if math.IsNaN(rmse) || math.IsInf(rmse, 0) {
			return objectivePenalty
		}
		return rmse
	}

	lo := []float64{0, 0, 0}
	hi := []float64{1, 1, 1}
	nmOpts := optim.NMOptions{Step: 0.08, Tol: 1e-6, MaxIter: opts.MaxIter}
	rng := optim.NewRand(opts.Seed)

	var bestX []float64
	bestF := math.Inf(1)
	succeeded := 0

	runStart := func(x0 []float64) {
		res := optim.NelderMead(objective, x0, lo, hi, nmOpts)
		if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
			return
		}
		succeeded++
		if res.F < bestF {
			bestF = res.F
			bestX = res.X
		}
	}

	runStart(baselineStart[:])
	for s := 0; s < opts.NumStarts; s++ {
		runStart([]float64{rng.Float64(), rng.Float64(), rng.Float64()})
	}

	// The penalty value is finite, so "succeeded" alone does not mean a fit
	// was found; a best stuck at the penalty means every start failed.
	if bestX == nil || bestF >= objectivePenalty {
		return nil, fmt.Errorf("%w (%d starts)", ErrOptimizerFailed, opts.NumStarts+1)
	}

	theta := clampParams(bestX)
	degraded, err := cell.ComputeDegraded(pr, theta, grid)
	if err != nil {
		return nil, fmt.Errorf("diagnose: re-evaluating best fit: %w", err)
	}

	return &Result{
		Theta:           theta,
		RMSE:            bestF,
		MaskFlat:        mask,
		NumFlat:         countTrue(mask),
		Predicted:       predictAtMeasured(degraded, m, opts.CapacityNormalized),
		Degraded:        degraded,
		StartsTried:     opts.NumStarts + 1,
		StartsSucceeded: succeeded,
	}, nil
}

// predictAtMeasured interpolates the degraded curve onto the measured capacity
// samples. The degraded axis is shifted so capacity starts at zero; when the
// measurement is normalized to [0,1] it is rescaled by the candidate cell
// capacity first.
func predictAtMeasured(d *cell.Degraded, m *Measured, normalized bool) []float64 {
	axis := make([]float64, len(d.CapacityNorm))
	for i, x := range d.CapacityNorm {
		axis[i] = x - d.XCellEoC
	}
	out := make([]float64, m.Len())
	for i, c := range m.Capacity {
		if normalized {
			c *= d.CellCapacity
		}
		out[i] = cell.InterpLinear(axis, d.OCVCell, c)
	}
	return out
}

func maskedRMSE(pred, obs []float64, mask []bool) float64 {
	var sum float64
	var n int
	for i := range pred {
		if !mask[i] {
			continue
		}
		e := pred[i] - obs[i]
		sum += e * e
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n))
}

func clampParams(theta []float64) cell.Params {
	return cell.Params{
		LLI:   clamp01(theta[0]),
		LAMPE: clamp01(theta[1]),
		LAMNE: clamp01(theta[2]),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

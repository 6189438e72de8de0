package cell

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInfeasibleDegradation is returned when a LAM parameter leaves no
	// active material (1-LAM <= 0).
	ErrInfeasibleDegradation = errors.New("cell: degradation parameters are infeasible")
	// ErrNoConvergence is returned when the Newton solve for the degraded
	// window fails.
	ErrNoConvergence = errors.New("cell: degraded-window solve did not converge")
	// ErrInvalidWindow is returned when the solved degraded window is empty or
	// non-finite.
	ErrInvalidWindow = errors.New("cell: degraded capacity window is invalid")
)

// Params is a degradation hypothesis: loss of lithium inventory and loss of
// active material per electrode, each a fraction in [0,1).
type Params struct {
	LLI   float64
	LAMPE float64
	LAMNE float64
}

// Feasible reports whether both electrodes retain active material.
func (p Params) Feasible() bool {
	return 1-p.LAMPE > 0 && 1-p.LAMNE > 0
}

// Degraded is the forward model's output: the solved utilization window and
// the degraded full-cell OCV curve over normalized pristine capacity.
type Degraded struct {
	Params Params

	DeltaXEoC float64
	DeltaXEoD float64

	XCellEoC     float64
	XCellEoD     float64
	CellCapacity float64

	// Electrode composition window endpoints after rescaling by 1/(1-LAM).
	XPEEoC float64
	XPEEoD float64
	XNEEoC float64
	XNEEoD float64

	// CapacityNorm holds positions on the pristine normalized-capacity axis;
	// OCVCell is the degraded full-cell voltage at each.
	CapacityNorm []float64
	OCVCell      []float64
}

// Newton solve constants. The initial guess (0,0) is canonical: the system can
// admit several roots and the zero start selects the physically meaningful one.
const (
	newtonTol      = 1e-10
	newtonMaxIter  = 60
	newtonFDStep   = 1e-6
	newtonMinDet   = 1e-14
	newtonMinStep  = 1e-3
)

// ComputeDegraded solves the degraded utilization window for the given
// parameters and samples the degraded OCV curve at numPoints
// (DefaultGridPoints when <= 0).
func ComputeDegraded(pr *Pristine, params Params, numPoints int) (*Degraded, error) {
	if !params.Feasible() {
		return nil, fmt.Errorf("%w: LAM_PE=%g LAM_NE=%g", ErrInfeasibleDegradation, params.LAMPE, params.LAMNE)
	}
	if numPoints <= 0 {
		numPoints = DefaultGridPoints
	}

	lli, lamPE, lamNE := params.LLI, params.LAMPE, params.LAMNE

	// Residuals pin the degraded curve's end voltages to the pristine V_max
	// and V_min through the rescaled electrode composition maps.
	residual := func(dxEoC, dxEoD float64) (float64, float64) {
		eqVmax := pr.VMax -
			pr.OCVPEFromX(dxEoC/(1-lamPE)) +
			pr.OCVNEFromX((dxEoC+lli-lamNE)/(1-lamNE))
		eqVmin := pr.VMin -
			pr.OCVPEFromX((dxEoD+1-lli)/(1-lamPE)) +
			pr.OCVNEFromX((dxEoD+1-lamNE)/(1-lamNE))
		return eqVmax, eqVmin
	}

	dxEoC, dxEoD, err := solveNewton2(residual)
	if err != nil {
		return nil, err
	}

	d := &Degraded{
		Params:    params,
		DeltaXEoC: dxEoC,
		DeltaXEoD: dxEoD,
		XCellEoC:  dxEoC,
		XCellEoD:  1 - lli + dxEoD,
		XPEEoC:    dxEoC / (1 - lamPE),
		XPEEoD:    (dxEoD + 1 - lli) / (1 - lamPE),
		XNEEoC:    (dxEoC + lli - lamNE) / (1 - lamNE),
		XNEEoD:    (dxEoD + 1 - lamNE) / (1 - lamNE),
	}

	if math.IsNaN(d.XCellEoC) || math.IsInf(d.XCellEoC, 0) ||
		math.IsNaN(d.XCellEoD) || math.IsInf(d.XCellEoD, 0) ||
		d.XCellEoD <= d.XCellEoC {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidWindow, d.XCellEoC, d.XCellEoD)
	}
	d.CellCapacity = d.XCellEoD - d.XCellEoC

	d.CapacityNorm = linspace(d.XCellEoC, d.XCellEoD, numPoints)
	d.OCVCell = make([]float64, numPoints)
	for i, xc := range d.CapacityNorm {
		frac := (xc - d.XCellEoC) / d.CellCapacity
		xPE := d.XPEEoC + frac*(d.XPEEoD-d.XPEEoC)
		xNE := d.XNEEoC + frac*(d.XNEEoD-d.XNEEoC)
		d.OCVCell[i] = pr.OCVPEFromX(xPE) - pr.OCVNEFromX(xNE)
	}

	return d, nil
}

// solveNewton2 runs a damped Newton iteration on a 2-equation system starting
// from (0,0): forward-difference Jacobian, Cramer's-rule solve, and a
// backtracking line search that halves the step until the residual norm
// strictly decreases.
func solveNewton2(residual func(a, b float64) (float64, float64)) (float64, float64, error) {
	a, b := 0.0, 0.0
	f1, f2 := residual(a, b)
	norm := math.Hypot(f1, f2)

	for iter := 0; iter < newtonMaxIter; iter++ {
		if norm < newtonTol {
			return a, b, nil
		}

		g1a, g2a := residual(a+newtonFDStep, b)
		g1b, g2b := residual(a, b+newtonFDStep)
		j11 := (g1a - f1) / newtonFDStep
		j21 := (g2a - f2) / newtonFDStep
		j12 := (g1b - f1) / newtonFDStep
		j22 := (g2b - f2) / newtonFDStep

		det := j11*j22 - j12*j21
		if math.Abs(det) < newtonMinDet {
			return 0, 0, fmt.Errorf("%w: singular Jacobian (det=%g) at iteration %d", ErrNoConvergence, det, iter)
		}
		// Cramer's rule for J*step = -f.
		stepA := (-f1*j22 + f2*j12) / det
		stepB := (-f2*j11 + f1*j21) / det

		accepted := false
		for lambda := 1.0; lambda >= newtonMinStep; lambda /= 2 {
			ta := a + lambda*stepA
			tb := b + lambda*stepB
			t1, t2 := residual(ta, tb)
			tn := math.Hypot(t1, t2)
			if tn < norm {
				a, b = ta, tb
				f1, f2 = t1, t2
				norm = tn
				accepted = true
				break
			}
		}
		if !accepted {
			return 0, 0, fmt.Errorf("%w: line search stalled (residual=%g) at iteration %d", ErrNoConvergence, norm, iter)
		}
	}

	if norm < newtonTol {
		return a, b, nil
	}
	return 0, 0, fmt.Errorf("%w: residual %g after %d iterations", ErrNoConvergence, norm, newtonMaxIter)
}

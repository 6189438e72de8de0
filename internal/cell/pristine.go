// Package cell builds full-cell OCV curves from half-cell electrode data and
// forward-simulates how degradation (LLI, LAM_PE, LAM_NE) reshapes them.
package cell

import (
	"errors"
	"fmt"
	"math"

	"ocv-diagnostics/internal/halfcell"
	"ocv-diagnostics/internal/interp"
)

// DefaultGridPoints is the default resolution of the normalized-capacity grid.
const DefaultGridPoints = 1001

// Endpoints are the electrode SOL values bounding the pristine cell's usable
// window. x=0 corresponds to end-of-charge, x=1 to end-of-discharge.
type Endpoints struct {
	SolPEEoC float64
	SolPEEoD float64
	SolNEEoC float64
	SolNEEoD float64
}

func (e Endpoints) validate() error {
	for _, v := range []float64{e.SolPEEoC, e.SolPEEoD, e.SolNEEoC, e.SolNEEoD} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("cell: SOL endpoints must be finite")
		}
	}
	if e.SolPEEoC == e.SolPEEoD {
		return errors.New("cell: PE EoC and EoD endpoints must differ")
	}
	if e.SolNEEoC == e.SolNEEoD {
		return errors.New("cell: NE EoC and EoD endpoints must differ")
	}
	return nil
}

// XRange is a closed interval on the normalized-capacity axis.
type XRange struct {
	Lo float64
	Hi float64
}

// Contains reports whether x lies inside the range.
func (r XRange) Contains(x float64) bool { return x >= r.Lo && x <= r.Hi }

// Pristine is a fully built undegraded cell: both electrode interpolants, the
// SOL endpoint maps, and the sampled full-cell OCV curve over x in [0,1].
// It is immutable after construction and safe to share across fits.
type Pristine struct {
	ProfileID string
	Endpoints Endpoints

	PE *interp.PCHIP
	NE *interp.PCHIP

	XGrid   []float64
	OCVPE   []float64
	OCVNE   []float64
	OCVCell []float64

	VMax float64
	VMin float64

	// Normalized-x ranges over which each electrode's own CSV covers the SOL
	// query without extrapolation. Used for display masking only.
	PEValid XRange
	NEValid XRange
}

// BuildPristine combines two parsed half-cell curves and SOL endpoints into a
// pristine full-cell OCV curve sampled at gridPoints (DefaultGridPoints when
// <= 0).
func BuildPristine(profileID string, pe, ne *halfcell.Curve, ep Endpoints, gridPoints int) (*Pristine, error) {
	if err := ep.validate(); err != nil {
		return nil, err
	}
	if gridPoints <= 0 {
		gridPoints = DefaultGridPoints
	}
	if gridPoints < 2 {
		return nil, fmt.Errorf("cell: grid needs at least 2 points (got %d)", gridPoints)
	}

	peInterp, err := pe.Interpolant()
	if err != nil {
		return nil, fmt.Errorf("cell: PE curve: %w", err)
	}
	neInterp, err := ne.Interpolant()
	if err != nil {
		return nil, fmt.Errorf("cell: NE curve: %w", err)
	}

	p := &Pristine{
		ProfileID: profileID,
		Endpoints: ep,
		PE:        peInterp,
		NE:        neInterp,
		XGrid:     linspace(0, 1, gridPoints),
	}

	p.OCVPE = make([]float64, gridPoints)
	p.OCVNE = make([]float64, gridPoints)
	p.OCVCell = make([]float64, gridPoints)
	for i, x := range p.XGrid {
		p.OCVPE[i] = p.OCVPEFromX(x)
		p.OCVNE[i] = p.OCVNEFromX(x)
		p.OCVCell[i] = p.OCVPE[i] - p.OCVNE[i]
	}

	// x=0 is end-of-charge by definition, so the grid ends give the voltage
	// window directly.
	p.VMax = p.OCVCell[0]
	p.VMin = p.OCVCell[gridPoints-1]

	p.PEValid = inverseRange(ep.SolPEEoC, ep.SolPEEoD, pe.SolMin(), pe.SolMax())
	p.NEValid = inverseRange(ep.SolNEEoC, ep.SolNEEoD, ne.SolMin(), ne.SolMax())

	return p, nil
}

// SolPEFromX maps normalized composition to the PE state of lithiation.
func (p *Pristine) SolPEFromX(x float64) float64 {
	return p.Endpoints.SolPEEoC + x*(p.Endpoints.SolPEEoD-p.Endpoints.SolPEEoC)
}

// SolNEFromX maps normalized composition to the NE state of lithiation.
func (p *Pristine) SolNEFromX(x float64) float64 {
	return p.Endpoints.SolNEEoC + x*(p.Endpoints.SolNEEoD-p.Endpoints.SolNEEoC)
}

// OCVPEFromX evaluates the PE open-circuit voltage at normalized composition x.
func (p *Pristine) OCVPEFromX(x float64) float64 {
	return p.PE.Eval(p.SolPEFromX(x))
}

// OCVNEFromX evaluates the NE open-circuit voltage at normalized composition x.
func (p *Pristine) OCVNEFromX(x float64) float64 {
	return p.NE.Eval(p.SolNEFromX(x))
}

// inverseRange maps an electrode's sampled SOL domain back through the linear
// SOL(x) map, yielding the normalized-x interval that stays on measured data.
func inverseRange(eoc, eod, solMin, solMax float64) XRange {
	span := eod - eoc
	a := (solMin - eoc) / span
	b := (solMax - eoc) / span
	if a > b {
		a, b = b, a
	}
	return XRange{Lo: a, Hi: b}
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

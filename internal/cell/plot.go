package cell

import "math"

// CurveOnAxis is one curve resampled onto a shared plot axis. OCV holds NaN
// wherever the curve is not defined; Valid marks the defined points.
type CurveOnAxis struct {
	OCV   []float64
	Valid []bool
}

// MappedCurves carries every curve of a cell resampled onto one axis in
// pristine normalized-capacity units.
type MappedCurves struct {
	X []float64

	PristineCell CurveOnAxis
	PristinePE   CurveOnAxis
	PristineNE   CurveOnAxis

	// Degraded sections are nil when no degraded solution was supplied.
	DegradedCell *CurveOnAxis
	DegradedPE   *CurveOnAxis
	DegradedNE   *CurveOnAxis
}

// BuildPlotAxis returns a shared axis spanning the pristine [0,1] range and,
// when present, the degraded window. With pad, 2% of the span is added on each
// side so window edges stay visible.
func BuildPlotAxis(pr *Pristine, d *Degraded, pad bool) []float64 {
	xMin, xMax := pr.XGrid[0], pr.XGrid[len(pr.XGrid)-1]
	if d != nil {
		xMin = math.Min(xMin, d.XCellEoC)
		xMax = math.Max(xMax, d.XCellEoD)
	}
	n := len(pr.XGrid)
	if !pad {
		return linspace(xMin, xMax, n)
	}
	span := math.Max(1e-9, xMax-xMin)
	amt := 0.02 * span
	return linspace(xMin-amt, xMax+amt, n)
}

// MapCurves resamples the pristine (and, when given, degraded) curves onto
// xPlot. Points outside a curve's validity window are NaN. Degraded half-cell
// curves are additionally masked to each electrode's measured SOL domain.
func MapCurves(pr *Pristine, d *Degraded, xPlot []float64) *MappedCurves {
	m := &MappedCurves{X: append([]float64(nil), xPlot...)}

	m.PristineCell = resample(xPlot, pr.XGrid, pr.OCVCell, 0, 1)
	m.PristinePE = resample(xPlot, pr.XGrid, pr.OCVPE, 0, 1)
	m.PristineNE = resample(xPlot, pr.XGrid, pr.OCVNE, 0, 1)

	if d == nil {
		return m
	}

	degCell := resample(xPlot, d.CapacityNorm, d.OCVCell, d.XCellEoC, d.XCellEoD)
	m.DegradedCell = &degCell

	degPE := CurveOnAxis{OCV: nanSlice(len(xPlot)), Valid: make([]bool, len(xPlot))}
	degNE := CurveOnAxis{OCV: nanSlice(len(xPlot)), Valid: make([]bool, len(xPlot))}
	for i, x := range xPlot {
		if x < d.XCellEoC || x > d.XCellEoD {
			continue
		}
		frac := (x - d.XCellEoC) / d.CellCapacity
		xPE := d.XPEEoC + frac*(d.XPEEoD-d.XPEEoC)
		xNE := d.XNEEoC + frac*(d.XNEEoD-d.XNEEoC)
		if pr.PEValid.Contains(xPE) {
			degPE.OCV[i] = pr.OCVPEFromX(xPE)
			degPE.Valid[i] = true
		}
		if pr.NEValid.Contains(xNE) {
			degNE.OCV[i] = pr.OCVNEFromX(xNE)
			degNE.Valid[i] = true
		}
	}
	m.DegradedPE = &degPE
	m.DegradedNE = &degNE

	return m
}

// resample linearly interpolates (xs, ys) at each plot point inside [lo, hi];
// everything else is NaN.
func resample(xPlot, xs, ys []float64, lo, hi float64) CurveOnAxis {
	out := CurveOnAxis{OCV: nanSlice(len(xPlot)), Valid: make([]bool, len(xPlot))}
	for i, x := range xPlot {
		if x < lo || x > hi {
			continue
		}
		out.OCV[i] = InterpLinear(xs, ys, x)
		out.Valid[i] = true
	}
	return out
}

// InterpLinear evaluates piecewise-linear interpolation over sorted xs,
// extrapolating with the boundary segment slope outside the range.
func InterpLinear(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 1 {
		return ys[0]
	}
	i := searchSegment(xs, x)
	x0, x1 := xs[i], xs[i+1]
	y0, y1 := ys[i], ys[i+1]
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// searchSegment returns the index of the segment used to interpolate x,
// clamping to the boundary segments for out-of-range queries.
func searchSegment(xs []float64, x float64) int {
	n := len(xs)
	if x <= xs[0] {
		return 0
	}
	if x >= xs[n-1] {
		return n - 2
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

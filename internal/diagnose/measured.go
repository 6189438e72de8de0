// Package diagnose estimates degradation parameters (LLI, LAM_PE, LAM_NE)
// from a measured full-cell OCV curve by multistart simplex search over the
// forward degradation model.
package diagnose

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInsufficientData is returned when fewer than 3 finite measurement
	// points are available.
	ErrInsufficientData = errors.New("diagnose: need at least 3 finite measured points")
	// ErrNoFlatRegion is returned when no measured point passes the gradient
	// mask.
	ErrNoFlatRegion = errors.New("diagnose: no flat region below the gradient limit")
	// ErrOptimizerFailed is returned when no start produced a finite objective.
	ErrOptimizerFailed = errors.New("diagnose: no optimizer start produced a finite objective")
)

// Measured is a cleaned measured OCV curve, sorted ascending by capacity.
type Measured struct {
	Capacity []float64
	OCV      []float64
}

// NewMeasured filters non-finite pairs, sorts by capacity, and validates the
// minimum point count.
func NewMeasured(capacity, ocv []float64) (*Measured, error) {
	if len(capacity) != len(ocv) {
		return nil, fmt.Errorf("diagnose: capacity (%d) and ocv (%d) lengths differ", len(capacity), len(ocv))
	}

	type pair struct{ c, v float64 }
	pairs := make([]pair, 0, len(capacity))
	for i := range capacity {
		c, v := capacity[i], ocv[i]
		if math.IsNaN(c) || math.IsInf(c, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pairs = append(pairs, pair{c, v})
	}
	if len(pairs) < 3 {
		return nil, fmt.Errorf("%w (got %d)", ErrInsufficientData, len(pairs))
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].c < pairs[j].c })

	m := &Measured{
		Capacity: make([]float64, len(pairs)),
		OCV:      make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		m.Capacity[i] = p.c
		m.OCV[i] = p.v
	}
	return m, nil
}

// Len returns the number of measurement points.
func (m *Measured) Len() int { return len(m.Capacity) }

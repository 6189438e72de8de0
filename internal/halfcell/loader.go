// Package halfcell parses half-cell electrode OCV curves from two-column
// numeric text (SOL,OCV per line) into sorted, deduplicated sample sets.
package halfcell

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ocv-diagnostics/internal/interp"
)

// ErrInsufficientData is returned when fewer than 2 unique SOL values survive
// parsing.
var ErrInsufficientData = errors.New("halfcell: need at least 2 unique SOL points")

// Curve is one electrode's OCV vs. state-of-lithiation. SOL is strictly
// increasing; rows sharing a SOL value have been merged by averaging OCV.
type Curve struct {
	SOL []float64
	OCV []float64
}

// SolMin returns the smallest SOL sample.
func (c *Curve) SolMin() float64 { return c.SOL[0] }

// SolMax returns the largest SOL sample.
func (c *Curve) SolMax() float64 { return c.SOL[len(c.SOL)-1] }

// Interpolant fits a monotone cubic through the curve's samples.
func (c *Curve) Interpolant() (*interp.PCHIP, error) {
	return interp.New(c.SOL, c.OCV)
}

// Parse reads comma-separated SOL,OCV rows. Blank lines and rows whose first
// two columns do not both parse as finite numbers are discarded. Line endings
// may be LF, CRLF, or CR.
func Parse(text string) (*Curve, error) {
	type row struct{ sol, ocv float64 }
	var rows []row

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < 2 {
			continue
		}
		sol, err1 := strconv.ParseFloat(strings.TrimSpace(cols[0]), 64)
		ocv, err2 := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if math.IsNaN(sol) || math.IsInf(sol, 0) || math.IsNaN(ocv) || math.IsInf(ocv, 0) {
			continue
		}
		rows = append(rows, row{sol, ocv})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].sol < rows[j].sol })

	// Merge rows sharing an identical SOL by averaging their OCV values.
	c := &Curve{}
	for i := 0; i < len(rows); {
		j := i + 1
		sum := rows[i].ocv
		for j < len(rows) && rows[j].sol == rows[i].sol {
			sum += rows[j].ocv
			j++
		}
		c.SOL = append(c.SOL, rows[i].sol)
		c.OCV = append(c.OCV, sum/float64(j-i))
		i = j
	}

	if len(c.SOL) < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrInsufficientData, len(c.SOL))
	}
	return c, nil
}

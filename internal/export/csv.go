// Package export writes computed curves and fit results to CSV for use in
// spreadsheets and plotting tools.
package export

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"ocv-diagnostics/internal/cell"
	"ocv-diagnostics/internal/diagnose"
)

// WriteCurvesCSV writes the mapped curves, one row per plot-axis point.
// Points outside a curve's validity window are left empty.
func WriteCurvesCSV(path string, m *cell.MappedCurves) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"x",
		"pristine_cell",
		"pristine_pe",
		"pristine_ne",
	}
	hasDegraded := m.DegradedCell != nil
	if hasDegraded {
		header = append(header, "degraded_cell", "degraded_pe", "degraded_ne")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, x := range m.X {
		row := []string{
			fmtFloat(x),
			fmtFloat(m.PristineCell.OCV[i]),
			fmtFloat(m.PristinePE.OCV[i]),
			fmtFloat(m.PristineNE.OCV[i]),
		}
		if hasDegraded {
			row = append(row,
				fmtFloat(m.DegradedCell.OCV[i]),
				fmtFloat(m.DegradedPE.OCV[i]),
				fmtFloat(m.DegradedNE.OCV[i]),
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// WriteFitCSV writes measured vs predicted OCV, one row per measured point.
func WriteFitCSV(path string, m *diagnose.Measured, res *diagnose.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"capacity", "measured_ocv", "predicted_ocv", "flat", "residual"}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range m.Capacity {
		row := []string{
			fmtFloat(m.Capacity[i]),
			fmtFloat(m.OCV[i]),
			fmtFloat(res.Predicted[i]),
			strconv.FormatBool(res.MaskFlat[i]),
			fmtFloat(res.Predicted[i] - m.OCV[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtFloat(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}

package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// FloatList marshals a float slice to JSON with non-finite values encoded as
// null, so curves carrying NaN mask gaps survive serialization.
type FloatList []float64

// MarshalJSON implements json.Marshaler.
func (f FloatList) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(f)*8+2)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON implements json.Unmarshaler; nulls come back as NaN.
func (f *FloatList) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(FloatList, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*f = out
	return nil
}

// CurvesResponse represents the response from a curve computation
type CurvesResponse struct {
	PristineID string       `json:"pristine_id"`
	Pristine   PristineInfo `json:"pristine"`
	Degraded   DegradedInfo `json:"degraded,omitempty"`

	// PlotX is the shared plot axis; each curve below is mapped onto it with
	// nulls outside its valid range.
	PlotX  FloatList    `json:"plot_x"`
	Curves MappedCurves `json:"curves"`
}

// PristineInfo summarizes the pristine cell model
type PristineInfo struct {
	VMax      float64 `json:"v_max"`
	VMin      float64 `json:"v_min"`
	NumPoints int     `json:"num_points"`
}

// DegradedInfo summarizes the degraded cell model
type DegradedInfo struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`

	Degradation  *DegradationConfig `json:"degradation,omitempty"`
	CellCapacity float64            `json:"cell_capacity,omitempty"`
	XCellEoC     float64            `json:"x_cell_eoc,omitempty"`
	XCellEoD     float64            `json:"x_cell_eod,omitempty"`
}

// MappedCurves holds every curve evaluated on the shared plot axis
type MappedCurves struct {
	PristineCell FloatList `json:"pristine_cell"`
	PristinePE   FloatList `json:"pristine_pe"`
	PristineNE   FloatList `json:"pristine_ne"`
	DegradedCell FloatList `json:"degraded_cell,omitempty"`
	DegradedPE   FloatList `json:"degraded_pe,omitempty"`
	DegradedNE   FloatList `json:"degraded_ne,omitempty"`
}

// EstimateResponse represents the response from a diagnostics fit
type EstimateResponse struct {
	PristineID  string            `json:"pristine_id"`
	Degradation DegradationConfig `json:"degradation"`
	RMSE        float64           `json:"rmse"`

	CellCapacity float64 `json:"cell_capacity"`

	NumFlat         int    `json:"num_flat"`
	MaskFlat        []bool `json:"mask_flat"`
	StartsTried     int    `json:"starts_tried"`
	StartsSucceeded int    `json:"starts_succeeded"`

	MeasuredCapacity FloatList `json:"measured_capacity"`
	MeasuredOCV      FloatList `json:"measured_ocv"`
	PredictedOCV     FloatList `json:"predicted_ocv"`
}

// ProfileInfo represents one catalog entry
type ProfileInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NumPoints int    `json:"num_points"`
	Notes     string `json:"notes,omitempty"`
}

// ProfileListResponse represents the pristine catalog
type ProfileListResponse struct {
	Profiles []ProfileInfo `json:"profiles"`
}

// PoolItemInfo represents one saved degradation hypothesis
type PoolItemInfo struct {
	ID          string            `json:"id"`
	CreatedAt   string            `json:"created_at"`
	Label       string            `json:"label,omitempty"`
	PristineID  string            `json:"pristine_id"`
	Degradation DegradationConfig `json:"degradation"`
	Solver      map[string]any    `json:"solver,omitempty"`
}

// PoolListResponse represents the saved pool, newest first
type PoolListResponse struct {
	Items []PoolItemInfo `json:"items"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

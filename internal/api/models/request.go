package models

// CurvesRequest represents the request body for computing OCV curves
type CurvesRequest struct {
	PristineID  string             `json:"pristine_id" binding:"required"`
	Degradation *DegradationConfig `json:"degradation,omitempty"`
	Options     CurveOptions       `json:"options,omitempty"`
}

// DegradationConfig defines the degradation parameters for the forward model
type DegradationConfig struct {
	LLI   float64 `json:"lli"`
	LAMPE float64 `json:"lam_pe"`
	LAMNE float64 `json:"lam_ne"`
}

// CurveOptions contains optional curve computation parameters
type CurveOptions struct {
	NumPoints int     `json:"num_points,omitempty"` // grid resolution, 101-5001
	PlotPad   float64 `json:"plot_pad,omitempty"`   // plot axis padding fraction, default 0.02
}

// EstimateRequest represents the request body for a diagnostics fit
type EstimateRequest struct {
	PristineID string          `json:"pristine_id" binding:"required"`
	Measured   MeasuredConfig  `json:"measured" binding:"required"`
	Options    EstimateOptions `json:"options,omitempty"`
}

// MeasuredConfig carries the measured OCV curve, either inline or as a
// base64-encoded MAT file blob
type MeasuredConfig struct {
	Capacity []float64 `json:"capacity,omitempty"`
	OCV      []float64 `json:"ocv,omitempty"`
	MatBlob  string    `json:"mat_blob,omitempty"` // base64 MAT v5 file

	// CapacityNormalized marks capacity as already scaled to [0,1]
	CapacityNormalized bool `json:"capacity_normalized,omitempty"`
}

// EstimateOptions contains optional estimator parameters
type EstimateOptions struct {
	GradientLimit float64 `json:"gradient_limit,omitempty"` // V per SOC %, default 0.1
	NumStarts     int     `json:"num_starts,omitempty"`     // 1-5000, default 100
	MaxIter       int     `json:"max_iter,omitempty"`       // 20-20000, default 200
	NumPoints     int     `json:"num_points,omitempty"`     // 101-5001
	Seed          int64   `json:"seed,omitempty"`
}

// PoolSaveRequest represents a request to save a degradation hypothesis
type PoolSaveRequest struct {
	PristineID  string            `json:"pristine_id" binding:"required"`
	Degradation DegradationConfig `json:"degradation" binding:"required"`
	Label       string            `json:"label,omitempty"`
	Solver      map[string]any    `json:"solver,omitempty"`
}

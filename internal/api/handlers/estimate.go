package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"ocv-diagnostics/internal/api/models"
	"ocv-diagnostics/internal/config"
	"ocv-diagnostics/internal/diagnose"
	"ocv-diagnostics/internal/matfile"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
)

// EstimateHandler runs the degradation diagnostics fit
type EstimateHandler struct {
	catalog  *store.Catalog
	defaults config.FitConfig
}

// NewEstimateHandler creates a new estimate handler
func NewEstimateHandler(catalog *store.Catalog, defaults config.FitConfig) *EstimateHandler {
	return &EstimateHandler{catalog: catalog, defaults: defaults}
}

// EstimateDiagnostics handles POST /api/v1/diagnostics/estimate
func (h *EstimateHandler) EstimateDiagnostics(c *gin.Context) {
	var req models.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := validateEstimateOptions(req.Options); err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	p := profileOr404(c, h.catalog, req.PristineID)
	if p == nil {
		return
	}
	pr, err := h.catalog.BuildPristine(p, req.Options.NumPoints)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "PROFILE_LOAD_ERROR", err.Error())
		return
	}

	capacity, ocv, err := measuredVectors(req.Measured)
	if err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_MEASUREMENT", err.Error())
		return
	}
	m, err := diagnose.NewMeasured(capacity, ocv)
	if err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_MEASUREMENT", err.Error())
		return
	}

	opts := diagnose.Options{
		GradientLimit:      req.Options.GradientLimit,
		NumStarts:          req.Options.NumStarts,
		MaxIter:            req.Options.MaxIter,
		Seed:               req.Options.Seed,
		OutputGrid:         req.Options.NumPoints,
		CapacityNormalized: req.Measured.CapacityNormalized,
	}
	if opts.GradientLimit == 0 {
		opts.GradientLimit = h.defaults.GradientLimit
	}
	if opts.NumStarts == 0 {
		opts.NumStarts = h.defaults.NumStarts
	}
	if opts.MaxIter == 0 {
		opts.MaxIter = h.defaults.MaxIter
	}
	if opts.Seed == 0 {
		opts.Seed = h.defaults.Seed
	}

	res, err := diagnose.Estimate(pr, m, opts)
	if err != nil {
		switch {
		case errors.Is(err, diagnose.ErrInsufficientData):
			errJSON(c, http.StatusBadRequest, "INSUFFICIENT_DATA", err.Error())
		case errors.Is(err, diagnose.ErrNoFlatRegion):
			errJSON(c, http.StatusUnprocessableEntity, "NO_FLAT_REGION", err.Error())
		case errors.Is(err, diagnose.ErrOptimizerFailed):
			errJSON(c, http.StatusUnprocessableEntity, "OPTIMIZER_FAILED", err.Error())
		default:
			errJSON(c, http.StatusInternalServerError, "ESTIMATE_ERROR", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, models.EstimateResponse{
		PristineID: pr.ProfileID,
		Degradation: models.DegradationConfig{
			LLI:   res.Theta.LLI,
			LAMPE: res.Theta.LAMPE,
			LAMNE: res.Theta.LAMNE,
		},
		RMSE:             res.RMSE,
		CellCapacity:     res.Degraded.CellCapacity,
		NumFlat:          res.NumFlat,
		MaskFlat:         res.MaskFlat,
		StartsTried:      res.StartsTried,
		StartsSucceeded:  res.StartsSucceeded,
		MeasuredCapacity: m.Capacity,
		MeasuredOCV:      m.OCV,
		PredictedOCV:     res.Predicted,
	})
}

func validateEstimateOptions(o models.EstimateOptions) error {
	if o.GradientLimit < 0 {
		return fmt.Errorf("gradient_limit must be positive, got %g", o.GradientLimit)
	}
	if o.NumStarts != 0 && (o.NumStarts < 1 || o.NumStarts > 5000) {
		return fmt.Errorf("num_starts must be in [1, 5000], got %d", o.NumStarts)
	}
	if o.MaxIter != 0 && (o.MaxIter < 20 || o.MaxIter > 20000) {
		return fmt.Errorf("max_iter must be in [20, 20000], got %d", o.MaxIter)
	}
	if o.NumPoints != 0 && (o.NumPoints < 101 || o.NumPoints > 5001) {
		return fmt.Errorf("num_points must be in [101, 5001], got %d", o.NumPoints)
	}
	return nil
}

// measuredVectors extracts the measured curve from the request: inline vectors
// take precedence, otherwise a base64 MAT blob is decoded.
func measuredVectors(m models.MeasuredConfig) (capacity, ocv []float64, err error) {
	if len(m.Capacity) > 0 || len(m.OCV) > 0 {
		if len(m.Capacity) != len(m.OCV) {
			return nil, nil, fmt.Errorf("capacity and ocv lengths differ: %d vs %d", len(m.Capacity), len(m.OCV))
		}
		return m.Capacity, m.OCV, nil
	}
	if m.MatBlob == "" {
		return nil, nil, errors.New("either inline capacity/ocv vectors or mat_blob is required")
	}
	raw, err := base64.StdEncoding.DecodeString(m.MatBlob)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding mat_blob: %w", err)
	}
	doc, err := matfile.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return matfile.MeasuredVectors(doc)
}

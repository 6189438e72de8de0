package handlers

import (
	"errors"
	"net/http"

	"ocv-diagnostics/internal/api/models"
	"ocv-diagnostics/internal/cell"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
)

// CurveHandler computes pristine and degraded OCV curves
type CurveHandler struct {
	catalog *store.Catalog
}

// NewCurveHandler creates a new curve handler
func NewCurveHandler(catalog *store.Catalog) *CurveHandler {
	return &CurveHandler{catalog: catalog}
}

// ComputeCurves handles POST /api/v1/curves
func (h *CurveHandler) ComputeCurves(c *gin.Context) {
	var req models.CurvesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Options.NumPoints != 0 && (req.Options.NumPoints < 101 || req.Options.NumPoints > 5001) {
		errJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "num_points must be in [101, 5001]")
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

	resp := models.CurvesResponse{
		PristineID: pr.ProfileID,
		Pristine: models.PristineInfo{
			VMax:      pr.VMax,
			VMin:      pr.VMin,
			NumPoints: len(pr.XGrid),
		},
	}

	// A failed forward model still yields the pristine curves; the degraded
	// section just reports valid: false.
	var degraded *cell.Degraded
	if req.Degradation != nil {
		params := cell.Params{
			LLI:   req.Degradation.LLI,
			LAMPE: req.Degradation.LAMPE,
			LAMNE: req.Degradation.LAMNE,
		}
		d, err := cell.ComputeDegraded(pr, params, len(pr.XGrid))
		switch {
		case err == nil:
			degraded = d
			resp.Degraded = models.DegradedInfo{
				Valid:        true,
				Degradation:  req.Degradation,
				CellCapacity: d.CellCapacity,
				XCellEoC:     d.XCellEoC,
				XCellEoD:     d.XCellEoD,
			}
		case errors.Is(err, cell.ErrInfeasibleDegradation),
			errors.Is(err, cell.ErrNoConvergence),
			errors.Is(err, cell.ErrInvalidWindow):
			resp.Degraded = models.DegradedInfo{Valid: false, Error: err.Error()}
		default:
			errJSON(c, http.StatusInternalServerError, "MODEL_ERROR", err.Error())
			return
		}
	}

	pad := true
	if req.Options.PlotPad < 0 {
		pad = false
	}
	xPlot := cell.BuildPlotAxis(pr, degraded, pad)
	mapped := cell.MapCurves(pr, degraded, xPlot)

	resp.PlotX = xPlot
	resp.Curves = models.MappedCurves{
		PristineCell: mapped.PristineCell.OCV,
		PristinePE:   mapped.PristinePE.OCV,
		PristineNE:   mapped.PristineNE.OCV,
	}
	if mapped.DegradedCell != nil {
		resp.Curves.DegradedCell = mapped.DegradedCell.OCV
		resp.Curves.DegradedPE = mapped.DegradedPE.OCV
		resp.Curves.DegradedNE = mapped.DegradedNE.OCV
	}

	c.JSON(http.StatusOK, resp)
}

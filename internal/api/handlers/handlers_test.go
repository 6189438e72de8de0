package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ocv-diagnostics/internal/api/handlers"
	"ocv-diagnostics/internal/api/models"
	"ocv-diagnostics/internal/config"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeDataDir lays out a catalog with one analytic profile.
func writeDataDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pristine"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "halfcell"), 0o755))

	profile := `{
	  "id": "test-cell",
	  "name": "Analytic test cell",
	  "files": {"pe_csv": "halfcell/pe.csv", "ne_csv": "halfcell/ne.csv"},
	  "endpoints": {"sol_pe_eoc": 0.05, "sol_pe_eod": 0.95, "sol_ne_eoc": 0.85, "sol_ne_eod": 0.05},
	  "grid": {"num_points": 501}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "pristine", "test-cell.json"), []byte(profile), 0o644))

	var pe, ne bytes.Buffer
	for i := 0; i <= 200; i++ {
		sol := float64(i) / 200
		fmt.Fprintf(&pe, "%.10f,%.10f\n", sol, 4.35-1.2*sol+0.3*sol*sol)
		fmt.Fprintf(&ne, "%.10f,%.10f\n", sol, 0.1+0.6*math.Exp(-4*sol))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "halfcell", "pe.csv"), pe.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "halfcell", "ne.csv"), ne.Bytes(), 0o644))
	return root
}

func newRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	root := writeDataDir(t)
	catalog, err := store.LoadCatalog(root)
	require.NoError(t, err)
	pool := store.NewPool(root)

	router := gin.New()
	api := router.Group("/api/v1")
	api.GET("/profiles", handlers.NewProfileHandler(catalog).ListProfiles)
	api.POST("/curves", handlers.NewCurveHandler(catalog).ComputeCurves)
	api.POST("/diagnostics/estimate", handlers.NewEstimateHandler(catalog, config.Default().Fit).EstimateDiagnostics)
	poolHandler := handlers.NewPoolHandler(catalog, pool)
	api.POST("/pool", poolHandler.SaveItem)
	api.GET("/pool", poolHandler.ListItems)
	api.GET("/pool/:id", poolHandler.GetItem)
	return router, root
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListProfiles(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ProfileListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Profiles, 1)
	assert.Equal(t, "test-cell", resp.Profiles[0].ID)
	assert.Equal(t, 501, resp.Profiles[0].NumPoints)
}

func TestComputeCurves_PristineOnly(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/curves", models.CurvesRequest{
		PristineID: "test-cell",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CurvesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.PlotX, 501)
	assert.Len(t, resp.Curves.PristineCell, 501)
	assert.Empty(t, resp.Curves.DegradedCell)
	assert.Greater(t, resp.Pristine.VMax, resp.Pristine.VMin)

	// The padded axis extends past [0,1], so the edges must be null (NaN).
	assert.True(t, math.IsNaN(resp.Curves.PristineCell[0]))
	assert.True(t, math.IsNaN(resp.Curves.PristineCell[500]))
}

func TestComputeCurves_Degraded(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/curves", models.CurvesRequest{
		PristineID:  "test-cell",
		Degradation: &models.DegradationConfig{LLI: 0.05, LAMPE: 0.03, LAMNE: 0.02},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CurvesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded.Valid)
	assert.Greater(t, resp.Degraded.CellCapacity, 0.0)
	assert.Len(t, resp.Curves.DegradedCell, 501)
}

func TestComputeCurves_InfeasibleDegradation(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/curves", models.CurvesRequest{
		PristineID:  "test-cell",
		Degradation: &models.DegradationConfig{LLI: 0.1, LAMPE: 1.0, LAMNE: 1.0},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CurvesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Degraded.Valid)
	assert.NotEmpty(t, resp.Degraded.Error)
	assert.Empty(t, resp.Curves.DegradedCell, "pristine curves still returned")
	assert.Len(t, resp.Curves.PristineCell, 501)
}

func TestComputeCurves_UnknownProfile(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/curves", models.CurvesRequest{
		PristineID: "nope",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN_PROFILE", resp.Error.Code)
}

func TestEstimate_BadOptions(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/diagnostics/estimate", models.EstimateRequest{
		PristineID: "test-cell",
		Measured: models.MeasuredConfig{
			Capacity: []float64{0, 0.5, 1},
			OCV:      []float64{4.1, 3.6, 3.0},
		},
		Options: models.EstimateOptions{NumStarts: 100000},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimate_NoMeasurement(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/diagnostics/estimate", models.EstimateRequest{
		PristineID: "test-cell",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_MEASUREMENT", resp.Error.Code)
}

func TestPool_SaveListGet(t *testing.T) {
	router, _ := newRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/pool", models.PoolSaveRequest{
		PristineID:  "test-cell",
		Degradation: models.DegradationConfig{LLI: 0.05, LAMPE: 0.03, LAMNE: 0.02},
		Label:       "demo fit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved models.PoolItemInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.NotEmpty(t, saved.ID)

	w = doJSON(t, router, http.MethodGet, "/api/v1/pool", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.PoolListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, saved.ID, list.Items[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/v1/pool/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.PoolItemInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "demo fit", got.Label)
	assert.Equal(t, 0.05, got.Degradation.LLI)

	w = doJSON(t, router, http.MethodGet, "/api/v1/pool/deg_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

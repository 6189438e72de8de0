package handlers

import (
	"net/http"

	"ocv-diagnostics/internal/api/models"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the pristine-cell catalog
type ProfileHandler struct {
	catalog *store.Catalog
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(catalog *store.Catalog) *ProfileHandler {
	return &ProfileHandler{catalog: catalog}
}

// ListProfiles handles GET /api/v1/profiles
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profiles := h.catalog.List()
	out := make([]models.ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, models.ProfileInfo{
			ID:        p.ID,
			Name:      p.Name,
			NumPoints: p.GridPoints(),
			Notes:     p.Notes,
		})
	}
	c.JSON(http.StatusOK, models.ProfileListResponse{Profiles: out})
}

// errJSON writes an ErrorResponse with the given status and code.
func errJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: message},
	})
}

// profileOr404 resolves a pristine profile ID or writes the error response.
func profileOr404(c *gin.Context, catalog *store.Catalog, id string) *store.Profile {
	p := catalog.Get(id)
	if p == nil {
		errJSON(c, http.StatusNotFound, "UNKNOWN_PROFILE", "no pristine profile "+id)
	}
	return p
}

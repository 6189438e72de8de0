package handlers

import (
	"errors"
	"net/http"

	"ocv-diagnostics/internal/api/models"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
)

// PoolHandler manages the saved pool of degradation hypotheses
type PoolHandler struct {
	catalog *store.Catalog
	pool    *store.Pool
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(catalog *store.Catalog, pool *store.Pool) *PoolHandler {
	return &PoolHandler{catalog: catalog, pool: pool}
}

// SaveItem handles POST /api/v1/pool
func (h *PoolHandler) SaveItem(c *gin.Context) {
	var req models.PoolSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	p := profileOr404(c, h.catalog, req.PristineID)
	if p == nil {
		return
	}

	var item store.PoolItem
	item.Label = req.Label
	item.PristineID = req.PristineID
	item.PristineSnapshot = p
	item.Degradation.LLI = req.Degradation.LLI
	item.Degradation.LAMPE = req.Degradation.LAMPE
	item.Degradation.LAMNE = req.Degradation.LAMNE
	item.Solver = req.Solver

	saved, err := h.pool.Save(item)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "POOL_SAVE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusCreated, poolItemInfo(saved))
}

// ListItems handles GET /api/v1/pool
func (h *PoolHandler) ListItems(c *gin.Context) {
	items, err := h.pool.List()
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "POOL_LIST_ERROR", err.Error())
		return
	}
	out := make([]models.PoolItemInfo, 0, len(items))
	for _, it := range items {
		out = append(out, poolItemInfo(it))
	}
	c.JSON(http.StatusOK, models.PoolListResponse{Items: out})
}

// GetItem handles GET /api/v1/pool/:id
func (h *PoolHandler) GetItem(c *gin.Context) {
	id := c.Param("id")
	item, err := h.pool.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errJSON(c, http.StatusNotFound, "UNKNOWN_POOL_ITEM", err.Error())
			return
		}
		errJSON(c, http.StatusBadRequest, "POOL_LOAD_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, poolItemInfo(item))
}

func poolItemInfo(it *store.PoolItem) models.PoolItemInfo {
	return models.PoolItemInfo{
		ID:         it.ID,
		CreatedAt:  it.CreatedAt,
		Label:      it.Label,
		PristineID: it.PristineID,
		Degradation: models.DegradationConfig{
			LLI:   it.Degradation.LLI,
			LAMPE: it.Degradation.LAMPE,
			LAMNE: it.Degradation.LAMNE,
		},
		Solver: it.Solver,
	}
}

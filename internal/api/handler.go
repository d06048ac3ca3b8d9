// Package api exposes the dashboards over HTTP.
//
// Every projection route takes a snapshot identifier in the path and a
// selection state in the JSON body. State update routes are snapshot free:
// they only apply one user action and return the next state.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/regionstat/internal/catalog"
	"github.com/garyellow/regionstat/internal/ctxutil"
	"github.com/garyellow/regionstat/internal/dataset"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/selection"
	"github.com/garyellow/regionstat/internal/storage"
	"github.com/garyellow/regionstat/internal/view"
)

// MaxImportSize bounds the body of a dataset import.
const MaxImportSize = 32 << 20

// Handler serves the /api/v1 routes.
type Handler struct {
	catalog    *catalog.Catalog
	views      *view.Builder
	store      storage.DatasetRepository
	metrics    *metrics.Metrics
	log        *logger.Logger
	adminToken string
}

// Options configures a Handler. Catalog, Views and Logger are required.
// Without Store or AdminToken the admin routes are not registered.
type Options struct {
	Catalog    *catalog.Catalog
	Views      *view.Builder
	Store      storage.DatasetRepository
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	AdminToken string
}

// New creates a Handler.
func New(opts Options) *Handler {
	return &Handler{
		catalog:    opts.Catalog,
		views:      opts.Views,
		store:      opts.Store,
		metrics:    opts.Metrics,
		log:        opts.Logger.WithModule("api"),
		adminToken: opts.AdminToken,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")

	v1.GET("/snapshots", h.listSnapshots)
	v1.POST("/population/state", h.updatePopulationState)
	v1.POST("/supply/state", h.updateSupplyState)

	snap := v1.Group("/snapshots/:id")
	snap.GET("/regions", h.regions)
	snap.POST("/population/view", h.populationView)
	snap.GET("/population/table.html", h.populationTable)
	snap.GET("/supply/regions", h.supplyRegions)
	snap.POST("/supply/view", h.supplyView)
	snap.POST("/supply/export.xlsx", h.supplyWorkbook)
	snap.POST("/supply/chart.png", h.supplyChart)

	if h.store != nil && h.adminToken != "" {
		admin := v1.Group("/admin", adminAuthMiddleware(h.adminToken))
		admin.PUT("/snapshots/:id/:kind", h.importDataset)
	}
}

// snapshot resolves the :id path parameter and tags the request context.
func (h *Handler) snapshot(c *gin.Context) (*dataset.Snapshot, error) {
	id := c.Param("id")
	c.Request = c.Request.WithContext(ctxutil.WithSnapshotID(c.Request.Context(), id))
	return h.catalog.Get(c.Request.Context(), id)
}

func (h *Handler) listSnapshots(c *gin.Context) {
	infos, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if infos == nil {
		infos = []catalog.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": infos})
}

func (h *Handler) regions(c *gin.Context) {
	level, err := queryInt(c, "level", 1)
	if err != nil {
		h.fail(c, err)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	names, err := h.views.Regions(snap, level, c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshotId": snap.ID,
		"level":      level,
		"regions":    names,
	})
}

func (h *Handler) populationView(c *gin.Context) {
	state := selection.DefaultPopulationState()
	if err := bindOptionalJSON(c, &state); err != nil {
		h.fail(c, err)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	start := time.Now()
	v, err := h.views.Population(snap, state)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recordView("population", start)
	c.JSON(http.StatusOK, v)
}

// populationStateRequest pairs a state with one update to apply to it.
type populationStateRequest struct {
	State  *selection.PopulationState  `json:"state"`
	Update *selection.PopulationUpdate `json:"update" binding:"required"`
}

func (h *Handler) updatePopulationState(c *gin.Context) {
	var req populationStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domerrors.NewValidationError("body", err.Error()))
		return
	}
	state := selection.DefaultPopulationState()
	if req.State != nil {
		state = *req.State
	}

	next, err := selection.ApplyPopulation(state, *req.Update, h.views.Aliases())
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := next.Validate(h.views.Policy()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": next})
}

func (h *Handler) supplyRegions(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.views.SearchSupplyRegions(snap, c.Query("q"), c.QueryArray("exclude"), offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) supplyView(c *gin.Context) {
	v, ok := h.buildSupply(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

// buildSupply binds the supply state and projects it. On failure the
// response has already been written.
func (h *Handler) buildSupply(c *gin.Context) (*view.Supply, bool) {
	state := h.defaultSupplyState()
	if err := bindOptionalJSON(c, &state); err != nil {
		h.fail(c, err)
		return nil, false
	}
	if state.Regions == nil {
		state.Regions = []string{}
	}
	snap, err := h.snapshot(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}

	start := time.Now()
	v, err := h.views.Supply(snap, state)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	h.recordView("supply", start)
	return v, true
}

func (h *Handler) defaultSupplyState() selection.SupplyState {
	p := h.views.Policy().Views
	return selection.DefaultSupplyState(p.RegionYearStart, p.RegionYearCount)
}

type supplyStateRequest struct {
	State  *selection.SupplyState  `json:"state"`
	Update *selection.SupplyUpdate `json:"update" binding:"required"`
}

func (h *Handler) updateSupplyState(c *gin.Context) {
	var req supplyStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domerrors.NewValidationError("body", err.Error()))
		return
	}
	state := h.defaultSupplyState()
	if req.State != nil {
		state = *req.State
	}
	if state.Regions == nil {
		state.Regions = []string{}
	}

	next, err := selection.ApplySupply(state, *req.Update)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": next})
}

func (h *Handler) recordView(name string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordView(name, time.Since(start).Seconds())
	}
}

// bindOptionalJSON decodes the body into dst, keeping dst as is when the
// body is empty.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domerrors.NewValidationError("body", err.Error())
	}
	return nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domerrors.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

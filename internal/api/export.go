package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/export"
	"github.com/garyellow/regionstat/internal/selection"
)

// Chart names accepted by the PNG route.
const (
	chartRegionYear = "regionYear"
	chartTrend      = "trend"
)

// populationTable renders the explorer table as an HTML fragment. The state
// comes from the query string so the fragment can be linked or embedded.
func (h *Handler) populationTable(c *gin.Context) {
	state := selection.DefaultPopulationState()
	level, err := queryInt(c, "level", state.Level)
	if err != nil {
		h.fail(c, err)
		return
	}
	state = state.WithLevel(level).WithRegion(c.Query("region"), h.views.Aliases())
	if sortBy := c.Query("sort"); sortBy != "" {
		state = state.WithSort(sortBy)
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

	var buf bytes.Buffer
	if err := export.PopulationTable(&buf, v); err != nil {
		h.recordExport("html", err)
		h.fail(c, fmt.Errorf("render population table: %w", err))
		return
	}
	h.recordExport("html", nil)
	c.Data(http.StatusOK, export.ContentTypeHTML, buf.Bytes())
}

func (h *Handler) supplyWorkbook(c *gin.Context) {
	v, ok := h.buildSupply(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSupplyXLSX(&buf, v); err != nil {
		h.recordExport("xlsx", err)
		h.fail(c, fmt.Errorf("write supply workbook: %w", err))
		return
	}
	h.recordExport("xlsx", nil)

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="supply_%s.xlsx"`, v.SnapshotID))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// supplyChart renders one of the supply charts as PNG, chosen by the
// "chart" query parameter.
func (h *Handler) supplyChart(c *gin.Context) {
	name := c.DefaultQuery("chart", chartRegionYear)
	if name != chartRegionYear && name != chartTrend {
		h.fail(c, domerrors.NewValidationError("chart", fmt.Sprintf("unknown chart %q", name)))
		return
	}
	v, ok := h.buildSupply(c)
	if !ok {
		return
	}

	chart, title := v.RegionYear, "지역별 연도별 입주 물량"
	if name == chartTrend {
		chart, title = v.Trend, "연도별 공급 추이"
	}

	var buf bytes.Buffer
	if err := export.ChartPNG(&buf, chart, export.DefaultChartOptions(title)); err != nil {
		h.recordExport("png", err)
		h.fail(c, err)
		return
	}
	h.recordExport("png", nil)
	c.Data(http.StatusOK, export.ContentTypePNG, buf.Bytes())
}

func (h *Handler) recordExport(format string, err error) {
	if h.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	h.metrics.RecordExport(format, status)
}

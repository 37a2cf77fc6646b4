package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-insight/internal/config"
	"sales-insight/internal/models"
	"sales-insight/internal/services"
	"sales-insight/internal/ui/templates"
)

const maxZoneRows = 25

type SSEHandlers struct {
	analytics *services.Analytics
	dataset   config.DatasetConfig
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, dataset config.DatasetConfig, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		dataset:   dataset,
		logger:    logger,
	}
}

type dashboardSignals struct {
	Monthly  []models.MonthPoint `json:"monthly"`
	Forecast []models.MonthPoint `json:"forecast"`
}

// HandleDashboard analyses the configured dataset and patches every
// dashboard block. Failures replace the status line instead of the blocks.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ctx := r.Context()
	if h.dataset.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.dataset.AnalysisTimeout)
		defer cancel()
	}

	report, err := h.analytics.AnalyzeFile(ctx, h.dataset.CSVFile)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard analysis failed", "error", err, "file", h.dataset.CSVFile)
		h.patch(ctx, sse, templates.Status("Analysis failed: "+err.Error(), true))
		return
	}

	blocks := []templ.Component{
		templates.KPICards(report.KPIs),
		templates.HealthList(report.Health, report.Patterns.Messages),
		templates.StrategyList(report.Strategy, report.Board, report.Uplift),
		templates.ZoneTable(templates.IDProductZones, "Product zones", report.ProductZones, maxZoneRows),
		templates.ZoneTable(templates.IDRegionZones, "Region zones", report.RegionZones, maxZoneRows),
		templates.MonthlyTable(report.Monthly.Value, report.Seasonality.Projection.Value),
	}
	for _, c := range blocks {
		if !h.patch(ctx, sse, c) {
			return
		}
	}

	signals, err := json.Marshal(dashboardSignals{
		Monthly:  report.Monthly.Value,
		Forecast: report.Seasonality.Projection.Value,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.WarnContext(ctx, "patch signals", "error", err)
		return
	}

	status := fmt.Sprintf("%d rows analysed from %s", report.Rows, report.Source)
	h.patch(ctx, sse, templates.Status(status, false))

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := templates.Render(ctx, c)
	if err != nil {
		h.logger.ErrorContext(ctx, "render dashboard block", "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.WarnContext(ctx, "patch elements", "error", err)
		return false
	}
	return true
}

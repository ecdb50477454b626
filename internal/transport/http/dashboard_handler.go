package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bikedash/internal/config"
	apierrors "bikedash/internal/errors"
	"bikedash/internal/exporter"
	"bikedash/internal/infrastructure"
	customMiddleware "bikedash/internal/middleware"
	api "bikedash/pkg/contracts/api/v1"
)

// Response media types for chart and workbook downloads.
const (
	ContentTypePNG  = "image/png"
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// chart formats selected by the {chartID} suffix
const (
	formatJSON = "json"
	formatPNG  = "png"
	formatCSV  = "csv"
)

// DashboardHandler serves dashboards, charts and their exports for one
// dataset.
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *customMiddleware.ValidationMiddleware
	csv          *exporter.CSVWriter
	png          *exporter.PNGRenderer
	workbook     *exporter.WorkbookExporter
	metrics      *infrastructure.DashboardMetrics
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewDashboardHandler creates a dashboard handler. metrics may be nil.
func NewDashboardHandler(service DashboardServiceInterface, validator *customMiddleware.ValidationMiddleware, png *exporter.PNGRenderer, metrics *infrastructure.DashboardMetrics, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		csv:          exporter.NewCSVWriter(nil),
		png:          png,
		workbook:     exporter.NewWorkbookExporter(logger),
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Register adds the dashboard routes below a validated /{id} route.
func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/charts", h.ListCharts)
	r.Get("/charts/{chartID}", h.GetChart)
	r.Get("/export.xlsx", h.ExportWorkbook)
}

// parseQuery reads start, end and a comma separated charts list from the
// query string and validates them.
func (h *DashboardHandler) parseQuery(r *http.Request) (api.DashboardQuery, error) {
	values := r.URL.Query()
	q := api.DashboardQuery{
		Start: strings.TrimSpace(values.Get("start")),
		End:   strings.TrimSpace(values.Get("end")),
	}
	for _, raw := range values["charts"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.Charts = append(q.Charts, id)
			}
		}
	}

	if err := h.validator.ValidateStruct(q); err != nil {
		return q, err
	}
	catalog := h.service.Catalog()
	for i, id := range q.Charts {
		if _, err := catalog.Get(id); err != nil {
			return q, apierrors.ErrValidation("charts["+strconv.Itoa(i)+"]",
				fmt.Sprintf("Unknown chart %q", id))
		}
	}
	return q, nil
}

// GetDashboard handles GET /api/datasets/{id}/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dash, err := h.service.Build(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, dash)
}

// ListCharts handles GET /api/datasets/{id}/charts
func (h *DashboardHandler) ListCharts(w http.ResponseWriter, r *http.Request) {
	specs := h.service.Catalog().Specs()
	resp := api.ChartListResponse{Charts: make([]api.ChartSpecResponse, 0, len(specs))}
	for _, spec := range specs {
		resp.Charts = append(resp.Charts, api.ChartSpecResponse{
			ID:         spec.ID,
			Title:      spec.Title,
			Kind:       spec.Kind,
			Keys:       spec.Keys,
			Measures:   spec.Measures,
			Reducer:    spec.Reducer,
			XLabel:     spec.XLabel,
			YLabel:     spec.YLabel,
			ValueLabel: spec.ValueLabel,
		})
	}
	render.JSON(w, r, resp)
}

// splitChartID strips a .png or .csv suffix from the route parameter.
func splitChartID(param string) (string, string) {
	if id, ok := strings.CutSuffix(param, "."+formatPNG); ok {
		return id, formatPNG
	}
	if id, ok := strings.CutSuffix(param, "."+formatCSV); ok {
		return id, formatCSV
	}
	return param, formatJSON
}

// GetChart handles GET /api/datasets/{id}/charts/{chartID}, with the
// optional .png and .csv suffixes selecting an image or a table download.
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	chartID, format := splitChartID(chi.URLParam(r, "chartID"))
	path := api.ChartPathRequest{
		DatasetPathRequest: api.DatasetPathRequest{ID: chi.URLParam(r, "id")},
		ChartID:            chartID,
	}
	if err := h.validator.ValidateStruct(path); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	chart, err := h.service.Chart(r.Context(), path.ID, chartID, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch format {
	case formatPNG:
		var buf bytes.Buffer
		if err := h.png.Render(&buf, chart); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		h.writeBody(w, r, ContentTypePNG, "", buf.Bytes())
	case formatCSV:
		var buf bytes.Buffer
		if err := h.csv.WriteTable(&buf, chart.Table); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.writeBody(w, r, ContentTypeCSV, chartID+"."+formatCSV, buf.Bytes())
	default:
		render.JSON(w, r, chart)
	}
	h.metrics.RecordChartRender(r.Context(), chartID, format)
}

// ExportWorkbook handles GET /api/datasets/{id}/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dash, err := h.service.Build(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.workbook.Write(&buf, dash); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := config.ExportFileName("bikedash", "xlsx", dash.Range.Start, dash.Range.End, h.now())
	h.writeBody(w, r, ContentTypeXLSX, filename, buf.Bytes())
	for _, chart := range dash.Charts {
		h.metrics.RecordChartRender(r.Context(), chart.ID, "xlsx")
	}

	h.logger.InfoContext(r.Context(), "Workbook exported",
		slog.String("dataset_id", dash.Dataset.ID),
		slog.String("filename", filename),
		slog.Int("size", buf.Len()))
}

// writeBody sends a fully rendered download. A non-empty filename makes it
// an attachment.
func (h *DashboardHandler) writeBody(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write response body",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path))
	}
}

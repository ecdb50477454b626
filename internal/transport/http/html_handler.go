package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"bikedash/internal/services"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

// PageTemplate is the dashboard template inside the template filesystem.
const PageTemplate = "index.html"

// PageData is the view model of the dashboard page.
type PageData struct {
	Title     string
	Dashboard *domain.Dashboard
	Datasets  []domain.DatasetInfo
	Query     api.DashboardQuery
	Footer    domain.Footer
	Message   string
}

// PageHandler renders the dashboard page for the selected or latest dataset.
type PageHandler struct {
	tmpl       *template.Template
	datasets   DatasetServiceInterface
	dashboards DashboardServiceInterface
	logger     *slog.Logger
}

var pageFuncs = template.FuncMap{
	"date": func(r domain.DateRange, end bool) string {
		if r.IsZero() {
			return ""
		}
		if end {
			return r.End.Format(services.DateLayout)
		}
		return r.Start.Format(services.DateLayout)
	},
	"thousands": formatThousands,
	"delta": func(v float64) string {
		return fmt.Sprintf("%+.2f", v)
	},
	"chartURL": func(datasetID, chartID string, q api.DashboardQuery) string {
		return datasetURL(datasetID, "charts/"+url.PathEscape(chartID)+".png", q)
	},
	"datasetURL": datasetURL,
	"int64": func(v int) int64 { return int64(v) },
}

// NewPageHandler parses the page template from templates.
func NewPageHandler(templates fs.FS, datasets DatasetServiceInterface, dashboards DashboardServiceInterface, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.New(PageTemplate).Funcs(pageFuncs).ParseFS(templates, PageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &PageHandler{
		tmpl:       tmpl,
		datasets:   datasets,
		dashboards: dashboards,
		logger:     logger.With(slog.String("component", "page_handler")),
	}, nil
}

// ServeHTTP handles GET /. ?dataset= selects a dataset, ?start= and ?end=
// the range. Problems with the selection are shown on the page rather than
// as an error status.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()
	datasetID := values.Get("dataset")
	if datasetID == "" {
		datasetID = api.LatestDatasetID
	}

	data := PageData{
		Title:    "Dashboard Peminjaman Sepeda",
		Datasets: h.datasets.List(ctx),
		Query:    api.DashboardQuery{Start: values.Get("start"), End: values.Get("end")},
		Footer:   h.dashboards.Footer(),
	}

	dash, err := h.dashboards.Build(ctx, datasetID, data.Query)
	switch {
	case err == nil:
		data.Dashboard = dash
	case errors.Is(err, services.ErrNoDataset):
		data.Message = "Belum ada data. Unggah file CSV atau XLSX untuk memulai."
	case errors.Is(err, services.ErrDatasetNotFound):
		data.Message = "Dataset tidak ditemukan."
	case errors.Is(err, services.ErrInvalidRange):
		data.Message = "Rentang tanggal tidak valid."
	default:
		h.logger.ErrorContext(ctx, "Failed to build dashboard page",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("dataset_id", datasetID))
		data.Message = "Dashboard gagal dimuat."
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "Failed to render dashboard page",
			slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(buf.Bytes())
}

// datasetURL builds /api/datasets/<id>/<suffix> carrying the page's range.
func datasetURL(datasetID, suffix string, q api.DashboardQuery) string {
	values := url.Values{}
	if q.Start != "" {
		values.Set("start", q.Start)
	}
	if q.End != "" {
		values.Set("end", q.End)
	}
	u := "/api/datasets/" + url.PathEscape(datasetID) + "/" + suffix
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}

// formatThousands groups digits with dots, as the page's locale does.
func formatThousands(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

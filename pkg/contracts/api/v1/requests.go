// Package api contains the request and response contracts of the dashboard
// HTTP API. Version v1 is the current stable API version.
package api

import (
	"bikedash/pkg/contracts/domain"
)

// LatestDatasetID addresses the most recently loaded dataset in routes.
const LatestDatasetID = "latest"

// Dataset API Requests

// DashboardQuery selects the date range and charts of one render pass.
// Empty dates fall back to the dataset bounds, a lone Start selects that
// single day.
type DashboardQuery struct {
	Start  string   `json:"start,omitempty" query:"start" validate:"omitempty,date"`
	End    string   `json:"end,omitempty" query:"end" validate:"omitempty,date"`
	Charts []string `json:"charts,omitempty" query:"charts" validate:"omitempty,dive,required"`
}

// DatasetUploadRequest carries the optional form fields sent with an upload.
type DatasetUploadRequest struct {
	Name string `json:"name,omitempty" form:"name" validate:"omitempty,filename"`
}

// DatasetPathRequest identifies a dataset in a route.
type DatasetPathRequest struct {
	ID string `json:"id" param:"id" validate:"required,uuid|eq=latest"`
}

// ChartPathRequest identifies a chart of a dataset in a route.
type ChartPathRequest struct {
	DatasetPathRequest
	ChartID string `json:"chart_id" param:"chartID" validate:"required,max=64"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}

// Responses

// DatasetListResponse lists dataset metadata, newest first.
type DatasetListResponse struct {
	Datasets []domain.DatasetInfo `json:"datasets"`
	Count    int                  `json:"count"`
}

// ChartSpecResponse describes one enabled chart.
type ChartSpecResponse struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Kind       domain.ChartKind   `json:"kind"`
	Keys       []domain.Dimension `json:"keys"`
	Measures   []domain.Measure   `json:"measures"`
	Reducer    domain.Reducer     `json:"reducer"`
	XLabel     string             `json:"x_label,omitempty"`
	YLabel     string             `json:"y_label,omitempty"`
	ValueLabel string             `json:"value_label,omitempty"`
}

// ChartListResponse lists the enabled charts.
type ChartListResponse struct {
	Charts []ChartSpecResponse `json:"charts"`
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "bikedash/internal/errors"
	"bikedash/internal/shared/testutil"
	api "bikedash/pkg/contracts/api/v1"
)

func newTestValidation(t *testing.T) *ValidationMiddleware {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateStruct(t *testing.T) {
	v := newTestValidation(t)

	tests := []struct {
		name       string
		input      interface{}
		wantFields []string
	}{
		{
			name:  "empty query",
			input: api.DashboardQuery{},
		},
		{
			name:  "valid range",
			input: api.DashboardQuery{Start: "2011-01-01", End: "2011-12-31", Charts: []string{"weather_mean"}},
		},
		{
			name:       "bad dates",
			input:      api.DashboardQuery{Start: "2011-02-30", End: "tomorrow"},
			wantFields: []string{"start", "end"},
		},
		{
			name:       "blank chart id",
			input:      api.DashboardQuery{Charts: []string{""}},
			wantFields: []string{"charts[0]"},
		},
		{
			name:  "latest dataset",
			input: api.DatasetPathRequest{ID: api.LatestDatasetID},
		},
		{
			name:  "uuid dataset",
			input: api.DatasetPathRequest{ID: "0b6f1c8e-6d0a-4d4e-9b1e-3f2a1c9d7e55"},
		},
		{
			name:       "bogus dataset",
			input:      api.DatasetPathRequest{ID: "../etc"},
			wantFields: []string{"id"},
		},
		{
			name:       "path in upload name",
			input:      api.DatasetUploadRequest{Name: "../day.csv"},
			wantFields: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, apierrors.CodeValidationFailed, apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			var fields []string
			for _, fe := range details.Errors {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	v := newTestValidation(t)
	handler := v.ContentTypeValidator("multipart/form-data")(okHandler)

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "get passes", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "delete passes", method: http.MethodDelete, wantStatus: http.StatusOK},
		{name: "multipart with boundary", method: http.MethodPost, contentType: "multipart/form-data; boundary=xyz", wantStatus: http.StatusOK},
		{name: "missing", method: http.MethodPost, wantStatus: http.StatusBadRequest},
		{name: "json rejected", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusUnsupportedMediaType},
		{name: "garbage rejected", method: http.MethodPost, contentType: ";;", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/datasets", strings.NewReader("x"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, rec.Header().Get("Content-Type"), "json")
			}
		})
	}
}

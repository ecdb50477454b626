package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "bikedash/internal/errors"
	"bikedash/internal/shared/testutil"
)

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLevel  slog.Level
		wantMsg    string
		wantCode   string
	}{
		{
			name:       "error entry",
			body:       `{"level":"error","message":"upload failed","source":"upload-form","data":{"status":413}}`,
			wantStatus: http.StatusNoContent,
			wantLevel:  slog.LevelError,
			wantMsg:    "upload failed",
		},
		{
			name:       "level defaults to info",
			body:       `{"message":"websocket reconnected"}`,
			wantStatus: http.StatusNoContent,
			wantLevel:  slog.LevelInfo,
			wantMsg:    "websocket reconnected",
		},
		{
			name:       "unknown level",
			body:       `{"level":"fatal","message":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "missing message",
			body:       `{"level":"info"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "message too long",
			body:       `{"message":"` + strings.Repeat("a", 1025) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "malformed json",
			body:       `{"message":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newHandlerDeps(t)
			handler := NewClientLogHandler(deps.validator, deps.logger, deps.errorHandler)

			req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.Handle(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeJSON(t, rec)["error_code"])
				return
			}
			testutil.AssertLogContains(t, deps.logs, tt.wantLevel, tt.wantMsg)
		})
	}
}

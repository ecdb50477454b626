package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "bikedash/internal/errors"
	customMiddleware "bikedash/internal/middleware"
	api "bikedash/pkg/contracts/api/v1"
)

// multipartOverhead is the allowance for boundaries and form fields on top
// of the file size limit.
const multipartOverhead = 64 << 10

// DatasetHandler handles dataset upload, listing and removal
type DatasetHandler struct {
	service      DatasetServiceInterface
	validator    *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBytes     int64
}

// NewDatasetHandler creates a dataset handler. maxBytes bounds the uploaded
// file; the request body may exceed it by the multipart overhead.
func NewDatasetHandler(service DatasetServiceInterface, validator *customMiddleware.ValidationMiddleware, maxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
		maxBytes:     maxBytes,
	}
}

// Routes returns the dataset routes. Each mount registers extra routes
// below /{id}, after the id has been validated.
func (h *DatasetHandler) Routes(mounts ...func(r chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		for _, mount := range mounts {
			mount(r)
		}
	})

	return r
}

// DatasetCtx validates the {id} parameter: a uuid or "latest".
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.DatasetPathRequest{ID: chi.URLParam(r, "id")}
		if err := h.validator.ValidateStruct(req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets := h.service.List(r.Context())
	render.JSON(w, r, api.DatasetListResponse{
		Datasets: datasets,
		Count:    len(datasets),
	})
}

// Upload handles POST /api/datasets as a multipart form with a "file" part
// and an optional "name" field overriding the file name.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file part is required"))
		return
	}
	defer file.Close()

	req := api.DatasetUploadRequest{Name: r.FormValue("name")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	name := filepath.Base(header.Filename)
	if req.Name != "" {
		name = req.Name
	}

	h.logger.InfoContext(r.Context(), "Dataset upload received",
		slog.String("request_id", reqID),
		slog.String("name", name),
		slog.Int64("size", header.Size))

	info, err := h.service.LoadUpload(r.Context(), name, header.Size, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/datasets/"+info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ds.DatasetInfo)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Dataset deleted",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("dataset_id", id))
	w.WriteHeader(http.StatusNoContent)
}

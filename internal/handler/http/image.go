package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/service"
	"github.com/utafrali/TradeCatalog/pkg/httputil"
	"github.com/utafrali/TradeCatalog/pkg/validator"
)

// ImageHandler handles HTTP requests for product image endpoints.
type ImageHandler struct {
	service *service.ImageService
	logger  *slog.Logger
}

// NewImageHandler creates a new product image HTTP handler.
func NewImageHandler(svc *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		service: svc,
		logger:  logger,
	}
}

// ListImages handles GET /api/v1/products/{id}/images
func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	images, err := h.service.List(r.Context(), actorFromRequest(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: images})
}

// AddImage handles POST /api/v1/products/{id}/images
func (h *ImageHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req domain.AddImageInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	img, err := h.service.Add(r.Context(), actorFromRequest(r), id.String(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: img})
}

// DeleteImage handles DELETE /api/v1/products/{id}/images/{imageId}
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	imageID, ok := httputil.ParseUUID(w, chi.URLParam(r, "imageId"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), actorFromRequest(r), id.String(), imageID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository"
	"github.com/utafrali/TradeCatalog/internal/service"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
	"github.com/utafrali/TradeCatalog/pkg/httputil"
	"github.com/utafrali/TradeCatalog/pkg/pagination"
	"github.com/utafrali/TradeCatalog/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeList(w, r, filter, false)
}

// SearchProducts handles GET /api/v1/products/search?q=
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	filter.Query = r.URL.Query().Get("q")
	h.writeList(w, r, filter, true)
}

// ListByCategory handles GET /api/v1/products/category/{category}
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	filter.Category = chi.URLParam(r, "category")
	h.writeList(w, r, filter, false)
}

// ListBySupplier handles GET /api/v1/products/supplier/{supplierId}
func (h *ProductHandler) ListBySupplier(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	filter.SupplierID = chi.URLParam(r, "supplierId")
	h.writeList(w, r, filter, false)
}

func (h *ProductHandler) writeList(w http.ResponseWriter, r *http.Request, filter repository.SearchFilter, search bool) {
	var (
		result *service.ListResult
		err    error
	)
	if search {
		result, err = h.service.Search(r.Context(), actorFromRequest(r), filter)
	} else {
		result, err = h.service.List(r.Context(), actorFromRequest(r), filter)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(result.Items, result.Total, result.Page, result.PageSize))
}

// GetProduct handles GET /api/v1/products/{id}?quantity=
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	quantity, err := intParam(r, "quantity", 1)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Get(r.Context(), actorFromRequest(r), id.String(), quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), actorFromRequest(r), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PATCH and PUT /api/v1/products/{id}. Both are partial.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req domain.UpdateProductInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.Update(r.Context(), actorFromRequest(r), id.String(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.SoftDelete(r.Context(), actorFromRequest(r), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestoreProduct handles POST /api/v1/products/{id}/restore
func (h *ProductHandler) RestoreProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.Restore(r.Context(), actorFromRequest(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// --- Query parsing ---

// parseFilter reads the shared list filters. available_only defaults to true.
func parseFilter(r *http.Request) (repository.SearchFilter, error) {
	q := r.URL.Query()
	page := pagination.FromRequest(r)

	filter := repository.SearchFilter{
		Category:      q.Get("category"),
		Subcategory:   q.Get("subcategory"),
		SupplierID:    q.Get("supplier_id"),
		AvailableOnly: true,
		Page:          page.Page,
		PageSize:      page.PageSize,
	}

	if v := q.Get("available_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, invalidParameter("available_only must be true or false")
		}
		filter.AvailableOnly = b
	}

	quantity, err := intParam(r, "quantity", 1)
	if err != nil {
		return filter, err
	}
	filter.Quantity = quantity

	if filter.MinPrice, err = decimalParam(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = decimalParam(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return filter, invalidParameter("min_price must not exceed max_price")
	}

	return filter, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParameter(name + " must be a valid integer")
	}
	return n, nil
}

func decimalParam(r *http.Request, name string) (*decimal.Decimal, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, invalidParameter(name + " must be a non-negative number")
	}
	return &d, nil
}

func invalidParameter(message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_PARAMETER",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
}

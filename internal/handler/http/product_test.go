package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository/memory"
	"github.com/utafrali/TradeCatalog/internal/service"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
	"github.com/utafrali/TradeCatalog/pkg/health"
	"github.com/utafrali/TradeCatalog/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type stubDirectory map[string]*domain.Supplier

func (d stubDirectory) Lookup(_ context.Context, id string) (*domain.Supplier, error) {
	if s, ok := d[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("supplier", id)
}

type denyAllower struct{ calls int }

func (d *denyAllower) Allow(_ context.Context, _ string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	d.calls++
	return &redis_rate.Result{Limit: limit, Allowed: 0, Remaining: 0, RetryAfter: 10 * time.Second}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	directory := stubDirectory{
		"supplier-a": {ID: "supplier-a", Role: domain.RoleSupplier},
		"supplier-b": {ID: "supplier-b", Role: domain.RoleSupplier},
	}
	products := memory.NewProductRepository()
	catalog := service.NewCatalogService(products, directory, nil, testLogger())
	if opts.Images == nil {
		opts.Images = service.NewImageService(products, memory.NewImageRepository(), nil, testLogger())
	}
	categories := service.NewCategoryService(memory.NewCategoryRepository(
		domain.Category{ID: "grains", NameEn: "Grains", NameAr: "حبوب", IsActive: true},
	))
	if opts.CORS.AllowedOrigins == nil {
		opts.CORS = middleware.DefaultCORSConfig()
	}
	return NewRouter(catalog, categories, health.NewHandler(), testLogger(), opts)
}

type caller struct {
	userID string
	role   string
}

var (
	anonymous  = caller{}
	admin      = caller{"admin-1", "admin"}
	supplierA  = caller{"supplier-a", "supplier"}
	supplierB  = caller{"supplier-b", "supplier"}
	corporate  = caller{"corp-1", "corporate"}
	horecaUser = caller{"hotel-1", "horeca"}
)

func do(t *testing.T, h http.Handler, method, path string, body any, as caller) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as.userID != "" {
		req.Header.Set(middleware.UserIDHeader, as.userID)
	}
	if as.role != "" {
		req.Header.Set(middleware.RoleHeader, as.role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", body)
	return e
}

func listOf(t *testing.T, rec *httptest.ResponseRecorder) ([]any, map[string]any) {
	t.Helper()
	body := decodeBody(t, rec)
	items, ok := body["data"].([]any)
	require.True(t, ok, "response has no data list: %v", body)
	return items, body
}

// rice is the reference product: end_user=150, b2c=2000, corporate=1850,
// horeca=1900, wholesale=1800, minimum 5.
func rice() map[string]any {
	return map[string]any{
		"name_en":                "Basmati Rice",
		"name_ar":                "أرز بسمتي",
		"category":               "grains",
		"unit":                   "KG",
		"end_user_price":         150,
		"retail_price_b2c":       2000,
		"retail_price_corporate": 1850,
		"retail_price_horeca":    1900,
		"wholesale_price":        1800,
	}
}

func createRice(t *testing.T, h http.Handler, mutate func(map[string]any)) string {
	t.Helper()
	body := rice()
	if mutate != nil {
		mutate(body)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/products", body, supplierA)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataOf(t, rec)["id"].(string)
}

// ============================================================================
// Create
// ============================================================================

func TestCreateProduct_Success(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/v1/products", rice(), supplierA)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataOf(t, rec)
	assert.Equal(t, "supplier-a", data["supplier_id"])
	assert.Equal(t, "1800", data["price"])
	assert.Equal(t, "wholesale_price", data["price_tier"])
	assert.Equal(t, true, data["is_available"])
	assert.Equal(t, "1", data["unit_size"])
}

func TestCreateProduct_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		as     caller
		mutate func(map[string]any)
		status int
		code   string
		field  string
	}{
		{"missing category", supplierA, func(b map[string]any) { delete(b, "category") }, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "category"},
		{"wholesale above corporate", supplierA, func(b map[string]any) {
			b["wholesale_price"] = 2000
			b["retail_price_corporate"] = 1800
			b["retail_price_b2c"] = 2500
			b["retail_price_horeca"] = 2500
		}, http.StatusUnprocessableEntity, "PRICE_ORDERING_VIOLATION", "retail_price_corporate"},
		{"zero minimum", supplierA, func(b map[string]any) { b["wholesale_min_quantity"] = 0 }, http.StatusBadRequest, "INVALID_QUANTITY", "wholesale_min_quantity"},
		{"buyer role", corporate, nil, http.StatusForbidden, "OWNERSHIP_VIOLATION", ""},
		{"anonymous", anonymous, nil, http.StatusForbidden, "OWNERSHIP_VIOLATION", ""},
		{"other supplier", supplierA, func(b map[string]any) { b["supplier_id"] = "supplier-b" }, http.StatusForbidden, "OWNERSHIP_VIOLATION", ""},
		{"unknown field", supplierA, func(b map[string]any) { b["colour"] = "red" }, http.StatusBadRequest, "INVALID_INPUT", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, Options{})
			body := rice()
			if tt.mutate != nil {
				tt.mutate(body)
			}

			rec := do(t, h, http.MethodPost, "/api/v1/products", body, tt.as)

			assert.Equal(t, tt.status, rec.Code)
			e := errorOf(t, rec)
			assert.Equal(t, tt.code, e["code"])
			if tt.field != "" {
				fields, ok := e["fields"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, fields, tt.field)
			}
		})
	}
}

func TestCreateProduct_ValidationTags(t *testing.T) {
	h := newTestRouter(t, Options{})
	body := rice()
	body["unit"] = string(bytes.Repeat([]byte("k"), 51))

	rec := do(t, h, http.MethodPost, "/api/v1/products", body, supplierA)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, rec)["code"])
}

func TestCreateProduct_WrongContentType(t *testing.T) {
	h := newTestRouter(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString("name_en=rice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Get
// ============================================================================

func TestGetProduct_PriceDependsOnCaller(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	tests := []struct {
		name       string
		as         caller
		query      string
		price      string
		tier       string
		eligible   bool
		minVisible bool
	}{
		{"corporate below minimum", corporate, "?quantity=3", "1850", "retail_price_corporate", false, true},
		{"corporate at bulk", corporate, "?quantity=6", "1800", "wholesale_price", true, true},
		{"horeca", horecaUser, "", "1900", "retail_price_horeca", false, false},
		{"b2c", caller{"v-1", "b2c_visitor"}, "", "2000", "retail_price_b2c", false, false},
		{"anonymous", anonymous, "", "150", "end_user_price", false, false},
		{"unknown role", caller{"x", "pirate"}, "", "150", "end_user_price", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/products/"+id+tt.query, nil, tt.as)

			require.Equal(t, http.StatusOK, rec.Code)
			data := dataOf(t, rec)
			assert.Equal(t, tt.price, data["price"])
			assert.Equal(t, tt.tier, data["price_tier"])
			assert.Equal(t, tt.eligible, data["wholesale_eligible"])
			_, hasMin := data["wholesale_min_quantity"]
			assert.Equal(t, tt.minVisible, hasMin)
			assert.NotContains(t, data, "prices")
			assert.NotContains(t, data, "is_deleted")
		})
	}
}

func TestGetProduct_AdminSeesAllTiers(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/products/"+id, nil, admin)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, rec)
	prices, ok := data["prices"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1900", prices["retail_price_horeca"])
	assert.Equal(t, false, data["is_deleted"])
	assert.EqualValues(t, 5, data["wholesale_min_quantity"])
}

func TestGetProduct_BadParameters(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/products/not-a-uuid", nil, anonymous)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", errorOf(t, rec)["code"])

	rec = do(t, h, http.MethodGet, "/api/v1/products/"+id+"?quantity=lots", nil, anonymous)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", errorOf(t, rec)["code"])
}

func TestGetProduct_NotFound(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/v1/products/7b0c5c1e-8c1f-4a8e-9d4e-3f1a2b3c4d5e", nil, admin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorOf(t, rec)["code"])
}

// ============================================================================
// Update
// ============================================================================

func TestUpdateProduct(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	rec := do(t, h, http.MethodPatch, "/api/v1/products/"+id, map[string]any{"stock_quantity": 25}, supplierA)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 25, dataOf(t, rec)["stock_quantity"])

	rec = do(t, h, http.MethodPut, "/api/v1/products/"+id, map[string]any{"name_en": "Sella Rice"}, supplierA)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, rec)
	assert.Equal(t, "Sella Rice", data["name_en"])
	assert.EqualValues(t, 25, data["stock_quantity"])
}

func TestUpdateProduct_OtherSupplier(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	rec := do(t, h, http.MethodPatch, "/api/v1/products/"+id, map[string]any{"stock_quantity": 1}, supplierB)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "OWNERSHIP_VIOLATION", errorOf(t, rec)["code"])
}

func TestUpdateProduct_Deleted(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/products/"+id, nil, supplierA).Code)

	rec := do(t, h, http.MethodPatch, "/api/v1/products/"+id, map[string]any{"stock_quantity": 1}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PRODUCT_DELETED", errorOf(t, rec)["code"])

	rec = do(t, h, http.MethodPatch, "/api/v1/products/"+id, map[string]any{"stock_quantity": 1}, supplierA)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Delete / Restore
// ============================================================================

func TestDeleteProduct_Lifecycle(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)
	path := "/api/v1/products/" + id

	rec := do(t, h, http.MethodDelete, path, nil, supplierA)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodDelete, path, nil, supplierA)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, nil, supplierA).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, nil, anonymous).Code)

	rec = do(t, h, http.MethodGet, path, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, rec)
	assert.Equal(t, true, data["is_deleted"])
	assert.NotEmpty(t, data["deleted_at"])

	for _, as := range []caller{anonymous, corporate, admin} {
		items, _ := listOf(t, do(t, h, http.MethodGet, "/api/v1/products", nil, as))
		assert.Empty(t, items)
	}

	rec = do(t, h, http.MethodPost, path+"/restore", nil, supplierA)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, path+"/restore", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, dataOf(t, rec)["is_deleted"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, nil, anonymous).Code)
}

func TestDeleteProduct_OtherSupplier(t *testing.T) {
	h := newTestRouter(t, Options{})
	id := createRice(t, h, nil)

	rec := do(t, h, http.MethodDelete, "/api/v1/products/"+id, nil, supplierB)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/products/"+id, nil, anonymous).Code)
}

// ============================================================================
// List / Search
// ============================================================================

func TestListProducts_Filters(t *testing.T) {
	h := newTestRouter(t, Options{})
	createRice(t, h, nil)
	createRice(t, h, func(b map[string]any) {
		b["name_en"] = "Olive Oil"
		b["category"] = "oils"
		b["is_available"] = false
	})

	items, body := listOf(t, do(t, h, http.MethodGet, "/api/v1/products", nil, anonymous))
	assert.Len(t, items, 1)
	assert.EqualValues(t, 1, body["total_count"])

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products?available_only=false", nil, anonymous))
	assert.Len(t, items, 2)

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products?available_only=false&category=oils", nil, anonymous))
	require.Len(t, items, 1)
	assert.Equal(t, "Olive Oil", items[0].(map[string]any)["name_en"])

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products/category/grains", nil, anonymous))
	assert.Len(t, items, 1)

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products/supplier/supplier-a?available_only=false", nil, anonymous))
	assert.Len(t, items, 2)

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products/supplier/supplier-b", nil, anonymous))
	assert.Empty(t, items)
}

func TestListProducts_PriceRangeAndQuantity(t *testing.T) {
	h := newTestRouter(t, Options{})
	createRice(t, h, nil)

	items, _ := listOf(t, do(t, h, http.MethodGet, "/api/v1/products?max_price=1820&quantity=10", nil, corporate))
	require.Len(t, items, 1)
	assert.Equal(t, "1800", items[0].(map[string]any)["price"])

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products?max_price=1820&quantity=2", nil, corporate))
	assert.Empty(t, items)
}

func TestListProducts_Pagination(t *testing.T) {
	h := newTestRouter(t, Options{})
	createRice(t, h, nil)

	_, body := listOf(t, do(t, h, http.MethodGet, "/api/v1/products?page_size=500", nil, anonymous))
	assert.EqualValues(t, 100, body["page_size"])

	_, body = listOf(t, do(t, h, http.MethodGet, "/api/v1/products?page_size=0&page=-3", nil, anonymous))
	assert.EqualValues(t, 1, body["page_size"])
	assert.EqualValues(t, 1, body["page"])

	_, body = listOf(t, do(t, h, http.MethodGet, "/api/v1/products?page_size=abc", nil, anonymous))
	assert.EqualValues(t, 20, body["page_size"])
}

func TestListProducts_HugePageIsClamped(t *testing.T) {
	h := newTestRouter(t, Options{})
	createRice(t, h, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/products?page=9223372036854775807", nil, anonymous)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items, body := listOf(t, rec)
	assert.Empty(t, items)
	assert.EqualValues(t, 1, body["total_count"])
}

func TestListProducts_BadParameters(t *testing.T) {
	h := newTestRouter(t, Options{})

	for _, query := range []string{
		"?min_price=100&max_price=50",
		"?min_price=cheap",
		"?max_price=-1",
		"?available_only=maybe",
		"?quantity=1.5",
	} {
		rec := do(t, h, http.MethodGet, "/api/v1/products"+query, nil, anonymous)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestSearchProducts(t *testing.T) {
	h := newTestRouter(t, Options{})
	createRice(t, h, nil)
	createRice(t, h, func(b map[string]any) { b["name_en"] = "Olive Oil" })

	rec := do(t, h, http.MethodGet, "/api/v1/products/search", nil, anonymous)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items, _ := listOf(t, do(t, h, http.MethodGet, "/api/v1/products/search?q=BASMATI", nil, anonymous))
	require.Len(t, items, 1)
	assert.Equal(t, "Basmati Rice", items[0].(map[string]any)["name_en"])

	items, _ = listOf(t, do(t, h, http.MethodGet, "/api/v1/products/search?q=%D8%A8%D8%B3%D9%85%D8%AA%D9%8A", nil, anonymous))
	assert.Len(t, items, 2)
}

// ============================================================================
// Identity and rate limiting
// ============================================================================

func TestWriteRateLimit(t *testing.T) {
	limiter := &denyAllower{}
	h := newTestRouter(t, Options{WriteLimiter: limiter, WriteLimit: redis_rate.PerMinute(1)})

	rec := do(t, h, http.MethodPost, "/api/v1/products", rice(), supplierA)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))

	rec = do(t, h, http.MethodGet, "/api/v1/products", nil, supplierA)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls)
}

func TestBearerTokens(t *testing.T) {
	secret := []byte("handler-test-secret")
	h := newTestRouter(t, Options{Tokens: middleware.HMACTokenValidator(secret)})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "supplier-a",
		"role":    "supplier",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	raw, err := json.Marshal(rice())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Gateway headers are ignored once tokens are verified.
	rec = do(t, h, http.MethodPost, "/api/v1/products", rice(), supplierA)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, Options{})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", nil, anonymous).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", nil, anonymous).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", nil, anonymous).Code)
}

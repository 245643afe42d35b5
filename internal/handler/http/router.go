package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/TradeCatalog/internal/service"
	"github.com/utafrali/TradeCatalog/pkg/health"
	"github.com/utafrali/TradeCatalog/pkg/middleware"
)

const serviceName = "catalog"

// Options configures the cross-cutting parts of the router.
type Options struct {
	// Tokens verifies bearer tokens. When nil the trusted gateway headers
	// identify the caller.
	Tokens middleware.TokenValidator

	CORS middleware.CORSConfig

	// WriteLimiter rate limits write endpoints per caller. Nil disables it.
	WriteLimiter middleware.Allower
	WriteLimit   redis_rate.Limit

	// CacheMaxAge is the Cache-Control max-age for product reads, in seconds.
	// Zero omits the header.
	CacheMaxAge int

	// Images serves the product image endpoints. Nil leaves them unrouted.
	Images *service.ImageService
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	categoryService *service.CategoryService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.CORS(opts.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	productHandler := NewProductHandler(catalogService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Identity(opts.Tokens))
		r.Use(middleware.RequestLogger(logger))
		if opts.CacheMaxAge > 0 {
			r.Use(middleware.CacheControl(opts.CacheMaxAge))
		}

		r.Get("/", productHandler.ListProducts)
		r.Get("/search", productHandler.SearchProducts)
		r.Get("/category/{category}", productHandler.ListByCategory)
		r.Get("/supplier/{supplierId}", productHandler.ListBySupplier)
		r.Get("/{id}", productHandler.GetProduct)

		var imageHandler *ImageHandler
		if opts.Images != nil {
			imageHandler = NewImageHandler(opts.Images, logger)
			r.Get("/{id}/images", imageHandler.ListImages)
		}

		r.Group(func(r chi.Router) {
			if opts.WriteLimiter != nil {
				r.Use(middleware.RateLimit(opts.WriteLimiter, opts.WriteLimit, middleware.KeyByCaller, logger))
			}

			r.Post("/", productHandler.CreateProduct)
			r.Patch("/{id}", productHandler.UpdateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
			r.Post("/{id}/restore", productHandler.RestoreProduct)

			if imageHandler != nil {
				r.Post("/{id}/images", imageHandler.AddImage)
				r.Delete("/{id}/images/{imageId}", imageHandler.DeleteImage)
			}
		})
	})

	// Category API endpoints
	categoryHandler := NewCategoryHandler(categoryService, logger)

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", categoryHandler.ListCategories)
		r.Get("/{id}", categoryHandler.GetCategory)
	})

	return r
}

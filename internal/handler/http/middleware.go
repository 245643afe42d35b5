package http

import (
	"net/http"
	"strings"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/pkg/httputil"
	"github.com/utafrali/TradeCatalog/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// actorFromRequest returns the caller resolved by the Identity middleware.
// Unknown roles are treated as anonymous.
func actorFromRequest(r *http.Request) domain.Actor {
	ctx := r.Context()
	return domain.Actor{
		UserID: middleware.UserIDFromContext(ctx),
		Role:   domain.ParseRole(middleware.RoleFromContext(ctx)),
	}
}

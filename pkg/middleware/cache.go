package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl sets Cache-Control on GET responses. Prices depend on the
// caller's role, so identified callers get private caching and the response
// varies on the identity headers. Mount it after Identity.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				scope := "public"
				if UserIDFromContext(r.Context()) != "" || RoleFromContext(r.Context()) != "" {
					scope = "private"
				}
				h := w.Header()
				h.Set("Cache-Control", fmt.Sprintf("%s, max-age=%d", scope, maxAge))
				h.Add("Vary", "Authorization")
				h.Add("Vary", UserIDHeader)
				h.Add("Vary", RoleHeader)
			}
			next.ServeHTTP(w, r)
		})
	}
}

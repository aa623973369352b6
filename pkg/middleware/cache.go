package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks GET responses as cacheable by browsers and proxies for
// maxAge seconds. A non-positive maxAge makes clients revalidate every
// time, so a write is visible on the next read.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "no-cache"
	if maxAge > 0 {
		value = fmt.Sprintf("public, max-age=%d", maxAge)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore disables client caching, used on admin and per-user routes.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

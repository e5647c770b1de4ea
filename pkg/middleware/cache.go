package middleware

import (
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

// CacheControl marks successful GET responses as publicly cacheable.
func CacheControl(maxAgeSeconds int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAgeSeconds)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && r.Header.Get("Authorization") == "" {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentType rejects bodies whose media type is not one of allowed with 415.
// Requests without a Content-Type header pass through.
func ContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				if ct := r.Header.Get("Content-Type"); ct != "" {
					mediaType, _, err := mime.ParseMediaType(ct)
					if err != nil || !slices.Contains(allowed, mediaType) {
						httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
							Error: &httputil.ErrorResponse{
								Code:    "UNSUPPORTED_MEDIA_TYPE",
								Message: "Content-Type must be one of: " + strings.Join(allowed, ", "),
							},
						})
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON is ContentType("application/json").
func ContentTypeJSON(next http.Handler) http.Handler {
	return ContentType("application/json")(next)
}

package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

// RegisterPprof mounts the runtime profiler under /debug/pprof, reachable
// only from the allowed networks.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.HandleFunc("/*", pprof.Index)
	})
}

// IPAllowlist rejects clients outside prefixes with 403. Entries that do
// not parse are logged and ignored.
func IPAllowlist(prefixes []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allowed := parsePrefixes(prefixes, "ignoring invalid allowlist prefix", logger)

	permitted := func(remote string) bool {
		addr, ok := remoteAddr(remote)
		return ok && containsAddr(allowed, addr)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !permitted(r.RemoteAddr) {
				logger.WarnContext(r.Context(), "blocked by IP allowlist",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, r, apperrors.Forbidden("Access restricted"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

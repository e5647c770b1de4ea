package http

import (
	"net/http"
	"strings"

	"github.com/FeliksML/web-cellar-sub000/internal/service"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
	"github.com/FeliksML/web-cellar-sub000/pkg/pagination"
)

// ownerFromRequest resolves whose cart a request addresses.
func ownerFromRequest(r *http.Request) service.CartOwner {
	return service.CartOwner{
		UserID:    middleware.UserIDFromContext(r.Context()),
		SessionID: middleware.SessionIDFromContext(r.Context()),
	}
}

// boolFilters reads optional boolean query parameters into dst, keyed by
// parameter name. It writes a 400 and returns false on a malformed value.
func boolFilters(w http.ResponseWriter, r *http.Request, dst map[string]**bool) bool {
	for key, target := range dst {
		v, err := httputil.QueryBool(r, key)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", err.Error())
			return false
		}
		*target = v
	}
	return true
}

func queryString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func writePage[T any](w http.ResponseWriter, items []T, total int, p pagination.Params) {
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(items, total, p))
}

func writeInvalidParam(w http.ResponseWriter, err error) {
	httputil.WriteBadRequest(w, "INVALID_PARAMETER", err.Error())
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("Not authenticated"), nil)
		return "", false
	}
	return id, true
}

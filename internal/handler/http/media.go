package http

import (
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

// MediaSource opens stored files by key.
type MediaSource interface {
	Open(key string) (io.ReadSeeker, string, bool)
}

// MediaHandler serves uploaded images when they are kept by the
// application itself rather than an object store.
type MediaHandler struct {
	source  MediaSource
	started time.Time
}

// NewMediaHandler creates a media handler reading from source.
func NewMediaHandler(source MediaSource) *MediaHandler {
	return &MediaHandler{source: source, started: time.Now()}
}

// Serve handles GET /media/*
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	body, contentType, ok := h.source.Open(key)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "File not found"},
		})
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	http.ServeContent(w, r, path.Base(key), h.started, body)
}

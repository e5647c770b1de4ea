package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/storage"
	"github.com/FeliksML/web-cellar-sub000/internal/storage/memory"
	"github.com/FeliksML/web-cellar-sub000/pkg/health"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
)

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(Services{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status"`)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestRouter(Services{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(newTestRouter(Services{}), req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDeliveryEndpoints_BadParameters(t *testing.T) {
	router := newTestRouter(Services{})

	tests := []struct {
		name string
		path string
	}{
		{name: "slots without date", path: "/api/v1/delivery/slots"},
		{name: "non-numeric days ahead", path: "/api/v1/delivery/dates?days_ahead=soon"},
		{name: "non-numeric lead time", path: "/api/v1/delivery/dates?lead_time_hours=x"},
		{name: "product id not a uuid", path: "/api/v1/delivery/dates?product_id=brownie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMediaServesStoredFiles(t *testing.T) {
	store := memory.New("http://localhost:8080/media")
	_, err := store.Upload(context.Background(), &storage.UploadInput{
		Key:         "products/p1/brownie.png",
		ContentType: "image/png",
		Data:        bytes.NewReader([]byte("png-bytes")),
	})
	require.NoError(t, err)

	router := NewRouter(Services{}, RouterConfig{
		TokenValidator: testJWT().TokenValidator(),
		Session:        middleware.SessionConfig{},
		Media:          store,
	}, health.NewHandler(), testLogger())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/media/products/p1/brownie.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/media/products/p1/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

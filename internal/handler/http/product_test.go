package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	"github.com/FeliksML/web-cellar-sub000/internal/storage/memory"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

func newProductRouter(repo *mockProductRepo) http.Handler {
	svc := service.NewProductService(repo, nil, memory.New("http://localhost:8080/media"), testProducer(), testLogger())
	return newTestRouter(Services{Products: svc})
}

func TestListProducts_ForcesActiveAndDefaults(t *testing.T) {
	repo := new(mockProductRepo)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
		return f.IsActive != nil && *f.IsActive &&
			f.IsVegan != nil && *f.IsVegan &&
			f.SortBy == repository.SortByPrice && f.SortDesc &&
			f.Page == 2 && f.PerPage == 20
	})).Return([]domain.Product{*activeProduct()}, 21, nil)

	rec := serve(newProductRouter(repo),
		httptest.NewRequest(http.MethodGet, "/api/v1/products?is_vegan=true&sort_by=price&sort_order=desc&page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	repo.AssertExpectations(t)
}

func TestListProducts_BadParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown sort field", query: "sort_by=rating"},
		{name: "unknown sort order", query: "sort_order=up"},
		{name: "malformed boolean", query: "is_vegan=maybe"},
		{name: "malformed price", query: "min_price=cheap"},
		{name: "inverted price range", query: "min_price=500&max_price=100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockProductRepo)
			rec := serve(newProductRouter(repo), httptest.NewRequest(http.MethodGet, "/api/v1/products?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
			repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}
}

func TestGetProduct(t *testing.T) {
	t.Run("active product", func(t *testing.T) {
		repo := new(mockProductRepo)
		repo.On("GetBySlug", mock.Anything, "chocolate-brownie").Return(activeProduct(), nil)

		rec := serve(newProductRouter(repo), httptest.NewRequest(http.MethodGet, "/api/v1/products/chocolate-brownie", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Chocolate Brownie", dataMap(t, decodeResponse(t, rec))["name"])
	})

	t.Run("inactive product is hidden", func(t *testing.T) {
		p := activeProduct()
		p.IsActive = false
		repo := new(mockProductRepo)
		repo.On("GetBySlug", mock.Anything, "chocolate-brownie").Return(p, nil)

		rec := serve(newProductRouter(repo), httptest.NewRequest(http.MethodGet, "/api/v1/products/chocolate-brownie", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "Product not found", resp.Error.Message)
	})

	t.Run("unknown slug", func(t *testing.T) {
		repo := new(mockProductRepo)
		repo.On("GetBySlug", mock.Anything, "nope").Return(nil, apperrors.ErrNotFound)

		rec := serve(newProductRouter(repo), httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminProducts_RoleChecks(t *testing.T) {
	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "customer", auth: domain.RoleCustomer, wantStatus: http.StatusForbidden},
		{name: "admin", auth: domain.RoleAdmin, wantStatus: http.StatusOK},
		{name: "super admin", auth: domain.RoleSuperAdmin, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockProductRepo)
			repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
				return f.IsActive == nil
			})).Return([]domain.Product{}, 0, nil).Maybe()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", bearer(t, "user-1", tt.auth))
			}
			rec := serve(newProductRouter(repo), req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				resp := decodeResponse(t, rec)
				require.NotNil(t, resp.Error)
				assert.Equal(t, "Admin access required", resp.Error.Message)
			}
		})
	}
}

func TestSetStock_ClampsNegative(t *testing.T) {
	p := activeProduct()
	p.StockQuantity = 0
	repo := new(mockProductRepo)
	repo.On("SetStock", mock.Anything, p.ID, 0).Return(p, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/"+p.ID+"/stock", bytes.NewBufferString(`{"quantity":-4}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "admin-1", domain.RoleAdmin))
	rec := serve(newProductRouter(repo), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	repo.AssertExpectations(t)
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	p := activeProduct()
	repo := new(mockProductRepo)
	repo.On("GetByID", mock.Anything, p.ID).Return(p, nil).Maybe()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/"+p.ID+"/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "admin-1", domain.RoleAdmin))
	rec := serve(newProductRouter(repo), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "AddImage", mock.Anything, mock.Anything)
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/auth"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/pkg/health"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
	"github.com/FeliksML/web-cellar-sub000/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockTokenRepo) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockProductRepo struct{ mock.Mock }

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) SoftDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepo) SetStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	args := m.Called(ctx, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) AddImage(ctx context.Context, image *domain.ProductImage) error {
	return m.Called(ctx, image).Error(0)
}

func (m *mockProductRepo) DeleteImage(ctx context.Context, productID, imageID string) (*domain.ProductImage, error) {
	args := m.Called(ctx, productID, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductImage), args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) ([]domain.LowStockProduct, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LowStockProduct), args.Error(1)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string) error {
	return m.Called(ctx, order, fromStatus).Error(0)
}

func (m *mockOrderRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	return m.Called(ctx, id, notes).Error(0)
}

func (m *mockOrderRepo) UpdatePayment(ctx context.Context, order *domain.Order, from domain.OrderState) error {
	return m.Called(ctx, order, from).Error(0)
}

func (m *mockOrderRepo) FindCompletedItem(ctx context.Context, userID, productID string) (*string, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

type mockCartRepo struct{ mock.Mock }

func (m *mockCartRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepo) Delete(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

// --- Mock Collaborators ---

// ============================================================================
// Test helpers
// ============================================================================

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProducer() *event.Producer {
	return event.NewProducer(discardPublisher{}, testLogger())
}

const testJWTSecret = "handler-test-secret-handler-test-secret"

func testJWT() *auth.JWTManager {
	return auth.NewJWTManager(testJWTSecret, 15*time.Minute, 24*time.Hour)
}

// bearer issues an access token for a user with role.
func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	pair, err := testJWT().IssuePair(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

// newTestRouter builds the production router around svc.
func newTestRouter(svc Services) http.Handler {
	return NewRouter(svc, RouterConfig{
		CORSOrigins:    []string{"http://localhost:5173"},
		Location:       time.UTC,
		TokenValidator: testJWT().TokenValidator(),
		Session:        middleware.SessionConfig{TTL: time.Hour},
	}, health.NewHandler(), testLogger())
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeResponse reads the response body into the standard Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// dataMap returns the "data" member of a response as a JSON object.
func dataMap(t *testing.T, resp httputil.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func activeProduct() *domain.Product {
	p := domain.NewProduct()
	p.ID = "5a0f3c1e-8d4b-4c3a-9e2f-1b7d6a5c4e3f"
	p.Name = "Chocolate Brownie"
	p.Slug = "chocolate-brownie"
	p.SKU = "BRW-001"
	p.Price = 450
	p.IsActive = true
	return p
}

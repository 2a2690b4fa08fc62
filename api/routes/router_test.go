package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/items"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/messages"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/notifications"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/transactions"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/users"
	pkgauth "github.com/Gitttomo/AntiTextNext-sub000/pkg/auth"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db/models"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubItemService struct{}

func (stubItemService) Create(ctx context.Context, input items.CreateItemInput) (*models.Item, error) {
	return &models.Item{}, nil
}

func (stubItemService) Get(ctx context.Context, itemID uuid.UUID) (*items.ItemDetail, error) {
	return &items.ItemDetail{}, nil
}

func (stubItemService) List(ctx context.Context, input items.ListItemsInput) (*items.ItemListResult, error) {
	return &items.ItemListResult{}, nil
}

type stubReservationService struct{}

func (stubReservationService) Claim(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Item, error) {
	return &models.Item{}, nil
}

func (stubReservationService) ClaimInTx(ctx context.Context, tx *gorm.DB, itemID, buyerID uuid.UUID) (*models.Item, error) {
	return &models.Item{}, nil
}

func (stubReservationService) Release(ctx context.Context, itemID uuid.UUID) error {
	return nil
}

func (stubReservationService) ReleaseOwned(ctx context.Context, itemID, callerID uuid.UUID) error {
	return nil
}

func (stubReservationService) IsExpired(item *models.Item, now time.Time) bool {
	return false
}

func (stubReservationService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type stubTransactionService struct{}

func (stubTransactionService) Create(ctx context.Context, input transactions.CreateTransactionInput) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionService) Confirm(ctx context.Context, input transactions.ConfirmInput) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionService) Complete(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionService) Cancel(ctx context.Context, txnID, callerID uuid.UUID, reason string) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionService) FinalizeRating(ctx context.Context, tx *gorm.DB, txnID uuid.UUID) error {
	return nil
}

func (stubTransactionService) Get(ctx context.Context, txnID, callerID uuid.UUID) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionService) List(ctx context.Context, input transactions.ListTransactionsInput) (*transactions.TransactionListResult, error) {
	return &transactions.TransactionListResult{}, nil
}

type stubRatingService struct{}

func (stubRatingService) Submit(ctx context.Context, input ratings.SubmitRatingInput) (*models.Rating, error) {
	return &models.Rating{}, nil
}

func (stubRatingService) AverageFor(ctx context.Context, userID uuid.UUID) (float64, int64, error) {
	return 0, 0, nil
}

type stubMessageService struct{}

func (stubMessageService) Send(ctx context.Context, input messages.SendMessageInput) (*models.Message, error) {
	return &models.Message{}, nil
}

func (stubMessageService) SendInTx(ctx context.Context, tx *gorm.DB, input messages.SendMessageInput) (*models.Message, error) {
	return &models.Message{}, nil
}

func (stubMessageService) ListForItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*messages.MessageListResult, error) {
	return &messages.MessageListResult{}, nil
}

func (stubMessageService) MarkRead(ctx context.Context, itemID, receiverID uuid.UUID) error {
	return nil
}

type stubUserService struct{}

func (stubUserService) Ensure(ctx context.Context, input users.UpsertProfileInput) (*models.User, error) {
	return &models.User{}, nil
}

func (stubUserService) Get(ctx context.Context, userID uuid.UUID) (*users.Profile, error) {
	return &users.Profile{}, nil
}

type stubNotificationService struct{}

func (stubNotificationService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*notifications.NotificationListResult, error) {
	return &notifications.NotificationListResult{}, nil
}

func (stubNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationService) Record(ctx context.Context, notification *models.Notification) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:  "test",
			Port: "0",
		},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "antitext-test",
			ExpirationMinutes: 5,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		nil,
		Services{
			Items:         stubItemService{},
			Reservations:  stubReservationService{},
			Transactions:  stubTransactionService{},
			Ratings:       stubRatingService{},
			Messages:      stubMessageService{},
			Users:         stubUserService{},
			Notifications: stubNotificationService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:      uuid.New(),
		DisplayName: "Router Tester",
		Campus:      "north",
	})
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if got := resp.Header().Get("X-AntiText-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestHealthReadyProbesDependencies(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for readiness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "\"data\"") {
		t.Fatalf("expected data envelope got %s", resp.Body.String())
	}
}

func TestCreateItemRejectsBadJSON(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body got %d", resp.Code)
	}
}

func TestTransactionRoutesAreMounted(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg)
	txnID := uuid.NewString()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/transactions/" + txnID},
		{http.MethodPost, "/api/v1/transactions/" + txnID + "/complete"},
		{http.MethodPost, "/api/v1/transactions/" + txnID + "/cancel"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code == http.StatusNotFound || resp.Code == http.StatusMethodNotAllowed {
			t.Fatalf("expected %s %s to be routed, got %d", p.method, p.path, resp.Code)
		}
	}
}

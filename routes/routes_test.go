package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/superfunded/payout_portal/database"
	"github.com/superfunded/payout_portal/handlers"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/routes"
	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
	"github.com/superfunded/payout_portal/testutil"
	"github.com/superfunded/payout_portal/websocket"
)

const (
	adminEmail    = "admin@superfunded.test"
	adminPassword = "admin-pass"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStorage) Upload(_ context.Context, objectPath string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = data
	return nil
}

func (m *memoryStorage) PublicURL(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

type testApp struct {
	app     *fiber.App
	db      *gorm.DB
	users   *repository.UserRepository
	payouts *services.PayoutService
	auth    *services.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.NewTestDB(t)
	require.NoError(t, database.SeedAdmin(context.Background(), db, database.AdminSeed{
		Email: adminEmail, Password: adminPassword, DisplayName: "Admin",
	}))

	secret := []byte("routes-secret")
	users := repository.NewUserRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	auth := services.NewAuthService(users, session.NewMemoryRevoker(), nil, services.AuthConfig{
		Secret: secret, TokenTTL: time.Hour, FrontendURL: "https://superfunded.test",
	})
	payouts := services.NewPayoutService(services.PayoutServiceConfig{
		Store:   payoutRepo,
		Objects: &memoryStorage{objects: map[string][]byte{}},
		Events:  websocket.NewHub(),
	})
	reviews := services.NewReviewService(reviewRepo)
	stats := services.NewStatsService(payoutRepo, users, nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Setup(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(auth),
		Profile:  handlers.NewProfileHandler(auth),
		Payouts:  handlers.NewPayoutHandler(payouts),
		Admin:    handlers.NewAdminHandler(payouts, stats, reviews),
		Reviews:  handlers.NewReviewHandler(reviews),
		Stats:    handlers.NewStatsHandler(stats),
		Realtime: handlers.NewWSHandler(websocket.NewHub()),
	}, routes.Config{JWTSecret: secret, Sessions: auth})

	return &testApp{app: app, db: db, users: users, payouts: payouts, auth: auth}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(t, req, token)
}

func (a *testApp) send(t *testing.T, req *http.Request, token string) (int, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (a *testApp) submit(t *testing.T, token string, fields map[string]string, file []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("proof", "proof.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/payouts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.send(t, req, token)
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := a.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

// registerVerified signs up a trader, confirms the email and logs in.
func (a *testApp) registerVerified(t *testing.T, email string) string {
	t.Helper()
	status, body := a.do(t, fiber.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "hunter22", "display_name": "Mike",
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))

	user, err := a.users.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	status, body = a.do(t, fiber.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{"token": *user.VerificationToken})
	require.Equal(t, fiber.StatusOK, status, string(body))

	return a.login(t, email, "hunter22")
}

func validFields() map[string]string {
	return map[string]string{"trader_name": "@trader_mike", "amount": "5420", "date": "2025-12-10"}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, fiber.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	status, body = a.do(t, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "payouts_submitted_total")
}

func TestSubmitApproveAppearsInFeed(t *testing.T) {
	a := newTestApp(t)
	trader := a.registerVerified(t, "mike@example.com")
	admin := a.login(t, adminEmail, adminPassword)

	status, body := a.submit(t, trader, validFields(), pngBytes)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	submitted := decode[services.PayoutView](t, body)
	assert.Equal(t, "pending", string(submitted.Status))

	status, body = a.do(t, fiber.MethodGet, "/api/v1/payouts", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, decode[[]services.PayoutView](t, body))

	status, body = a.do(t, fiber.MethodGet, "/api/v1/admin/payouts/pending", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	pending := decode[[]services.PayoutView](t, body)
	require.Len(t, pending, 1)
	assert.Equal(t, "mike@example.com", pending[0].Submitter.Email)

	status, body = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+submitted.ID.String()+"/approve", admin, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	approved := decode[services.PayoutView](t, body)
	assert.Equal(t, "approved", string(approved.Status))
	assert.NotNil(t, approved.VerifiedAt)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/payouts?search=TRADER", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	feed := decode[[]services.PayoutView](t, body)
	require.Len(t, feed, 1)
	assert.Equal(t, submitted.ID, feed[0].ID)
	assert.True(t, strings.HasPrefix(feed[0].ProofPublicURL, "https://cdn.test/"))

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+submitted.ID.String()+"/reject", admin, map[string]string{"admin_notes": "late"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/admin/payouts/"+submitted.ID.String()+"/events", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 2)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode[map[string]any](t, body)
	assert.EqualValues(t, 1, stats["approved_payouts"])
	assert.EqualValues(t, 1, stats["verified_traders"])
}

func TestSubmitRejectsBadUploads(t *testing.T) {
	a := newTestApp(t)
	trader := a.registerVerified(t, "mike@example.com")

	status, _ := a.submit(t, trader, validFields(), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := a.submit(t, trader, validFields(), []byte("GIF? no, plain text"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "proof", decode[map[string]string](t, body)["field"])

	fields := validFields()
	fields["amount"] = "-1"
	status, _ = a.submit(t, trader, fields, pngBytes)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/payouts/mine", trader, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, decode[[]services.PayoutView](t, body))
}

func TestSubmitRequiresVerifiedAccount(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(t, fiber.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "hunter22", "display_name": "New",
	})
	require.Equal(t, fiber.StatusCreated, status)
	token := a.login(t, "new@example.com", "hunter22")

	status, body := a.submit(t, token, validFields(), pngBytes)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Contains(t, string(body), "email verification required")

	status, _ = a.submit(t, "", validFields(), pngBytes)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminReviewErrors(t *testing.T) {
	a := newTestApp(t)
	trader := a.registerVerified(t, "mike@example.com")
	admin := a.login(t, adminEmail, adminPassword)

	status, body := a.submit(t, trader, validFields(), pngBytes)
	require.Equal(t, fiber.StatusCreated, status)
	id := decode[services.PayoutView](t, body).ID.String()

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+id+"/approve", trader, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+id+"/reject", admin, map[string]string{"admin_notes": "  "})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+id+"/reject", admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/not-a-uuid/approve", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/0b6c5a3e-61c4-4f0e-8c43-0d5f3d3f8f11/approve", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = a.do(t, fiber.MethodPost, "/api/v1/admin/payouts/"+id+"/reject", admin, map[string]string{"admin_notes": "cropped statement"})
	require.Equal(t, fiber.StatusOK, status)
	rejected := decode[services.PayoutView](t, body)
	assert.Equal(t, "rejected", string(rejected.Status))
	assert.Nil(t, rejected.VerifiedAt)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/admin/payouts/stats", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode[map[string]any](t, body)
	assert.EqualValues(t, 0, stats["total_pending"])
	assert.EqualValues(t, 0, stats["total_approved"])
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)
	token := a.registerVerified(t, "mike@example.com")

	status, _ := a.do(t, fiber.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "MIKE@example.com", "password": "hunter22", "display_name": "Dup",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "mike@example.com", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{"token": "bogus"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := a.do(t, fiber.MethodGet, "/api/v1/profile/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	profile := decode[session.Profile](t, body)
	assert.True(t, profile.IsVerified)
	assert.False(t, profile.IsAdmin)

	status, body = a.do(t, fiber.MethodPut, "/api/v1/profile/me", token, map[string]any{"display_name": "Mike FX", "is_admin": true})
	require.Equal(t, fiber.StatusOK, status)
	profile = decode[session.Profile](t, body)
	assert.Equal(t, "Mike FX", profile.DisplayName)
	assert.False(t, profile.IsAdmin)

	status, _ = a.do(t, fiber.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = a.do(t, fiber.MethodGet, "/api/v1/profile/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestReviews(t *testing.T) {
	a := newTestApp(t)
	trader := a.registerVerified(t, "mike@example.com")
	admin := a.login(t, adminEmail, adminPassword)

	status, _ := a.do(t, fiber.MethodPost, "/api/v1/reviews", trader, map[string]any{"rating": 9, "comment": "wow"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := a.do(t, fiber.MethodPost, "/api/v1/reviews", trader, map[string]any{"rating": 5, "comment": "Paid in a day."})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	review := decode[services.ReviewView](t, body)

	status, body = a.do(t, fiber.MethodGet, "/api/v1/reviews", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	list := decode[[]services.ReviewView](t, body)
	require.Len(t, list, 1)
	assert.True(t, list[0].Verified)

	status, _ = a.do(t, fiber.MethodDelete, "/api/v1/admin/reviews/"+review.ID.String(), admin, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = a.do(t, fiber.MethodDelete, "/api/v1/admin/reviews/"+review.ID.String(), admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRealtimeRequiresUpgrade(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(t, fiber.MethodGet, "/api/v1/ws", "", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/api/handlers"
	"github.com/fieldline/voice-agent-platform/internal/calls"
	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

type stubCallService struct{}

func (stubCallService) StartCall(_ context.Context, req calls.StartRequest) (*calls.Response, error) {
	return &calls.Response{CallID: "call_1", Reply: "Hi, thanks for calling!"}, nil
}

func (stubCallService) ProcessTurn(_ context.Context, req calls.TurnRequest) (*calls.Response, error) {
	return &calls.Response{CallID: req.CallID, Reply: "Got it."}, nil
}

func (stubCallService) EndCall(context.Context, string) error { return nil }

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	logger := logging.Default()
	callsHandler := calls.NewHandler(stubCallService{}, nil, logger)
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	companies := company.NewStore(redisClient, nil)
	adminHandler := handlers.NewAdminHandler(companies, nil, nil, logger)
	return New(&Config{
		Logger:          logger,
		CallsHandler:    callsHandler,
		AdminHandler:    adminHandler,
		AdminAuthSecret: secret,
	})
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterCallsMounted(t *testing.T) {
	r := newTestRouter(t, "secret")
	body := strings.NewReader(`{"company_id":"comfort-air"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/start", body)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "call_1")
}

func TestRouterAdminRequiresToken(t *testing.T) {
	r := newTestRouter(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/companies/comfort-air/config", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminWithToken(t *testing.T) {
	r := newTestRouter(t, "secret")

	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/companies/comfort-air/config", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "comfort-air")
}

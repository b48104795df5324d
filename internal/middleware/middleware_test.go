package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = validation.Register(v)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorsMapsKinds(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("Category name is required"), http.StatusBadRequest, "Category name is required"},
		{"conflict", apperr.Conflict("User already exists"), http.StatusBadRequest, "User already exists"},
		{"unauthorized", apperr.Unauthorized("Invalid credentials"), http.StatusUnauthorized, "Invalid credentials"},
		{"forbidden", apperr.Forbidden("Invalid refresh token"), http.StatusForbidden, "Invalid refresh token"},
		{"not found", apperr.NotFound("Order not found"), http.StatusNotFound, "Order not found"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_server_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Errors(zerolog.Nop()))
			r.GET("/", func(c *gin.Context) { _ = c.Error(tc.err) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.message, decode(t, rec)["error"])
		})
	}
}

type signupRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phoneNumber" binding:"omitempty,phone"`
}

func TestErrorsRendersBindingFailures(t *testing.T) {
	r := gin.New()
	r.Use(Errors(zerolog.Nop()))
	r.POST("/", func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x","phoneNumber":"abc"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "validation_failed", body["error"])
	details := body["details"].([]any)
	require.Len(t, details, 2)
	require.Equal(t, "email", details[0].(map[string]any)["field"])
	require.Equal(t, "phoneNumber", details[1].(map[string]any)["field"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request_body", decode(t, rec)["error"])
}

type stubAuthenticator struct {
	user models.User
	err  error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (models.User, *security.AccessClaims, error) {
	if s.err != nil {
		return models.User{}, nil, s.err
	}
	return s.user, &security.AccessClaims{UserID: s.user.ID, Role: string(s.user.Role)}, nil
}

func authRouter(auth Authenticator, roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.Use(Errors(zerolog.Nop()))
	handlers := []gin.HandlerFunc{Auth(auth)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		claims, _ := AccessClaims(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "claims": claims.UserID})
	})
	r.GET("/", handlers...)
	return r
}

func TestAuth(t *testing.T) {
	customer := models.User{ID: "u1", Role: models.UserRoleCustomer}

	cases := []struct {
		name   string
		auth   Authenticator
		header string
		roles  []models.UserRole
		status int
	}{
		{"missing header", stubAuthenticator{user: customer}, "", nil, http.StatusUnauthorized},
		{"wrong scheme", stubAuthenticator{user: customer}, "Basic abc", nil, http.StatusUnauthorized},
		{"invalid token", stubAuthenticator{err: apperr.Unauthorized("invalid_token")}, "Bearer x", nil, http.StatusUnauthorized},
		{"store failure", stubAuthenticator{err: errors.New("db down")}, "Bearer x", nil, http.StatusInternalServerError},
		{"ok", stubAuthenticator{user: customer}, "Bearer x", nil, http.StatusOK},
		{"wrong role", stubAuthenticator{user: customer}, "Bearer x", []models.UserRole{models.UserRoleAdmin}, http.StatusForbidden},
		{"right role", stubAuthenticator{user: customer}, "Bearer x", []models.UserRole{models.UserRoleAdmin, models.UserRoleCustomer}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authRouter(tc.auth, tc.roles...).ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				body := decode(t, rec)
				require.Equal(t, "u1", body["id"])
				require.Equal(t, "u1", body["claims"])
			}
		})
	}
}

func TestRequireRolesWithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(models.UserRoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerWindow: 2,
		Window:            time.Hour,
		Burst:             2,
	}, zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	require.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	limited := send("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.NotEmpty(t, limited.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{Enabled: false, RequestsPerWindow: 1, Window: time.Hour, Burst: 1}, zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestIPLimiterForgetsIdleClients(t *testing.T) {
	l := newIPLimiter(config.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})
	now := time.Now()
	l.now = func() time.Time { return now }
	l.get("a")

	now = now.Add(limiterIdleAfter + time.Second)
	l.get("b")
	require.NotContains(t, l.entries, "a")
	require.Contains(t, l.entries, "b")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://shop.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zerolog.Nop()), Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Body.String())
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
	require.Equal(t, "internal_server_error", decode(t, rec)["error"])
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-events/backend/config"
	"campus-events/backend/internal/model"
	"campus-events/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "middleware-test-secret-0123456789",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestManager()
	access, err := mgr.GenerateAccessToken("u-1", string(model.RoleStudent), "d-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	refresh, err := mgr.GenerateRefreshToken("u-1", string(model.RoleStudent), "d-1", false)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil, zap.NewNop()), func(c *gin.Context) {
		if c.GetString(CtxUserID) != "u-1" || c.GetString(CtxRole) != "student" || c.GetString(CtxDepartmentID) != "d-1" {
			t.Errorf("claims not injected")
		}
		if c.GetString(CtxTokenJTI) == "" || c.GetTime(CtxTokenExp).IsZero() {
			t.Errorf("token id and expiry not injected")
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + access, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + access, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := newTestManager()
	token, _ := mgr.GenerateAccessToken("u-1", "student", "")
	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	revoked := gin.New()
	revoked.GET("/x", JWTAuth(mgr, &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}, zap.NewNop()), ok)
	if w := do(revoked, http.MethodGet, "/x", token); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", w.Code)
	}

	// lookup failures fall back to signature validation
	broken := gin.New()
	broken.GET("/x", JWTAuth(mgr, &fakeBlacklist{err: errors.New("redis down")}, zap.NewNop()), ok)
	if w := do(broken, http.MethodGet, "/x", token); w.Code != http.StatusOK {
		t.Errorf("blacklist error: expected 200, got %d", w.Code)
	}
}

// ── Require ──

func TestRequire(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{string(model.RoleInnovationCell), http.StatusOK},
		{string(model.RoleStaff), http.StatusForbidden},
		{"janitor", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := gin.New()
		r.POST("/approve", func(c *gin.Context) { c.Set(CtxRole, tt.role) },
			Require(model.Role.CanApproveEvents),
			func(c *gin.Context) { c.Status(http.StatusOK) })

		if w := do(r, http.MethodPost, "/approve", ""); w.Code != tt.want {
			t.Errorf("role %s: expected %d, got %d", tt.role, tt.want, w.Code)
		}
	}

	r := gin.New()
	r.GET("/x", Require(model.Role.CanViewDashboard), func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := do(r, http.MethodGet, "/x", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no role: expected 401, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	denied := &fakeLimiter{allowed: false}
	r := gin.New()
	r.POST("/auth/login", RateLimit(denied, 5, time.Minute, zap.NewNop()), ok)
	if w := do(r, http.MethodPost, "/auth/login", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if len(denied.keys) != 1 || !strings.HasSuffix(denied.keys[0], ":/auth/login") {
		t.Errorf("unexpected keys %v", denied.keys)
	}

	for name, limiter := range map[string]Limiter{
		"allowed": &fakeLimiter{allowed: true},
		"error":   &fakeLimiter{err: errors.New("redis down")},
		"nil":     nil,
	} {
		r := gin.New()
		r.POST("/auth/login", RateLimit(limiter, 5, time.Minute, zap.NewNop()), ok)
		if w := do(r, http.MethodPost, "/auth/login", ""); w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, w.Code)
		}
	}
}

// ── RequestID / CORS ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected propagated id, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("expected generated uuid for oversized id, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leafbox-next/internal/authz"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func adminClaims(role string, expiresIn time.Duration) AdminClaims {
	return AdminClaims{
		AdminID:  7,
		Username: "ops",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestAdminJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{name: "missing secret", secret: "", header: "Bearer x", wantStatus: http.StatusUnauthorized},
		{name: "missing header", secret: testSecret, header: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed header", secret: testSecret, header: "Token abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong signature", secret: testSecret, header: "Bearer " + signToken(t, "other", adminClaims(AdminRole, time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "expired", secret: testSecret, header: "Bearer " + signToken(t, testSecret, adminClaims(AdminRole, -time.Minute)), wantStatus: http.StatusUnauthorized},
		{name: "no role", secret: testSecret, header: "Bearer " + signToken(t, testSecret, adminClaims("", time.Hour)), wantStatus: http.StatusForbidden},
		{name: "admin", secret: testSecret, header: "Bearer " + signToken(t, testSecret, adminClaims(AdminRole, time.Hour)), wantStatus: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AdminJWTAuthMiddleware(tc.secret))
			r.GET("/admin/ping", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"admin_id": c.GetUint(handlershared.ContextAdminID)})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status want %d got %d body %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var body map[string]uint
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if body["admin_id"] != 7 {
				t.Fatalf("admin id want 7 got %d", body["admin_id"])
			}
		})
	}
}

func TestOptionalUserJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalUserJWTMiddleware(testSecret))
	r.GET("/checkout", func(c *gin.Context) {
		id := handlershared.OptionalUserID(c)
		if id == nil {
			c.JSON(http.StatusOK, gin.H{"user_id": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": *id})
	})

	valid := signToken(t, testSecret, UserClaims{
		UserID: 12,
		Email:  "fern@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	cases := []struct {
		name   string
		header string
		want   uint
	}{
		{name: "guest", header: "", want: 0},
		{name: "garbage token", header: "Bearer not-a-token", want: 0},
		{name: "customer", header: "Bearer " + valid, want: 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("guests must pass, got %d", w.Code)
			}
			var body map[string]uint
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if body["user_id"] != tc.want {
				t.Fatalf("user id want %d got %d", tc.want, body["user_id"])
			}
		})
	}
}

func newAuthzRouter(t *testing.T, enforcer *authz.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.Use(AdminJWTAuthMiddleware(testSecret), AdminAuthzMiddleware(enforcer))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	admin.GET("/orders", ok)
	admin.POST("/orders/:id/payment/confirm", ok)
	admin.PUT("/settings/shipping", ok)
	return r
}

func TestAdminAuthzMiddleware(t *testing.T) {
	dsn := fmt.Sprintf("file:authz_router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	enforcer, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz failed: %v", err)
	}
	if err := enforcer.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	cases := []struct {
		name     string
		enforcer *authz.Service
		role     string
		method   string
		path     string
		want     int
	}{
		{"finance confirms", enforcer, authz.RoleFinance, http.MethodPost, "/api/v1/admin/orders/3/payment/confirm", http.StatusNoContent},
		{"finance cannot edit shipping", enforcer, authz.RoleFinance, http.MethodPut, "/api/v1/admin/settings/shipping", http.StatusForbidden},
		{"auditor reads", enforcer, authz.RoleAuditor, http.MethodGet, "/api/v1/admin/orders", http.StatusNoContent},
		{"admin edits shipping", enforcer, AdminRole, http.MethodPut, "/api/v1/admin/settings/shipping", http.StatusNoContent},
		{"unknown role", enforcer, "customer", http.MethodGet, "/api/v1/admin/orders", http.StatusForbidden},
		{"no enforcer admin", nil, AdminRole, http.MethodGet, "/api/v1/admin/orders", http.StatusNoContent},
		{"no enforcer finance", nil, authz.RoleFinance, http.MethodGet, "/api/v1/admin/orders", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthzRouter(t, tc.enforcer)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, adminClaims(tc.role, time.Hour)))
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status want %d got %d body %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leafbox-next/internal/authz"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	engine  *gin.Engine
	db      *gorm.DB
	product models.Product
	tambon  models.Tambon
	admin   string
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := models.SeedLocations(db); err != nil {
		t.Fatalf("seed locations failed: %v", err)
	}

	env := &routerTestEnv{db: db}
	env.product = models.Product{Name: "Monstera", Price: models.NewMoneyFromInt(650), IsActive: true}
	if err := db.Create(&env.product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	province := models.Province{ID: 10, NameTH: "Bangkok", NameEN: "Bangkok"}
	amphure := models.Amphure{ID: 1001, ProvinceID: 10, NameTH: "Pathum Wan", NameEN: "Pathum Wan"}
	env.tambon = models.Tambon{ID: 100101, AmphureID: 1001, NameTH: "Lumphini", NameEN: "Lumphini", ZipCode: "10330"}
	for _, row := range []interface{}{&province, &amphure, &env.tambon} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("create location failed: %v", err)
		}
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "debug"},
		AdminJWT: config.JWTConfig{SecretKey: testSecret},
		UserJWT:  config.JWTConfig{SecretKey: testSecret},
		Order:    config.OrderConfig{Currency: "THB", Timezone: "UTC"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
	reg := prometheus.NewRegistry()
	container := provider.NewContainer(cfg, db, metrics.NewWithRegistry(reg, reg))
	t.Cleanup(container.NotificationService.Wait)
	t.Cleanup(container.Close)

	env.engine = SetupRouter(cfg, container)
	env.admin = "Bearer " + signToken(t, testSecret, AdminClaims{
		AdminID: 1,
		Role:    AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	return env
}

func (env *routerTestEnv) do(t *testing.T, method, path string, body interface{}, auth string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal envelope failed: %v body %s", err, w.Body.String())
		}
	}
	return w, resp
}

func (env *routerTestEnv) checkoutBody(method string) map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]interface{}{
			"first_name": "Nok",
			"email":      "nok@example.com",
			"phone":      "0811111111",
		},
		"shipping": map[string]interface{}{
			"recipient_name": "Nok",
			"phone":          "0811111111",
			"address_line":   "1 Witthayu Rd",
			"province_id":    10,
			"amphure_id":     1001,
			"tambon_id":      env.tambon.ID,
		},
		"items":   []map[string]interface{}{{"product_id": env.product.ID, "quantity": 2}},
		"payment": map[string]interface{}{"method": method},
	}
}

func TestHealthzReportsDatabase(t *testing.T) {
	env := setupRouterTest(t)
	w, resp := env.do(t, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("healthz want 200 got %d %s", w.Code, w.Body.String())
	}
	var status map[string]string
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("unmarshal status failed: %v", err)
	}
	if status["database"] != "ok" || status["redis"] != "disabled" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestProvinceListHidesShipToRecipientSentinel(t *testing.T) {
	env := setupRouterTest(t)
	w, resp := env.do(t, http.MethodGet, "/api/v1/locations/provinces", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var provinces []models.Province
	if err := json.Unmarshal(resp.Data, &provinces); err != nil {
		t.Fatalf("unmarshal provinces failed: %v", err)
	}
	if len(provinces) != 1 || provinces[0].ID != 10 {
		t.Fatalf("expected only Bangkok, got %+v", provinces)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/amphures/1001/tambons", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route want 404 got %d", w.Code)
	}
	w, resp = env.do(t, http.MethodGet, "/api/v1/locations/amphures/1001/tambons", nil, "")
	var tambons []models.Tambon
	if err := json.Unmarshal(resp.Data, &tambons); err != nil {
		t.Fatalf("unmarshal tambons failed: %v", err)
	}
	if w.Code != http.StatusOK || len(tambons) != 1 || tambons[0].ZipCode != "10330" {
		t.Fatalf("unexpected tambons %d %+v", w.Code, tambons)
	}
}

func TestQuoteFollowsShippingSettingUpdates(t *testing.T) {
	env := setupRouterTest(t)
	quoteBody := map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": env.product.ID, "quantity": 2}},
	}

	_, resp := env.do(t, http.MethodPost, "/api/v1/checkout/quote", quoteBody, "")
	var quote map[string]string
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		t.Fatalf("unmarshal quote failed: %v", err)
	}
	if quote["shipping_cost"] != "100.00" || quote["final_amount"] != "1400.00" {
		t.Fatalf("unexpected default quote %+v", quote)
	}

	w, _ := env.do(t, http.MethodPut, "/api/v1/admin/settings/shipping",
		map[string]string{"free_threshold": "1000", "flat_fee": "80"}, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("update shipping want 200 got %d %s", w.Code, w.Body.String())
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/checkout/quote", quoteBody, "")
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		t.Fatalf("unmarshal quote failed: %v", err)
	}
	if quote["shipping_cost"] != "0.00" || quote["final_amount"] != "1300.00" {
		t.Fatalf("expected free shipping after update, got %+v", quote)
	}

	w, _ = env.do(t, http.MethodPut, "/api/v1/admin/settings/shipping",
		map[string]string{"free_threshold": "-1", "flat_fee": "80"}, env.admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative threshold want 400 got %d", w.Code)
	}
}

func TestManualSlipCheckoutToAdminConfirmation(t *testing.T) {
	env := setupRouterTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/checkout", env.checkoutBody("manual_slip"), "")
	if w.Code != http.StatusCreated || !resp.Success {
		t.Fatalf("checkout want 201 got %d %s", w.Code, w.Body.String())
	}
	var created struct {
		OrderID       uint   `json:"order_id"`
		OrderNumber   string `json:"order_number"`
		PaymentStatus string `json:"payment_status"`
		URL           string `json:"url"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("unmarshal checkout failed: %v", err)
	}
	if created.OrderID == 0 || len(created.OrderNumber) != 7 || created.PaymentStatus != "PENDING" || created.URL != "" {
		t.Fatalf("unexpected checkout data %+v", created)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/slip", map[string]interface{}{
		"order_number": created.OrderNumber,
		"amount":       "1400",
		"slip_url":     "https://files.example.com/slips/1.jpg",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("slip want 200 got %d %s", w.Code, w.Body.String())
	}

	confirmPath := fmt.Sprintf("/api/v1/admin/orders/%d/payment/confirm", created.OrderID)
	w, _ = env.do(t, http.MethodPost, confirmPath, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("confirm without token want 401 got %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		w, _ = env.do(t, http.MethodPost, confirmPath, nil, env.admin)
		if w.Code != http.StatusOK {
			t.Fatalf("confirm %d want 200 got %d %s", i, w.Code, w.Body.String())
		}
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/payments/verify/"+created.OrderNumber, nil, "")
	var status struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("unmarshal verify failed: %v", err)
	}
	if w.Code != http.StatusOK || status.Status != string(constants.OrderStatusPaid) || status.PaymentStatus != "CONFIRMED" {
		t.Fatalf("unexpected verify result %d %+v", w.Code, status)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/slip", map[string]interface{}{
		"order_number": created.OrderNumber,
		"amount":       "1400",
		"slip_url":     "https://files.example.com/slips/2.jpg",
	}, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("slip after confirmation want 409 got %d", w.Code)
	}
}

func TestCheckoutRejectsUnavailableVariants(t *testing.T) {
	env := setupRouterTest(t)
	cases := []struct {
		name   string
		method string
		want   int
	}{
		{name: "unknown variant", method: "bitcoin", want: http.StatusBadRequest},
		{name: "card without token", method: "omise_card", want: http.StatusBadRequest},
		{name: "stripe disabled", method: "stripe_checkout", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodPost, "/api/v1/checkout", env.checkoutBody(tc.method), "")
			if w.Code != tc.want || resp.Success {
				t.Fatalf("want %d got %d %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected checkouts must not write orders, got %d", count)
	}
}

func TestWebhookForDisabledGatewayIsNotFound(t *testing.T) {
	env := setupRouterTest(t)
	w, _ := env.do(t, http.MethodPost, "/api/v1/webhooks/stripe", map[string]string{"id": "evt_1"}, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("stripe webhook want 404 got %d", w.Code)
	}
}

func TestAdminOrderLifecycle(t *testing.T) {
	env := setupRouterTest(t)
	_, resp := env.do(t, http.MethodPost, "/api/v1/checkout", env.checkoutBody("cod"), "")
	var created struct {
		OrderID uint `json:"order_id"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("unmarshal checkout failed: %v", err)
	}

	w, _ := env.do(t, http.MethodGet, "/api/v1/admin/orders?status=pending&gateway=manual", nil, env.admin)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("list want one order, got %d %s", w.Code, w.Body.String())
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/admin/orders?status=lost", nil, env.admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter want 400 got %d", w.Code)
	}

	orderPath := fmt.Sprintf("/api/v1/admin/orders/%d", created.OrderID)
	w, _ = env.do(t, http.MethodPatch, orderPath+"/status", map[string]string{"status": "DELIVERED"}, env.admin)
	if w.Code != http.StatusConflict {
		t.Fatalf("skipping to delivered want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPatch, orderPath+"/status", map[string]string{"status": "processing"}, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("pending to processing want 200 got %d %s", w.Code, w.Body.String())
	}
	w, _ = env.do(t, http.MethodPatch, orderPath+"/comment", map[string]string{"admin_comment": "<b>call first</b>"}, env.admin)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"admin_comment":"call first"`) {
		t.Fatalf("comment want sanitized text, got %d %s", w.Code, w.Body.String())
	}

	w, _ = env.do(t, http.MethodDelete, orderPath, nil, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("delete want 200 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, orderPath, nil, env.admin)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted order want 404 got %d", w.Code)
	}
}

func TestPendingPaymentResolveRequiresOpenRow(t *testing.T) {
	env := setupRouterTest(t)
	w, _ := env.do(t, http.MethodGet, "/api/v1/admin/pending-payments", nil, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("list want 200 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/admin/pending-payments/99/resolve", map[string]uint{"order_id": 1}, env.admin)
	if w.Code != http.StatusConflict {
		t.Fatalf("resolve unknown row want 409 got %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	env := setupRouterTest(t)
	env.do(t, http.MethodPost, "/api/v1/checkout", env.checkoutBody("manual_slip"), "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics want 200 got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `checkout_total{result="ok",variant="manual_slip"} 1`) {
		t.Fatalf("checkout counter missing:\n%s", body)
	}
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("http counter missing")
	}
}

func TestAdminRolesLimitBackOffice(t *testing.T) {
	env := setupRouterTest(t)
	finance := "Bearer " + signToken(t, testSecret, adminClaims(authz.RoleFinance, time.Hour))

	w, _ := env.do(t, http.MethodGet, "/api/v1/admin/settings/shipping", nil, finance)
	if w.Code != http.StatusOK {
		t.Fatalf("finance read want 200 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPut, "/api/v1/admin/settings/shipping",
		map[string]string{"free_threshold": "1000", "flat_fee": "80"}, finance)
	if w.Code != http.StatusForbidden {
		t.Fatalf("finance write want 403 got %d", w.Code)
	}

	policy := map[string]string{"object": "/admin/settings/shipping", "action": "PUT"}
	w, _ = env.do(t, http.MethodPost, "/api/v1/admin/authz/roles/finance/policies", policy, env.admin)
	if w.Code != http.StatusConflict {
		t.Fatalf("builtin role edit want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/admin/authz/roles/shipping_clerk/policies", policy, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("grant want 200 got %d %s", w.Code, w.Body.String())
	}
	clerk := "Bearer " + signToken(t, testSecret, adminClaims("shipping_clerk", time.Hour))
	w, _ = env.do(t, http.MethodPut, "/api/v1/admin/settings/shipping",
		map[string]string{"free_threshold": "1000", "flat_fee": "80"}, clerk)
	if w.Code != http.StatusOK {
		t.Fatalf("clerk write want 200 got %d %s", w.Code, w.Body.String())
	}

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/authz/roles", nil, env.admin)
	if !strings.Contains(string(resp.Data), "role:shipping_clerk") {
		t.Fatalf("expected custom role listed: %s", resp.Data)
	}
}

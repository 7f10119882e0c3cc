package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/payment/omise"
	"github.com/leafbox-next/internal/payment/stripe"
	"github.com/leafbox-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db        *gorm.DB
	orderRepo *repository.GormOrderRepository
	orders    *OrderService
	checkout  *CheckoutService
	reconcile *ReconcileService
	manual    *ManualPaymentService
	settings  *SettingService
	discounts *DiscountService
	notifier  *NotificationService
	chat      *fakeChatNotifier
	omise     *fakeOmiseGateway
	stripe    *fakeStripeGateway
	cheap     models.Product
	pricey    models.Product
	hidden    models.Product
	province  models.Province
	amphure   models.Amphure
	tambon    models.Tambon
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return db
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	db := openServiceTestDB(t)
	env := &serviceTestEnv{
		db:     db,
		chat:   &fakeChatNotifier{enabled: true},
		omise:  newFakeOmiseGateway(),
		stripe: &fakeStripeGateway{},
	}

	env.cheap = models.Product{Name: "Pothos", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(650)), IsActive: true}
	env.pricey = models.Product{Name: "Fiddle Leaf Fig", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(1600)), IsActive: true}
	env.hidden = models.Product{Name: "Retired Cactus", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(300)), IsActive: true}
	for _, p := range []*models.Product{&env.cheap, &env.pricey, &env.hidden} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}
	if err := db.Model(&env.hidden).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}
	env.hidden.IsActive = false

	env.province = models.Province{ID: 10, NameTH: "Bangkok", NameEN: "Bangkok"}
	env.amphure = models.Amphure{ID: 1001, ProvinceID: 10, NameTH: "Pathum Wan", NameEN: "Pathum Wan"}
	env.tambon = models.Tambon{ID: 100101, AmphureID: 1001, NameTH: "Lumphini", NameEN: "Lumphini", ZipCode: "10330"}
	if err := db.Create(&env.province).Error; err != nil {
		t.Fatalf("create province failed: %v", err)
	}
	if err := db.Create(&env.amphure).Error; err != nil {
		t.Fatalf("create amphure failed: %v", err)
	}
	if err := db.Create(&env.tambon).Error; err != nil {
		t.Fatalf("create tambon failed: %v", err)
	}

	env.orderRepo = repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	paymentInfoRepo := repository.NewPaymentInfoRepository(db)
	pendingRepo := repository.NewPendingPaymentRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	env.settings = NewSettingService(settingRepo, config.ShippingConfig{})
	env.discounts = NewDiscountService(discountRepo, nil)
	env.notifier = NewNotificationService(env.orderRepo, pendingRepo, nil, env.chat, nil, nil, config.NotificationConfig{TimeoutSeconds: 2})
	t.Cleanup(env.notifier.Wait)

	gateways := Gateways{Omise: env.omise, Stripe: env.stripe}
	env.orders = NewOrderService(
		db,
		env.orderRepo,
		productRepo,
		locationRepo,
		paymentInfoRepo,
		NewOrderNumberGenerator(env.orderRepo, time.UTC),
		NewPricingCalculator(env.settings),
		env.discounts,
		env.notifier,
		nil,
		OrderServiceOptions{},
	)
	env.checkout = NewCheckoutService(env.orders, env.orderRepo, gateways, nil)
	env.reconcile = NewReconcileService(db, env.orderRepo, paymentInfoRepo, pendingRepo, gateways, env.notifier, env.discounts, nil)
	env.manual = NewManualPaymentService(db, env.orderRepo, paymentInfoRepo, env.reconcile, env.notifier)
	return env
}

func (env *serviceTestEnv) orderInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Customer: CustomerInput{
			FirstName: "Somchai",
			LastName:  "Jaidee",
			Email:     "Somchai@Example.com",
			Phone:     "0812345678",
		},
		Shipping: ShippingInput{
			RecipientName: "Malee",
			Phone:         "0898765432",
			AddressLine:   "99 Rama IV",
			ProvinceID:    env.province.ID,
			AmphureID:     env.amphure.ID,
			TambonID:      env.tambon.ID,
		},
		Items:         items,
		PaymentMethod: constants.PaymentMethodBankTransfer,
		Gateway:       constants.GatewayManual,
	}
}

// paidNotifications counts chat messages announcing a settlement.
func (env *serviceTestEnv) paidNotifications() int {
	env.notifier.Wait()
	return env.chat.countTitle("Payment confirmed")
}

type fakeChatNotifier struct {
	mu       sync.Mutex
	enabled  bool
	delay    time.Duration
	err      error
	messages []DiscordMessage
}

func (f *fakeChatNotifier) Enabled() bool { return f.enabled }

func (f *fakeChatNotifier) Send(ctx context.Context, msg DiscordMessage) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatNotifier) countTitle(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, msg := range f.messages {
		for _, embed := range msg.Embeds {
			if embed.Title == title {
				count++
			}
		}
	}
	return count
}

type fakeEmailSender struct {
	mu      sync.Mutex
	enabled bool
	admins  []string
	delay   time.Duration
	sent    []string
}

func (f *fakeEmailSender) Enabled() bool             { return f.enabled }
func (f *fakeEmailSender) AdminRecipients() []string { return f.admins }

func (f *fakeEmailSender) SendHTML(ctx context.Context, to []string, subject, _ string) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, subject)
	return nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeOmiseGateway struct {
	mu           sync.Mutex
	nextCharge   *omise.Charge
	charges      map[string]*omise.Charge
	created      []omise.CreateChargeInput
	metadata     map[string]map[string]string
	webhookValid bool
}

func newFakeOmiseGateway() *fakeOmiseGateway {
	return &fakeOmiseGateway{
		charges:      map[string]*omise.Charge{},
		metadata:     map[string]map[string]string{},
		webhookValid: true,
	}
}

func (f *fakeOmiseGateway) CreateCharge(_ context.Context, input omise.CreateChargeInput) (*omise.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	if f.nextCharge == nil {
		return nil, fmt.Errorf("%w: no charge scripted", omise.ErrRequestFailed)
	}
	charge := *f.nextCharge
	if charge.Amount == 0 {
		charge.Amount = input.Amount
	}
	f.charges[charge.ID] = &charge
	return &charge, nil
}

func (f *fakeOmiseGateway) RetrieveCharge(_ context.Context, chargeID string) (*omise.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	charge, ok := f.charges[chargeID]
	if !ok {
		return nil, fmt.Errorf("%w: not found", omise.ErrRequestFailed)
	}
	copied := *charge
	if md, ok := f.metadata[chargeID]; ok {
		copied.Metadata = md
	}
	return &copied, nil
}

func (f *fakeOmiseGateway) UpdateChargeMetadata(_ context.Context, chargeID string, metadata map[string]string) (*omise.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[chargeID] = metadata
	return f.charges[chargeID], nil
}

func (f *fakeOmiseGateway) ReturnURL(orderNumber string) string {
	return "https://shop.example.com/payment/return?order=" + orderNumber
}

func (f *fakeOmiseGateway) VerifyWebhook(_ http.Header, body []byte, _ time.Time) (*omise.WebhookEvent, error) {
	if !f.webhookValid {
		return nil, fmt.Errorf("%w: verify failed", omise.ErrSignatureInvalid)
	}
	var event omise.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decode", omise.ErrResponseInvalid)
	}
	return &event, nil
}

func (f *fakeOmiseGateway) setCharge(charge *omise.Charge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges[charge.ID] = charge
}

func omiseWebhookBody(t *testing.T, key, chargeID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"object": "event",
		"id":     "evnt_" + chargeID,
		"key":    key,
		"data":   map[string]interface{}{"object": "charge", "id": chargeID},
	})
	if err != nil {
		t.Fatalf("marshal omise event failed: %v", err)
	}
	return body
}

type fakeStripeGateway struct {
	mu       sync.Mutex
	event    *stripe.Event
	sessions map[string]*stripe.Session
	created  []stripe.CheckoutInput
	failNext bool
}

func (f *fakeStripeGateway) CreateCheckoutSession(_ context.Context, input stripe.CheckoutInput) (*stripe.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("%w: scripted failure", stripe.ErrRequestFailed)
	}
	id := fmt.Sprintf("cs_test_%d", len(f.created))
	session := &stripe.Session{
		ID:       id,
		URL:      "https://checkout.stripe.com/c/pay/" + id,
		Status:   "open",
		Currency: input.Currency,
		Metadata: map[string]string{
			constants.MetadataOrderID:     fmt.Sprintf("%d", input.OrderID),
			constants.MetadataOrderNumber: input.OrderNumber,
		},
	}
	if f.sessions == nil {
		f.sessions = map[string]*stripe.Session{}
	}
	f.sessions[id] = session
	return session, nil
}

func (f *fakeStripeGateway) RetrieveSession(_ context.Context, sessionID string) (*stripe.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: not found", stripe.ErrRequestFailed)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeStripeGateway) ParseWebhook(_ []byte, signatureHeader string) (*stripe.Event, error) {
	if signatureHeader != "valid" {
		return nil, fmt.Errorf("%w: bad signature", stripe.ErrSignatureInvalid)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.event == nil {
		return nil, fmt.Errorf("%w: no event scripted", stripe.ErrResponseInvalid)
	}
	copied := *f.event
	return &copied, nil
}

func (f *fakeStripeGateway) setEvent(event *stripe.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = event
}

func (f *fakeStripeGateway) setSession(session *stripe.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]*stripe.Session{}
	}
	f.sessions[session.ID] = session
}

func newServiceTestOrder(number string) *models.Order {
	return &models.Order{
		OrderNumber:   number,
		Status:        constants.OrderStatusPending,
		PaymentStatus: constants.PaymentStatusPending,
		PaymentMethod: constants.PaymentMethodBankTransfer,
		Gateway:       constants.GatewayManual,
		Currency:      constants.CurrencyTHB,
		TotalAmount:   models.NewMoneyFromInt(1300),
		ShippingCost:  models.NewMoneyFromInt(100),
		FinalAmount:   models.NewMoneyFromInt(1400),
		CustomerInfo:  &models.CustomerInfo{FirstName: "Somchai", Email: "somchai@example.com", Phone: "0812345678"},
		ShippingInfo: &models.ShippingInfo{
			RecipientName: "Malee",
			Phone:         "0898765432",
			AddressLine:   "99 Rama IV",
			ProvinceID:    constants.ShipToRecipientProvinceID,
			AmphureID:     constants.ShipToRecipientAmphureID,
			TambonID:      constants.ShipToRecipientTambonID,
		},
		Items: []models.OrderItem{
			{ProductID: 1, ProductName: "Pothos", Quantity: 2, UnitPrice: models.NewMoneyFromInt(650), TotalPrice: models.NewMoneyFromInt(1300)},
		},
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultOrderNumberRetryAttempts = 5

// OrderNumberSource assigns order numbers inside an open transaction
type OrderNumberSource interface {
	Next(tx *gorm.DB, now time.Time) (string, error)
}

// OrderService order ledger
type OrderService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	productRepo     repository.ProductRepository
	locationRepo    repository.LocationRepository
	paymentInfoRepo repository.PaymentInfoRepository
	numbers         OrderNumberSource
	pricing         *PricingCalculator
	discounts       *DiscountService
	notifier        *NotificationService
	metrics         *metrics.Metrics
	currency        string
	retryAttempts   int
	now             func() time.Time
}

// OrderServiceOptions order ledger settings
type OrderServiceOptions struct {
	Currency      string
	RetryAttempts int
}

// NewOrderService creates the order service
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	paymentInfoRepo repository.PaymentInfoRepository,
	numbers OrderNumberSource,
	pricing *PricingCalculator,
	discounts *DiscountService,
	notifier *NotificationService,
	m *metrics.Metrics,
	opts OrderServiceOptions,
) *OrderService {
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = constants.CurrencyTHB
	}
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = defaultOrderNumberRetryAttempts
	}
	return &OrderService{
		db:              db,
		orderRepo:       orderRepo,
		productRepo:     productRepo,
		locationRepo:    locationRepo,
		paymentInfoRepo: paymentInfoRepo,
		numbers:         numbers,
		pricing:         pricing,
		discounts:       discounts,
		notifier:        notifier,
		metrics:         m,
		currency:        currency,
		retryAttempts:   attempts,
		now:             time.Now,
	}
}

// allowedTransitions admin driven order status moves. PAID is also set by
// settlement, which bypasses this table.
var allowedTransitions = map[constants.OrderStatus]map[constants.OrderStatus]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusPaid:       true,
		constants.OrderStatusCancelled:  true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusPaid:      true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
}

// CustomerInput buyer details
type CustomerInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"required,max=32"`
	Note      string `json:"note" validate:"max=1000"`
}

// ShippingInput recipient and address. With ShipToRecipient the location
// ids are ignored and replaced by the sentinel location.
type ShippingInput struct {
	RecipientName   string     `json:"recipient_name" validate:"required,max=200"`
	Phone           string     `json:"phone" validate:"required,max=32"`
	AddressLine     string     `json:"address_line" validate:"required_unless=ShipToRecipient true,max=1000"`
	ProvinceID      uint       `json:"province_id" validate:"required_unless=ShipToRecipient true"`
	AmphureID       uint       `json:"amphure_id" validate:"required_unless=ShipToRecipient true"`
	TambonID        uint       `json:"tambon_id" validate:"required_unless=ShipToRecipient true"`
	PostalCode      string     `json:"postal_code" validate:"max=10"`
	ShipToRecipient bool       `json:"ship_to_recipient"`
	DeliveryDate    *time.Time `json:"delivery_date"`
	DeliveryTime    string     `json:"delivery_time" validate:"max=32"`
	CardMessage     string     `json:"card_message" validate:"max=1000"`
}

// OrderItemInput requested line
type OrderItemInput struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gt=0,lte=999"`
}

// CreateOrderInput checkout payload as the ledger sees it
type CreateOrderInput struct {
	UserID        *uint
	Customer      CustomerInput    `json:"customer"`
	Shipping      ShippingInput    `json:"shipping"`
	Items         []OrderItemInput `json:"items" validate:"required,min=1,max=50,dive"`
	PaymentMethod constants.PaymentMethod
	Gateway       constants.Gateway
	DiscountCode  string `json:"discount_code" validate:"max=64"`
	ClientIP      string
}

// PreparedOrder validated and priced order that has not been written yet
type PreparedOrder struct {
	Input    CreateOrderInput
	Items    []models.OrderItem
	Priced   []PricedItem
	Quote    Quote
	Discount *AppliedDiscount
	Shipping models.ShippingInfo
	Customer models.CustomerInfo
}

// OrderState initial status of a persisted order
type OrderState struct {
	Status           constants.OrderStatus
	PaymentStatus    constants.PaymentStatus
	GatewaySessionID string
	PaidAt           *time.Time
	Payment          *models.PaymentInfo
}

var orderInputValidator = newOrderInputValidator()

func newOrderInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func validateCreateOrderInput(input CreateOrderInput) error {
	if err := orderInputValidator.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrInvalidOrderInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidOrderInput, err)
	}
	if !input.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if !input.Gateway.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// PrepareOrder validates products and locations and prices the cart.
// Nothing is written.
func (s *OrderService) PrepareOrder(ctx context.Context, input CreateOrderInput) (*PreparedOrder, error) {
	if err := validateCreateOrderInput(input); err != nil {
		return nil, err
	}
	items, priced, err := s.resolveItems(input.Items)
	if err != nil {
		return nil, err
	}
	shipping, err := s.resolveShipping(input.Shipping)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice.Decimal)
	}
	applied, err := s.discounts.Evaluate(input.DiscountCode, subtotal, s.now())
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.Quote(ctx, priced, applied.Amount)
	if err != nil {
		return nil, err
	}

	customer := models.CustomerInfo{
		FirstName: strings.TrimSpace(input.Customer.FirstName),
		LastName:  strings.TrimSpace(input.Customer.LastName),
		Email:     strings.ToLower(strings.TrimSpace(input.Customer.Email)),
		Phone:     strings.TrimSpace(input.Customer.Phone),
		Note:      SanitizeText(input.Customer.Note),
	}
	return &PreparedOrder{
		Input:    input,
		Items:    items,
		Priced:   priced,
		Quote:    quote,
		Discount: applied,
		Shipping: shipping,
		Customer: customer,
	}, nil
}

func (s *OrderService) resolveItems(inputs []OrderItemInput) ([]models.OrderItem, []PricedItem, error) {
	ids := make([]uint, 0, len(inputs))
	seen := make(map[uint]bool, len(inputs))
	for _, in := range inputs {
		if in.ProductID == 0 || in.Quantity <= 0 {
			return nil, nil, ErrInvalidOrderItem
		}
		if !seen[in.ProductID] {
			seen[in.ProductID] = true
			ids = append(ids, in.ProductID)
		}
	}
	products, err := s.productRepo.ListByIDs(ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(inputs))
	priced := make([]PricedItem, 0, len(inputs))
	for _, in := range inputs {
		product, ok := byID[in.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: id %d", ErrProductNotFound, in.ProductID)
		}
		if !product.IsActive {
			return nil, nil, fmt.Errorf("%w: id %d", ErrProductNotAvailable, in.ProductID)
		}
		if !product.Price.IsPositive() {
			return nil, nil, fmt.Errorf("%w: product %d has no price", ErrInvalidOrderItem, in.ProductID)
		}
		unit := product.Price.Decimal
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductImg:  product.ImageURL,
			Quantity:    in.Quantity,
			UnitPrice:   models.NewMoneyFromDecimal(unit),
			TotalPrice:  models.NewMoneyFromDecimal(LineTotal(unit, in.Quantity)),
		})
		priced = append(priced, PricedItem{UnitPrice: unit, Quantity: in.Quantity})
	}
	return items, priced, nil
}

func (s *OrderService) resolveShipping(in ShippingInput) (models.ShippingInfo, error) {
	info := models.ShippingInfo{
		RecipientName:   strings.TrimSpace(in.RecipientName),
		Phone:           strings.TrimSpace(in.Phone),
		AddressLine:     strings.TrimSpace(in.AddressLine),
		PostalCode:      strings.TrimSpace(in.PostalCode),
		ShipToRecipient: in.ShipToRecipient,
		DeliveryDate:    in.DeliveryDate,
		DeliveryTime:    strings.TrimSpace(in.DeliveryTime),
		CardMessage:     SanitizeText(in.CardMessage),
	}
	if in.ShipToRecipient {
		info.ProvinceID = constants.ShipToRecipientProvinceID
		info.AmphureID = constants.ShipToRecipientAmphureID
		info.TambonID = constants.ShipToRecipientTambonID
		info.ProvinceName = constants.ShipToRecipientLabel
		info.AmphureName = constants.ShipToRecipientLabel
		info.TambonName = constants.ShipToRecipientLabel
		if info.AddressLine == "" {
			info.AddressLine = constants.ShipToRecipientLabel
		}
		return info, nil
	}

	province, err := s.locationRepo.GetProvince(in.ProvinceID)
	if err != nil {
		return info, err
	}
	if province == nil {
		return info, fmt.Errorf("%w: province %d", ErrLocationNotFound, in.ProvinceID)
	}
	amphure, err := s.locationRepo.GetAmphure(in.AmphureID)
	if err != nil {
		return info, err
	}
	if amphure == nil || amphure.ProvinceID != province.ID {
		return info, fmt.Errorf("%w: amphure %d", ErrLocationNotFound, in.AmphureID)
	}
	tambon, err := s.locationRepo.GetTambon(in.TambonID)
	if err != nil {
		return info, err
	}
	if tambon == nil || tambon.AmphureID != amphure.ID {
		return info, fmt.Errorf("%w: tambon %d", ErrLocationNotFound, in.TambonID)
	}
	info.ProvinceID = province.ID
	info.AmphureID = amphure.ID
	info.TambonID = tambon.ID
	info.ProvinceName = province.NameTH
	info.AmphureName = amphure.NameTH
	info.TambonName = tambon.NameTH
	if info.PostalCode == "" {
		info.PostalCode = tambon.ZipCode
	}
	return info, nil
}

// PersistOrder writes the order aggregate in one transaction, assigning
// the order number inside it. A number collision with a concurrent
// checkout is retried with a fresh number. Side effects run only after
// the commit and never fail the call.
func (s *OrderService) PersistOrder(ctx context.Context, prepared *PreparedOrder, state OrderState) (*models.Order, error) {
	if prepared == nil {
		return nil, ErrInvalidOrderInput
	}
	if state.Status == "" {
		state.Status = constants.OrderStatusPending
	}
	if state.PaymentStatus == "" {
		state.PaymentStatus = constants.PaymentStatusPending
	}

	var order *models.Order
	for attempt := 1; ; attempt++ {
		candidate := prepared.build(s.currency, state)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := s.numbers.Next(tx, s.now())
			if err != nil {
				return err
			}
			candidate.OrderNumber = number
			if err := s.orderRepo.WithTx(tx).Create(candidate); err != nil {
				return err
			}
			if state.Payment != nil {
				payment := *state.Payment
				payment.OrderID = candidate.ID
				if err := s.paymentInfoRepo.WithTx(tx).UpsertByOrderID(&payment); err != nil {
					return err
				}
				candidate.PaymentInfo = &payment
			}
			return nil
		})
		if err == nil {
			order = candidate
			break
		}
		if repository.IsUniqueViolation(err) && attempt < s.retryAttempts {
			s.metrics.IncOrderNumberConflict()
			logger.Infow("order_number_conflict_retry",
				"order_number", candidate.OrderNumber,
				"attempt", attempt,
			)
			continue
		}
		if errors.Is(err, ErrOrderNumberExhausted) {
			return nil, err
		}
		logger.Warnw("order_create_failed", "attempt", attempt, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"gateway", order.Gateway,
		"payment_method", order.PaymentMethod,
		"payment_status", order.PaymentStatus,
		"final_amount", order.FinalAmount.String(),
	)
	s.notifier.OrderCreated(order)
	if order.PaymentStatus == constants.PaymentStatusConfirmed && order.PaymentInfo != nil {
		fireSettlementEffects(s.notifier, s.discounts, order, order.PaymentInfo.Gateway, order.PaymentInfo.TransactionID)
	}
	return order, nil
}

// CreateOrder validates, prices and writes a pending order.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	prepared, err := s.PrepareOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.PersistOrder(ctx, prepared, OrderState{})
}

func (p *PreparedOrder) build(currency string, state OrderState) *models.Order {
	items := make([]models.OrderItem, len(p.Items))
	copy(items, p.Items)
	customer := p.Customer
	shipping := p.Shipping
	order := &models.Order{
		UserID:           p.Input.UserID,
		Status:           state.Status,
		PaymentStatus:    state.PaymentStatus,
		PaymentMethod:    p.Input.PaymentMethod,
		Gateway:          p.Input.Gateway,
		GatewaySessionID: strings.TrimSpace(state.GatewaySessionID),
		Currency:         currency,
		TotalAmount:      p.Quote.Subtotal,
		ShippingCost:     p.Quote.ShippingCost,
		Discount:         p.Quote.Discount,
		FinalAmount:      p.Quote.FinalAmount,
		ClientIP:         strings.TrimSpace(p.Input.ClientIP),
		PaidAt:           state.PaidAt,
		CustomerInfo:     &customer,
		ShippingInfo:     &shipping,
		Items:            items,
	}
	if p.Discount != nil && p.Discount.Code != nil {
		codeID := p.Discount.Code.ID
		order.DiscountCode = p.Discount.Code.Code
		order.DiscountCodeID = &codeID
	}
	return order
}

// Quote prices a cart without writing anything.
func (s *OrderService) Quote(ctx context.Context, items []OrderItemInput, discountCode string) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrInvalidOrderItem
	}
	lines, priced, err := s.resolveItems(items)
	if err != nil {
		return Quote{}, err
	}
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.TotalPrice.Decimal)
	}
	applied, err := s.discounts.Evaluate(discountCode, subtotal, s.now())
	if err != nil {
		return Quote{}, err
	}
	return s.pricing.Quote(ctx, priced, applied.Amount)
}

// GetOrder loads an order with its children
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByNumber loads an order by its human facing number
func (s *OrderService) GetOrderByNumber(orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersForAdmin admin order list
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// UpdateStatus moves the order status along the admin transition table.
func (s *OrderService) UpdateStatus(id uint, target constants.OrderStatus) (*models.Order, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatusTransition
	}
	order, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !isTransitionAllowed(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, target)
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"status":     target,
		"updated_at": s.now(),
	}); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	logger.Infow("order_status_updated", "order_id", order.ID, "from", order.Status, "to", target)
	order.Status = target
	return order, nil
}

// UpdateAdminComment replaces the back-office note.
func (s *OrderService) UpdateAdminComment(id uint, comment string) (*models.Order, error) {
	order, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}
	comment = SanitizeText(comment)
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"admin_comment": comment,
		"updated_at":    s.now(),
	}); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	order.AdminComment = comment
	return order, nil
}

// DeleteOrder removes the order and its children in one transaction.
func (s *OrderService) DeleteOrder(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).DeleteCascade(id)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return ErrOrderUpdateFailed
	}
	logger.Infow("order_deleted", "order_id", id)
	return nil
}

func isTransitionAllowed(current, target constants.OrderStatus) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// fireSettlementEffects runs once per settled transaction: paid
// notifications and the discount usage counter.
func fireSettlementEffects(notifier *NotificationService, discounts *DiscountService, order *models.Order, gateway constants.Gateway, transactionID string) {
	if order == nil {
		return
	}
	notifier.PaymentConfirmed(order, gateway, transactionID)
	if order.DiscountCodeID != nil {
		discounts.IncrementUsage(context.Background(), *order.DiscountCodeID, order.ID)
	}
}

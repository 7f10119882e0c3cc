package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ManualPaymentService bank slip submission and admin review
type ManualPaymentService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	paymentInfoRepo repository.PaymentInfoRepository
	reconciler      *ReconcileService
	notifier        *NotificationService
	now             func() time.Time
}

// NewManualPaymentService creates the manual payment service
func NewManualPaymentService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	paymentInfoRepo repository.PaymentInfoRepository,
	reconciler *ReconcileService,
	notifier *NotificationService,
) *ManualPaymentService {
	return &ManualPaymentService{
		db:              db,
		orderRepo:       orderRepo,
		paymentInfoRepo: paymentInfoRepo,
		reconciler:      reconciler,
		notifier:        notifier,
		now:             time.Now,
	}
}

// SubmitSlipInput uploaded transfer slip
type SubmitSlipInput struct {
	OrderNumber   string          `json:"order_number" validate:"required,max=16"`
	Amount        decimal.Decimal `json:"amount"`
	SlipURL       string          `json:"slip_url" validate:"required,url,max=2048"`
	BankReference string          `json:"bank_reference" validate:"max=255"`
	TransferredAt *time.Time      `json:"transferred_at"`
}

// SubmitSlip records a slip for admin review. A rejected slip may be
// replaced by a new one.
func (s *ManualPaymentService) SubmitSlip(ctx context.Context, input SubmitSlipInput) (*models.Order, error) {
	if err := orderInputValidator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrderInput, err)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidOrderInput)
	}
	order, err := s.orderRepo.GetByOrderNumber(input.OrderNumber)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentMethod != constants.PaymentMethodBankTransfer {
		return nil, ErrSlipNotAllowed
	}
	if order.PaymentStatus != constants.PaymentStatusPending && order.PaymentStatus != constants.PaymentStatusRejected {
		return nil, ErrSlipNotAllowed
	}

	transferredAt := s.now().UTC()
	if input.TransferredAt != nil && !input.TransferredAt.IsZero() {
		transferredAt = input.TransferredAt.UTC()
	}
	info := models.PaymentInfo{
		OrderID:       order.ID,
		Gateway:       constants.GatewayManual,
		Method:        constants.PaymentMethodBankTransfer,
		Amount:        models.NewMoneyFromDecimal(input.Amount.Round(2)),
		Status:        constants.PaymentStatusPending,
		PaymentDate:   &transferredAt,
		SlipURL:       strings.TrimSpace(input.SlipURL),
		BankReference: strings.TrimSpace(input.BankReference),
		EventType:     "slip_submitted",
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.PaymentStatus == constants.PaymentStatusRejected {
			if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
				"payment_status": constants.PaymentStatusPending,
				"updated_at":     s.now(),
			}); err != nil {
				return err
			}
		}
		return s.paymentInfoRepo.WithTx(tx).UpsertByOrderID(&info)
	})
	if err != nil {
		logger.Errorw("slip_submit_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	order.PaymentStatus = constants.PaymentStatusPending
	order.PaymentInfo = &info
	logger.Infow("slip_submitted", "order_id", order.ID, "order_number", order.OrderNumber)
	s.notifier.SlipSubmitted(order, info.SlipURL)
	return order, nil
}

// AdminConfirm settles a manual order through the same path as gateway
// events, so repeated confirmations notify once.
func (s *ManualPaymentService) AdminConfirm(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.loadManualOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == constants.PaymentStatusRejected {
		return nil, ErrPaymentNotPending
	}
	amount := order.FinalAmount
	if order.PaymentInfo != nil && order.PaymentInfo.Amount.IsPositive() {
		amount = order.PaymentInfo.Amount
	}
	result, err := s.reconciler.settleOrder(ctx, order, GatewayEvent{
		Gateway:       constants.GatewayManual,
		EventType:     "admin_confirm",
		GatewayRef:    order.OrderNumber,
		TransactionID: manualTransactionID(order),
		Amount:        amount.MinorUnits(),
		Currency:      order.Currency,
	}, nil)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

// AdminReject marks the submitted slip as not matching a transfer.
func (s *ManualPaymentService) AdminReject(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	order, err := s.loadManualOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != constants.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}
	reason = SanitizeText(reason)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusRejected,
			"updated_at":     s.now(),
		}
		if reason != "" {
			updates["admin_comment"] = reason
		}
		if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, updates); err != nil {
			return err
		}
		if order.PaymentInfo == nil {
			return nil
		}
		info := *order.PaymentInfo
		info.Status = constants.PaymentStatusRejected
		info.EventType = "admin_reject"
		return s.paymentInfoRepo.WithTx(tx).UpsertByOrderID(&info)
	})
	if err != nil {
		logger.Errorw("slip_reject_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	logger.Infow("slip_rejected", "order_id", order.ID, "reason", reason)
	order.PaymentStatus = constants.PaymentStatusRejected
	if order.PaymentInfo != nil {
		order.PaymentInfo.Status = constants.PaymentStatusRejected
	}
	if reason != "" {
		order.AdminComment = reason
	}
	return order, nil
}

func (s *ManualPaymentService) loadManualOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Gateway != constants.GatewayManual {
		return nil, ErrInvalidPaymentMethod
	}
	return order, nil
}

// manualTransactionID one settlement identity per manual order
func manualTransactionID(order *models.Order) string {
	return "manual:" + order.OrderNumber
}

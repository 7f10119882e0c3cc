package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/payment/omise"
	"github.com/leafbox-next/internal/payment/stripe"
	"github.com/leafbox-next/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var reconcileTracer = otel.Tracer("github.com/leafbox-next/internal/service/reconcile")

// Reconcile outcomes
const (
	ReconcileSettled   = "settled"
	ReconcileDuplicate = "duplicate"
	ReconcileUnmatched = "unmatched"
	ReconcileRejected  = "rejected"
	ReconcileIgnored   = "ignored"
)

// order lookup keys, in the order they are tried
const (
	matchedBySession     = "session_id"
	matchedByOrderID     = "metadata_order_id"
	matchedByOrderNumber = "metadata_order_number"
)

// GatewayEvent settlement candidate normalized across gateways
type GatewayEvent struct {
	Gateway       constants.Gateway
	EventType     string
	GatewayRef    string
	SessionRef    string
	TransactionID string
	Amount        int64
	Currency      string
	MethodType    string
	Metadata      map[string]string
	CustomerEmail string
	PaidAt        time.Time
	Raw           map[string]interface{}
}

// ReconcileResult what a gateway event did to the ledger
type ReconcileResult struct {
	Outcome   string
	MatchedBy string
	Order     *models.Order
	Pending   *models.PendingPayment
}

// ReconcileService matches asynchronous gateway events to orders and
// settles them at most once per gateway transaction.
type ReconcileService struct {
	db              *gorm.DB
	orderRepo       repository.OrderRepository
	paymentInfoRepo repository.PaymentInfoRepository
	pendingRepo     repository.PendingPaymentRepository
	gateways        Gateways
	notifier        *NotificationService
	discounts       *DiscountService
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewReconcileService creates the reconcile service
func NewReconcileService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	paymentInfoRepo repository.PaymentInfoRepository,
	pendingRepo repository.PendingPaymentRepository,
	gateways Gateways,
	notifier *NotificationService,
	discounts *DiscountService,
	m *metrics.Metrics,
) *ReconcileService {
	return &ReconcileService{
		db:              db,
		orderRepo:       orderRepo,
		paymentInfoRepo: paymentInfoRepo,
		pendingRepo:     pendingRepo,
		gateways:        gateways,
		notifier:        notifier,
		discounts:       discounts,
		metrics:         m,
		now:             time.Now,
	}
}

// HandleStripeWebhook verifies and applies one Stripe event. Any error
// other than ErrSignatureInvalid or ErrWebhookPayloadInvalid means the
// gateway should retry.
func (s *ReconcileService) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*ReconcileResult, error) {
	ctx, span := reconcileTracer.Start(ctx, "reconcile.stripe_webhook")
	defer span.End()

	if s.gateways.Stripe == nil {
		return nil, ErrGatewayDisabled
	}
	event, err := s.gateways.Stripe.ParseWebhook(payload, signatureHeader)
	if err != nil {
		s.metrics.IncWebhook(string(constants.GatewayStripe), "invalid")
		span.RecordError(err)
		if errors.Is(err, stripe.ErrSignatureInvalid) {
			logger.Warnw("stripe_webhook_signature_invalid", "error", err)
			return nil, ErrSignatureInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayloadInvalid, err)
	}
	span.SetAttributes(
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", event.Type),
	)

	result, err := s.applyStripeEvent(ctx, event)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncWebhook(string(constants.GatewayStripe), "error")
		return nil, err
	}
	span.SetAttributes(attribute.String("reconcile.outcome", result.Outcome))
	s.metrics.IncWebhook(string(constants.GatewayStripe), result.Outcome)
	return result, nil
}

func (s *ReconcileService) applyStripeEvent(ctx context.Context, event *stripe.Event) (*ReconcileResult, error) {
	ev := stripeGatewayEvent(event, s.now())
	switch event.Type {
	case constants.StripeEventCheckoutCompleted, constants.StripeEventCheckoutAsyncSucceeded:
		if event.Type == constants.StripeEventCheckoutCompleted && event.PaymentStatus == "unpaid" {
			// delayed methods settle on async_payment_succeeded
			logger.Infow("stripe_webhook_awaiting_async_payment", "session_id", event.SessionID)
			return &ReconcileResult{Outcome: ReconcileIgnored}, nil
		}
		if event.SessionID != "" {
			session, err := s.gateways.Stripe.RetrieveSession(ctx, event.SessionID)
			if err != nil {
				logger.Warnw("stripe_session_retrieve_failed", "session_id", event.SessionID, "error", err)
			} else {
				if session.PaymentMethodType != "" {
					ev.MethodType = session.PaymentMethodType
				}
				if session.PaymentIntentID != "" {
					ev.TransactionID = session.PaymentIntentID
				}
			}
		}
		return s.Settle(ctx, ev)
	case constants.StripeEventPaymentIntentSucceeded:
		return s.Settle(ctx, ev)
	case constants.StripeEventCheckoutAsyncFailed, constants.StripeEventPaymentIntentPaymentFailed:
		return s.markFailed(ctx, ev)
	default:
		logger.Infow("stripe_webhook_ignored", "event_id", event.ID, "event_type", event.Type)
		return &ReconcileResult{Outcome: ReconcileIgnored}, nil
	}
}

func stripeGatewayEvent(event *stripe.Event, now time.Time) GatewayEvent {
	methodType := event.PaymentMethodType
	if methodType == "" && len(event.PaymentMethodTypes) == 1 {
		methodType = event.PaymentMethodTypes[0]
	}
	paidAt := event.Created
	if paidAt.IsZero() {
		paidAt = now
	}
	return GatewayEvent{
		Gateway:       constants.GatewayStripe,
		EventType:     event.Type,
		GatewayRef:    event.GatewayRef(),
		SessionRef:    event.SessionID,
		TransactionID: event.TransactionID(),
		Amount:        event.Amount,
		Currency:      event.Currency,
		MethodType:    methodType,
		Metadata:      event.Metadata,
		CustomerEmail: event.CustomerEmail,
		PaidAt:        paidAt.UTC(),
		Raw:           event.Raw,
	}
}

// HandleOmiseWebhook verifies the event signature, then trusts only the
// charge as re-read from the gateway.
func (s *ReconcileService) HandleOmiseWebhook(ctx context.Context, headers http.Header, body []byte) (*ReconcileResult, error) {
	ctx, span := reconcileTracer.Start(ctx, "reconcile.omise_webhook")
	defer span.End()

	if s.gateways.Omise == nil {
		return nil, ErrGatewayDisabled
	}
	event, err := s.gateways.Omise.VerifyWebhook(headers, body, s.now())
	if err != nil {
		s.metrics.IncWebhook(string(constants.GatewayOmise), "invalid")
		span.RecordError(err)
		if errors.Is(err, omise.ErrSignatureInvalid) || errors.Is(err, omise.ErrConfigInvalid) {
			logger.Warnw("omise_webhook_signature_invalid", "error", err)
			return nil, ErrSignatureInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayloadInvalid, err)
	}
	span.SetAttributes(
		attribute.String("omise.event_id", event.ID),
		attribute.String("omise.event_key", event.Key),
	)

	chargeID := event.ChargeID()
	if event.Key != constants.OmiseEventChargeComplete || chargeID == "" {
		logger.Infow("omise_webhook_ignored", "event_id", event.ID, "event_key", event.Key)
		s.metrics.IncWebhook(string(constants.GatewayOmise), ReconcileIgnored)
		return &ReconcileResult{Outcome: ReconcileIgnored}, nil
	}
	charge, err := s.gateways.Omise.RetrieveCharge(ctx, chargeID)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncWebhook(string(constants.GatewayOmise), "error")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)

	result, err := s.applyOmiseCharge(ctx, charge, event.Key, raw)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncWebhook(string(constants.GatewayOmise), "error")
		return nil, err
	}
	span.SetAttributes(attribute.String("reconcile.outcome", result.Outcome))
	s.metrics.IncWebhook(string(constants.GatewayOmise), result.Outcome)
	return result, nil
}

func (s *ReconcileService) applyOmiseCharge(ctx context.Context, charge *omise.Charge, eventType string, raw map[string]interface{}) (*ReconcileResult, error) {
	ev := omiseGatewayEvent(charge, eventType, raw, s.now())
	switch {
	case charge.Status == constants.OmiseChargeStatusSuccessful && charge.Paid:
		return s.Settle(ctx, ev)
	case charge.Status == constants.OmiseChargeStatusFailed || charge.Status == constants.OmiseChargeStatusExpired:
		return s.markFailed(ctx, ev)
	default:
		return &ReconcileResult{Outcome: ReconcileIgnored}, nil
	}
}

func omiseGatewayEvent(charge *omise.Charge, eventType string, raw map[string]interface{}, now time.Time) GatewayEvent {
	return GatewayEvent{
		Gateway:       constants.GatewayOmise,
		EventType:     eventType,
		GatewayRef:    charge.ID,
		SessionRef:    charge.ID,
		TransactionID: charge.ID,
		Amount:        charge.Amount,
		Currency:      strings.ToUpper(charge.Currency),
		MethodType:    charge.MethodType(),
		Metadata:      charge.Metadata,
		PaidAt:        charge.PaidTime(now),
		Raw:           raw,
	}
}

// Settle applies a successful payment event. Events that match no order
// land in the pending payment bucket and still count as handled.
func (s *ReconcileService) Settle(ctx context.Context, ev GatewayEvent) (*ReconcileResult, error) {
	order, matchedBy, err := s.lookupOrder(ev)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return s.recordUnmatched(ev)
	}
	if matchedBy != matchedBySession && ev.SessionRef != "" {
		changed, err := s.orderRepo.BackfillSessionID(order.ID, ev.SessionRef)
		if err != nil {
			logger.Warnw("order_session_backfill_failed", "order_id", order.ID, "error", err)
		} else if changed {
			order.GatewaySessionID = ev.SessionRef
			logger.Infow("order_session_backfilled",
				"order_id", order.ID,
				"session_id", ev.SessionRef,
				"matched_by", matchedBy,
			)
		}
	}
	result, err := s.settleOrder(ctx, order, ev, nil)
	if err != nil {
		return nil, err
	}
	result.MatchedBy = matchedBy
	return result, nil
}

// lookupOrder tries the stored session id, then metadata order id, then
// metadata order number.
func (s *ReconcileService) lookupOrder(ev GatewayEvent) (*models.Order, string, error) {
	if ref := strings.TrimSpace(ev.SessionRef); ref != "" {
		order, err := s.orderRepo.GetBySessionID(ref)
		if err != nil {
			return nil, "", ErrOrderFetchFailed
		}
		if order != nil {
			return order, matchedBySession, nil
		}
	}
	if raw := strings.TrimSpace(ev.Metadata[constants.MetadataOrderID]); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
			order, err := s.orderRepo.GetByID(uint(id))
			if err != nil {
				return nil, "", ErrOrderFetchFailed
			}
			if order != nil {
				return order, matchedByOrderID, nil
			}
		}
	}
	if number := strings.TrimSpace(ev.Metadata[constants.MetadataOrderNumber]); number != "" {
		order, err := s.orderRepo.GetByOrderNumber(number)
		if err != nil {
			return nil, "", ErrOrderFetchFailed
		}
		if order != nil {
			return order, matchedByOrderNumber, nil
		}
	}
	return nil, "", nil
}

// settleOrder marks the order paid and upserts its payment row in one
// transaction. The existing row decides whether this transaction was
// already settled, in which case nothing is written or fired again.
func (s *ReconcileService) settleOrder(ctx context.Context, order *models.Order, ev GatewayEvent, within func(tx *gorm.DB) error) (*ReconcileResult, error) {
	if strings.TrimSpace(ev.TransactionID) == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrWebhookPayloadInvalid)
	}
	expected := ToMinorUnits(order.FinalAmount.Decimal)
	if ev.Amount > 0 && ev.Amount != expected {
		logger.Warnw("settlement_amount_differs",
			"order_id", order.ID,
			"gateway", ev.Gateway,
			"event_amount", ev.Amount,
			"order_amount", expected,
		)
	}

	paidAt := ev.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now().UTC()
	}
	method := constants.PaymentMethodFromGateway(ev.MethodType, order.PaymentMethod)
	var duplicate bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.orderRepo.WithTx(tx).LockByID(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		existing, err := s.paymentInfoRepo.WithTx(tx).GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		if existing.AlreadySettled(ev.Gateway, ev.TransactionID) {
			duplicate = true
			return nil
		}

		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusConfirmed,
			"payment_method": method,
			"paid_at":        paidAt,
			"updated_at":     s.now(),
		}
		status := locked.Status
		if status == constants.OrderStatusPending || status == constants.OrderStatusProcessing {
			status = constants.OrderStatusPaid
			updates["status"] = status
		}
		if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, updates); err != nil {
			return err
		}

		info := models.PaymentInfo{}
		if existing != nil {
			info = *existing
		}
		info.OrderID = order.ID
		info.Gateway = ev.Gateway
		info.Method = method
		info.TransactionID = ev.TransactionID
		info.Status = constants.PaymentStatusConfirmed
		info.PaymentDate = &paidAt
		info.EventType = ev.EventType
		info.Amount = order.FinalAmount
		if ev.Amount > 0 {
			info.Amount = models.MoneyFromMinorUnits(ev.Amount)
		}
		if ev.Raw != nil {
			info.RawPayload = models.JSON(ev.Raw)
		}
		if err := s.paymentInfoRepo.WithTx(tx).UpsertByOrderID(&info); err != nil {
			return err
		}
		if within != nil {
			if err := within(tx); err != nil {
				return err
			}
		}

		order.Status = status
		order.PaymentStatus = constants.PaymentStatusConfirmed
		order.PaymentMethod = method
		order.PaidAt = &paidAt
		order.PaymentInfo = &info
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrPendingPaymentNotOpen) {
			return nil, err
		}
		logger.Errorw("settlement_write_failed", "order_id", order.ID, "gateway", ev.Gateway, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	if duplicate {
		logger.Infow("settlement_duplicate_skipped",
			"order_id", order.ID,
			"gateway", ev.Gateway,
			"transaction_id", ev.TransactionID,
		)
		return &ReconcileResult{Outcome: ReconcileDuplicate, Order: order}, nil
	}
	logger.Infow("order_payment_settled",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"gateway", ev.Gateway,
		"transaction_id", ev.TransactionID,
		"payment_method", method,
	)
	fireSettlementEffects(s.notifier, s.discounts, order, ev.Gateway, ev.TransactionID)
	return &ReconcileResult{Outcome: ReconcileSettled, Order: order}, nil
}

// recordUnmatched keeps the event for manual reconciliation. Redelivery
// of the same event finds the existing row.
func (s *ReconcileService) recordUnmatched(ev GatewayEvent) (*ReconcileResult, error) {
	ref := strings.TrimSpace(ev.GatewayRef)
	if ref == "" {
		ref = strings.TrimSpace(ev.TransactionID)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: event carries no gateway reference", ErrWebhookPayloadInvalid)
	}
	row := &models.PendingPayment{
		Gateway:             ev.Gateway,
		GatewayRef:          ref,
		TransactionID:       ev.TransactionID,
		EventType:           ev.EventType,
		Amount:              models.MoneyFromMinorUnits(ev.Amount),
		Currency:            strings.ToUpper(ev.Currency),
		MetadataOrderID:     ev.Metadata[constants.MetadataOrderID],
		MetadataOrderNumber: ev.Metadata[constants.MetadataOrderNumber],
		CustomerEmail:       ev.CustomerEmail,
		Status:              models.PendingPaymentStatusOpen,
	}
	if ev.Raw != nil {
		row.RawPayload = models.JSON(ev.Raw)
	}
	created, err := s.pendingRepo.CreateIfAbsent(row)
	if err != nil {
		logger.Errorw("pending_payment_record_failed", "gateway", ev.Gateway, "gateway_ref", ref, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	if !created {
		logger.Infow("pending_payment_already_recorded", "gateway", ev.Gateway, "gateway_ref", ref)
		return &ReconcileResult{Outcome: ReconcileUnmatched}, nil
	}
	logger.Warnw("pending_payment_recorded",
		"pending_payment_id", row.ID,
		"gateway", ev.Gateway,
		"gateway_ref", ref,
		"metadata_order_id", row.MetadataOrderID,
		"metadata_order_number", row.MetadataOrderNumber,
	)
	s.notifier.PendingPaymentRecorded(row)
	return &ReconcileResult{Outcome: ReconcileUnmatched, Pending: row}, nil
}

// markFailed flags a still pending payment as rejected. Confirmed orders
// and unknown references are left alone. The pending check is repeated
// under the row lock so a failure racing a settlement cannot undo it.
func (s *ReconcileService) markFailed(ctx context.Context, ev GatewayEvent) (*ReconcileResult, error) {
	order, _, err := s.lookupOrder(ev)
	if err != nil {
		return nil, err
	}
	if order == nil || order.PaymentStatus != constants.PaymentStatusPending {
		return &ReconcileResult{Outcome: ReconcileIgnored, Order: order}, nil
	}
	var stale bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := orderRepo.LockByID(order.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.PaymentStatus != constants.PaymentStatusPending {
			stale = true
			return nil
		}
		changed, err := orderRepo.UpdateFieldsIfPaymentStatus(order.ID, constants.PaymentStatusPending, map[string]interface{}{
			"payment_status": constants.PaymentStatusRejected,
			"updated_at":     s.now(),
		})
		if err != nil {
			return err
		}
		if !changed {
			stale = true
			return nil
		}
		existing, err := s.paymentInfoRepo.WithTx(tx).GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		info := models.PaymentInfo{}
		if existing != nil {
			info = *existing
		}
		info.OrderID = order.ID
		info.Gateway = ev.Gateway
		info.Method = constants.PaymentMethodFromGateway(ev.MethodType, order.PaymentMethod)
		info.TransactionID = ev.TransactionID
		info.Status = constants.PaymentStatusRejected
		info.EventType = ev.EventType
		info.Amount = models.MoneyFromMinorUnits(ev.Amount)
		return s.paymentInfoRepo.WithTx(tx).UpsertByOrderID(&info)
	})
	if err != nil {
		logger.Errorw("payment_reject_write_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	if stale {
		logger.Infow("payment_failure_after_settlement_ignored", "order_id", order.ID, "gateway", ev.Gateway, "event_type", ev.EventType)
		return &ReconcileResult{Outcome: ReconcileIgnored, Order: order}, nil
	}
	logger.Infow("order_payment_rejected", "order_id", order.ID, "gateway", ev.Gateway, "event_type", ev.EventType)
	order.PaymentStatus = constants.PaymentStatusRejected
	return &ReconcileResult{Outcome: ReconcileRejected, Order: order}, nil
}

// VerifyPayment is the return-URL polling target. A pending Omise order
// is re-checked against the gateway and settled when the charge went
// through for the full amount. Stripe orders only ever settle from the
// webhook, so they are reported as stored.
func (s *ReconcileService) VerifyPayment(ctx context.Context, orderNumber string) (*models.Order, error) {
	ctx, span := reconcileTracer.Start(ctx, "reconcile.verify_payment")
	defer span.End()

	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Gateway != constants.GatewayOmise || s.gateways.Omise == nil ||
		order.PaymentStatus != constants.PaymentStatusPending || order.GatewaySessionID == "" {
		return order, nil
	}

	charge, err := s.gateways.Omise.RetrieveCharge(ctx, order.GatewaySessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if charge.Amount != ToMinorUnits(order.FinalAmount.Decimal) {
		logger.Warnw("verify_amount_mismatch",
			"order_id", order.ID,
			"charge_id", charge.ID,
			"charge_amount", charge.Amount,
		)
		return order, nil
	}
	result, err := s.applyOmiseCharge(ctx, charge, "verify", nil)
	if err != nil {
		return nil, err
	}
	if result.Order != nil {
		return result.Order, nil
	}
	return order, nil
}

// ResolvePendingPayment settles an order from a pending payment an admin
// matched by hand and closes the row in the same transaction.
func (s *ReconcileService) ResolvePendingPayment(ctx context.Context, pendingID, orderID uint) (*models.Order, error) {
	row, err := s.pendingRepo.GetByID(pendingID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if row == nil || row.Status != models.PendingPaymentStatusOpen {
		return nil, ErrPendingPaymentNotOpen
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	ev := GatewayEvent{
		Gateway:       row.Gateway,
		EventType:     firstNonEmpty(row.EventType, "manual_resolve"),
		GatewayRef:    row.GatewayRef,
		TransactionID: firstNonEmpty(row.TransactionID, row.GatewayRef),
		Amount:        row.Amount.MinorUnits(),
		Currency:      row.Currency,
		Raw:           row.RawPayload,
	}
	at := s.now()
	result, err := s.settleOrder(ctx, order, ev, func(tx *gorm.DB) error {
		if err := s.pendingRepo.WithTx(tx).MarkResolved(row.ID, order.ID, at); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPendingPaymentNotOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Outcome == ReconcileDuplicate {
		// settled earlier by the gateway itself; only close the row
		if err := s.pendingRepo.MarkResolved(row.ID, order.ID, at); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderUpdateFailed
		}
	}
	logger.Infow("pending_payment_resolved", "pending_payment_id", row.ID, "order_id", order.ID)
	return result.Order, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

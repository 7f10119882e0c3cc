package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leafbox-next/internal/cache"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/queue"
	"github.com/leafbox-next/internal/repository"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"
)

// EmailSender outbound HTML mail
type EmailSender interface {
	Enabled() bool
	AdminRecipients() []string
	SendHTML(ctx context.Context, to []string, subject, html string) error
}

// ChatNotifier chat-ops webhook
type ChatNotifier interface {
	Enabled() bool
	Send(ctx context.Context, msg DiscordMessage) error
}

// NotificationService best-effort fan-out of order and payment events.
// Nothing here ever fails the ledger write that triggered it.
type NotificationService struct {
	orderRepo   repository.OrderRepository
	pendingRepo repository.PendingPaymentRepository
	email       EmailSender
	chat        ChatNotifier
	queueClient *queue.Client
	metrics     *metrics.Metrics
	cfg         config.NotificationConfig
	inflight    sync.WaitGroup
}

// NewNotificationService creates the notification service
func NewNotificationService(
	orderRepo repository.OrderRepository,
	pendingRepo repository.PendingPaymentRepository,
	email EmailSender,
	chat ChatNotifier,
	queueClient *queue.Client,
	m *metrics.Metrics,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		orderRepo:   orderRepo,
		pendingRepo: pendingRepo,
		email:       email,
		chat:        chat,
		queueClient: queueClient,
		metrics:     m,
		cfg:         cfg,
	}
}

// OrderCreated announces a freshly committed order.
func (s *NotificationService) OrderCreated(order *models.Order) {
	if order == nil {
		return
	}
	s.fire(queue.NotificationDispatchPayload{
		Event:   constants.NotificationEventOrderCreated,
		OrderID: order.ID,
	})
}

// PaymentConfirmed announces a settlement. The dedupe key is the
// settlement identity so a replay that slips past the ledger gate is still
// collapsed here.
func (s *NotificationService) PaymentConfirmed(order *models.Order, gateway constants.Gateway, transactionID string) {
	if order == nil {
		return
	}
	s.fire(queue.NotificationDispatchPayload{
		Event:     constants.NotificationEventPaymentConfirmed,
		OrderID:   order.ID,
		DedupeKey: string(gateway) + ":" + transactionID,
	})
}

// SlipSubmitted tells admins a slip is waiting for review.
func (s *NotificationService) SlipSubmitted(order *models.Order, reference string) {
	if order == nil {
		return
	}
	s.fire(queue.NotificationDispatchPayload{
		Event:     constants.NotificationEventSlipSubmitted,
		OrderID:   order.ID,
		DedupeKey: reference,
	})
}

// PendingPaymentRecorded alerts admins about an unmatched gateway event.
func (s *NotificationService) PendingPaymentRecorded(row *models.PendingPayment) {
	if row == nil {
		return
	}
	s.fire(queue.NotificationDispatchPayload{
		Event:            constants.NotificationEventPendingPayment,
		PendingPaymentID: row.ID,
		DedupeKey:        string(row.Gateway) + ":" + row.GatewayRef,
	})
}

// Wait blocks until every inline dispatch started so far has finished.
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.inflight.Wait()
}

func (s *NotificationService) fire(payload queue.NotificationDispatchPayload) {
	if s == nil {
		return
	}
	if s.cfg.UseQueue && s.queueClient != nil && s.queueClient.Enabled() {
		err := s.queueClient.EnqueueNotificationDispatch(payload, asynq.MaxRetry(5))
		if err == nil {
			return
		}
		logger.Warnw("notification_enqueue_failed",
			"event", payload.Event,
			"order_id", payload.OrderID,
			"error", err,
		)
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("notification_dispatch_panic", "event", payload.Event, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout())
		defer cancel()
		if err := s.Dispatch(ctx, payload); err != nil {
			logger.Warnw("notification_dispatch_failed",
				"event", payload.Event,
				"order_id", payload.OrderID,
				"pending_payment_id", payload.PendingPaymentID,
				"error", err,
			)
		}
	}()
}

// Dispatch sends one event to every enabled channel in parallel, each
// bounded by the configured timeout. It is also the queue task handler.
func (s *NotificationService) Dispatch(ctx context.Context, payload queue.NotificationDispatchPayload) error {
	if s == nil {
		return nil
	}
	if !isNotificationEventSupported(payload.Event) {
		return fmt.Errorf("%w %q", ErrUnsupportedNotificationEvent, payload.Event)
	}
	if !s.anyChannelEnabled() {
		return nil
	}
	claimed, err := acquireNotificationDedupe(ctx, s.cfg.DedupeTTLSeconds, payload)
	if err != nil {
		logger.Warnw("notification_dedupe_failed", "event", payload.Event, "error", err)
	}
	if err == nil && !claimed {
		logger.Debugw("notification_skip_duplicate", "event", payload.Event, "order_id", payload.OrderID)
		return nil
	}

	jobs, err := s.buildJobs(payload)
	if err != nil {
		releaseNotificationDedupe(ctx, payload)
		return err
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result error
	)
	for _, job := range jobs {
		wg.Add(1)
		go func(job notificationJob) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
			defer cancel()
			err := job.send(sendCtx)
			if err != nil && sendCtx.Err() == context.DeadlineExceeded {
				err = fmt.Errorf("%w: %v", ErrNotificationTimeout, err)
			}
			if err != nil {
				s.metrics.IncNotification(job.channel, "failed")
				logger.Warnw("notification_"+job.channel+"_send_failed",
					"event", payload.Event,
					"order_id", payload.OrderID,
					"pending_payment_id", payload.PendingPaymentID,
					"error", err,
				)
				mu.Lock()
				result = multierr.Append(result, fmt.Errorf("%s: %w", job.channel, err))
				mu.Unlock()
				return
			}
			s.metrics.IncNotification(job.channel, "sent")
		}(job)
	}
	wg.Wait()
	if result != nil {
		releaseNotificationDedupe(ctx, payload)
	}
	return result
}

func (s *NotificationService) anyChannelEnabled() bool {
	return (s.email != nil && s.email.Enabled()) || (s.chat != nil && s.chat.Enabled())
}

type notificationJob struct {
	channel string
	send    func(ctx context.Context) error
}

func (s *NotificationService) buildJobs(payload queue.NotificationDispatchPayload) ([]notificationJob, error) {
	if payload.Event == constants.NotificationEventPendingPayment {
		return s.buildPendingPaymentJobs(payload)
	}
	if s.orderRepo == nil {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(payload.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	var (
		customerHeading string
		adminHeading    string
		chatTitle       string
		chatColor       int
	)
	switch payload.Event {
	case constants.NotificationEventOrderCreated:
		customerHeading, adminHeading = "Thank you for your order", "New order"
		chatTitle, chatColor = "New order", 0x3498DB
	case constants.NotificationEventPaymentConfirmed:
		customerHeading, adminHeading = "Payment received", "Payment confirmed"
		chatTitle, chatColor = "Payment confirmed", 0x2ECC71
	case constants.NotificationEventSlipSubmitted:
		adminHeading = "Payment slip submitted"
		chatTitle, chatColor = "Payment slip waiting for review", 0xF1C40F
	}

	jobs := make([]notificationJob, 0, 3)
	if s.email != nil && s.email.Enabled() {
		if customerHeading != "" && order.CustomerInfo != nil && strings.TrimSpace(order.CustomerInfo.Email) != "" {
			to := strings.TrimSpace(order.CustomerInfo.Email)
			jobs = append(jobs, notificationJob{
				channel: constants.NotificationChannelEmail,
				send: func(ctx context.Context) error {
					subject, body, err := BuildOrderEmail(order, customerHeading)
					if err != nil {
						return err
					}
					return s.email.SendHTML(ctx, []string{to}, subject, body)
				},
			})
		}
		if admins := s.email.AdminRecipients(); len(admins) > 0 && adminHeading != "" {
			jobs = append(jobs, notificationJob{
				channel: constants.NotificationChannelEmail,
				send: func(ctx context.Context) error {
					subject, body, err := BuildOrderEmail(order, adminHeading)
					if err != nil {
						return err
					}
					return s.email.SendHTML(ctx, admins, subject, body)
				},
			})
		}
	}
	if s.chat != nil && s.chat.Enabled() && chatTitle != "" {
		jobs = append(jobs, notificationJob{
			channel: constants.NotificationChannelDiscord,
			send: func(ctx context.Context) error {
				return s.chat.Send(ctx, BuildOrderDiscordMessage(order, chatTitle, chatColor))
			},
		})
	}
	return jobs, nil
}

func (s *NotificationService) buildPendingPaymentJobs(payload queue.NotificationDispatchPayload) ([]notificationJob, error) {
	if s.pendingRepo == nil {
		return nil, ErrPendingPaymentNotOpen
	}
	row, err := s.pendingRepo.GetByID(payload.PendingPaymentID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrPendingPaymentNotOpen
	}
	jobs := make([]notificationJob, 0, 2)
	if s.chat != nil && s.chat.Enabled() {
		jobs = append(jobs, notificationJob{
			channel: constants.NotificationChannelDiscord,
			send: func(ctx context.Context) error {
				return s.chat.Send(ctx, BuildPendingPaymentDiscordMessage(row))
			},
		})
	}
	if s.email != nil && s.email.Enabled() {
		if admins := s.email.AdminRecipients(); len(admins) > 0 {
			jobs = append(jobs, notificationJob{
				channel: constants.NotificationChannelEmail,
				send: func(ctx context.Context) error {
					subject := fmt.Sprintf("Unmatched %s payment %s", row.Gateway, row.GatewayRef)
					body := fmt.Sprintf("<p>No order matched %s reference <strong>%s</strong> for %s.</p>",
						SanitizeText(string(row.Gateway)), SanitizeText(row.GatewayRef), FormatAmount(row.Amount, row.Currency))
					return s.email.SendHTML(ctx, admins, subject, body)
				},
			})
		}
	}
	return jobs, nil
}

func isNotificationEventSupported(event string) bool {
	switch event {
	case constants.NotificationEventOrderCreated,
		constants.NotificationEventPaymentConfirmed,
		constants.NotificationEventSlipSubmitted,
		constants.NotificationEventPendingPayment:
		return true
	default:
		return false
	}
}

func acquireNotificationDedupe(ctx context.Context, ttlSeconds int, payload queue.NotificationDispatchPayload) (bool, error) {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return cache.SetNX(ctx, buildNotificationDedupeKey(payload), time.Duration(ttlSeconds)*time.Second)
}

func releaseNotificationDedupe(ctx context.Context, payload queue.NotificationDispatchPayload) {
	if err := cache.Del(ctx, buildNotificationDedupeKey(payload)); err != nil {
		logger.Debugw("notification_dedupe_release_failed", "event", payload.Event, "error", err)
	}
}

func buildNotificationDedupeKey(payload queue.NotificationDispatchPayload) string {
	signature := strings.Builder{}
	signature.WriteString(strings.ToLower(strings.TrimSpace(payload.Event)))
	signature.WriteString("|")
	signature.WriteString(fmt.Sprintf("%d", payload.OrderID))
	signature.WriteString("|")
	signature.WriteString(fmt.Sprintf("%d", payload.PendingPaymentID))
	signature.WriteString("|")
	signature.WriteString(strings.TrimSpace(payload.DedupeKey))
	hash := sha1.Sum([]byte(signature.String()))
	return constants.CacheKeyDedupePrefix + hex.EncodeToString(hash[:])
}

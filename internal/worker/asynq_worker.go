package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/provider"
	"github.com/leafbox-next/internal/queue"
	"github.com/leafbox-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer async task consumer
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds every task type to its handler
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
	mux.HandleFunc(queue.TaskDiscountUsage, c.handleDiscountUsage)
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_notification_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Event == "" || (payload.OrderID == 0 && payload.PendingPaymentID == 0) {
		logger.Debugw("worker_notification_skip_invalid_payload",
			"event", payload.Event,
			"order_id", payload.OrderID,
			"pending_payment_id", payload.PendingPaymentID,
		)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_skip_service_nil", "event", payload.Event)
		return nil
	}
	err := c.NotificationService.Dispatch(ctx, payload)
	if err == nil {
		return nil
	}
	if isPermanentNotificationError(err) {
		logger.Warnw("worker_notification_dropped",
			"event", payload.Event,
			"order_id", payload.OrderID,
			"pending_payment_id", payload.PendingPaymentID,
			"error", err,
		)
		return nil
	}
	logger.Warnw("worker_notification_dispatch_failed",
		"event", payload.Event,
		"order_id", payload.OrderID,
		"error", err,
	)
	return err
}

func (c *Consumer) handleDiscountUsage(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_discount_usage_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DiscountUsagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_discount_usage_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.DiscountCodeID == 0 {
		logger.Debugw("worker_discount_usage_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.DiscountService == nil {
		logger.Warnw("worker_discount_usage_skip_service_nil", "discount_code_id", payload.DiscountCodeID)
		return nil
	}
	if err := c.DiscountService.ApplyUsageIncrement(ctx, payload.DiscountCodeID); err != nil {
		logger.Warnw("worker_discount_usage_failed",
			"discount_code_id", payload.DiscountCodeID,
			"order_id", payload.OrderID,
			"error", err,
		)
		return err
	}
	logger.Debugw("worker_discount_usage_applied", "discount_code_id", payload.DiscountCodeID, "order_id", payload.OrderID)
	return nil
}

// isPermanentNotificationError reports failures a retry cannot fix.
func isPermanentNotificationError(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrPendingPaymentNotOpen) ||
		errors.Is(err, service.ErrUnsupportedNotificationEvent)
}

package queue

import (
	"encoding/json"

	"github.com/leafbox-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch fan out one notification event
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskDiscountUsage increment a discount code usage counter
	TaskDiscountUsage = constants.TaskDiscountUsage
)

// NotificationDispatchPayload notification task payload
type NotificationDispatchPayload struct {
	Event            string `json:"event"`
	OrderID          uint   `json:"order_id,omitempty"`
	PendingPaymentID uint   `json:"pending_payment_id,omitempty"`
	DedupeKey        string `json:"dedupe_key,omitempty"`
}

// DiscountUsagePayload discount usage task payload
type DiscountUsagePayload struct {
	DiscountCodeID uint `json:"discount_code_id"`
	OrderID        uint `json:"order_id"`
}

// NewNotificationDispatchTask builds a notification task
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewDiscountUsageTask builds a discount usage task
func NewDiscountUsageTask(payload DiscountUsagePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDiscountUsage, body), nil
}

package service

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderFetchFailed        = errors.New("order fetch failed")
	ErrOrderCreateFailed       = errors.New("order create failed")
	ErrOrderUpdateFailed       = errors.New("order update failed")
	ErrOrderNumberExhausted    = errors.New("order number sequence exhausted for this month")
	ErrInvalidOrderItem        = errors.New("invalid order item")
	ErrInvalidOrderInput       = errors.New("invalid order input")
	ErrProductNotFound         = errors.New("product not found")
	ErrProductNotAvailable     = errors.New("product not available")
	ErrLocationNotFound        = errors.New("location not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")

	ErrDiscountInvalid    = errors.New("discount code invalid")
	ErrDiscountExpired    = errors.New("discount code expired")
	ErrDiscountUsedUp     = errors.New("discount code usage limit reached")
	ErrDiscountMinAmount  = errors.New("discount code minimum amount not met")
	ErrShippingSettingBad = errors.New("shipping setting invalid")

	ErrGatewayDisabled       = errors.New("payment gateway disabled")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrPaymentRejected       = errors.New("payment rejected by gateway")
	ErrAmountMismatch        = errors.New("payment amount mismatch")
	ErrAmountBelowMinimum    = errors.New("order total too small for online payment")
	ErrSignatureInvalid      = errors.New("webhook signature invalid")
	ErrWebhookPayloadInvalid = errors.New("webhook payload invalid")
	ErrPaymentNotPending     = errors.New("payment is not pending")
	ErrSlipNotAllowed        = errors.New("slip submission not allowed for this order")
	ErrPendingPaymentNotOpen = errors.New("pending payment not found or already resolved")

	ErrNotificationTimeout          = errors.New("notification dispatch timed out")
	ErrUnsupportedNotificationEvent = errors.New("unsupported notification event")
	ErrEmailServiceDisabled         = errors.New("email service disabled")
	ErrEmailServiceNotConfigured    = errors.New("email service not configured")
	ErrInvalidEmail                 = errors.New("invalid email address")
	ErrEmailRecipientRejected       = errors.New("email recipient rejected")
	ErrDiscordDisabled              = errors.New("discord notification disabled")
)

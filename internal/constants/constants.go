package constants

// Payment gateway tags. Part of the notification idempotency key.
type Gateway string

const (
	GatewayManual Gateway = "manual"
	GatewayOmise  Gateway = "omise"
	GatewayStripe Gateway = "stripe"
)

// Valid reports whether g is a known gateway.
func (g Gateway) Valid() bool {
	switch g {
	case GatewayManual, GatewayOmise, GatewayStripe:
		return true
	}
	return false
}

// Stripe webhook event types
const (
	StripeEventCheckoutCompleted          = "checkout.session.completed"
	StripeEventCheckoutAsyncSucceeded     = "checkout.session.async_payment_succeeded"
	StripeEventCheckoutAsyncFailed        = "checkout.session.async_payment_failed"
	StripeEventCheckoutExpired            = "checkout.session.expired"
	StripeEventPaymentIntentSucceeded     = "payment_intent.succeeded"
	StripeEventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// Omise charge statuses and webhook events
const (
	OmiseChargeStatusSuccessful = "successful"
	OmiseChargeStatusPending    = "pending"
	OmiseChargeStatusFailed     = "failed"
	OmiseChargeStatusExpired    = "expired"
	OmiseChargeStatusReversed   = "reversed"

	OmiseEventChargeComplete = "charge.complete"
	OmiseEventChargeCreate   = "charge.create"
	OmiseEventChargeUpdate   = "charge.update"
)

// Gateway metadata keys written on charges and sessions.
const (
	MetadataOrderID     = "order_id"
	MetadataOrderNumber = "order_number"
	MetadataProductID   = "product_id"
)

// Ship-to-recipient sentinel location. The ids point at seeded rows so
// the non-null foreign keys on shipping_infos hold.
const (
	ShipToRecipientProvinceID = 1
	ShipToRecipientAmphureID  = 1
	ShipToRecipientTambonID   = 1
	ShipToRecipientLabel      = "ship to recipient"
)

// Queue names and task types
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskNotificationDispatch = "notification:dispatch"
	TaskDiscountUsage        = "discount:usage_increment"
)

// Notification events
const (
	NotificationEventOrderCreated     = "order_created"
	NotificationEventPaymentConfirmed = "payment_confirmed"
	NotificationEventSlipSubmitted    = "slip_submitted"
	NotificationEventPendingPayment   = "pending_payment_unmatched"
)

// Notification channels
const (
	NotificationChannelEmail   = "email"
	NotificationChannelDiscord = "discord"
)

// Setting keys
const (
	SettingKeyShipping = "shipping"
)

// Cache defaults
const (
	RedisPrefixDefault   = "lb"
	CacheKeyShipping     = "setting:shipping"
	CacheKeyDedupePrefix = "notification:dedupe:"
)

// Currency
const (
	CurrencyTHB = "THB"
)

// Order number shape: YYMM + 3 digit monthly sequence.
const (
	OrderNumberPrefixLayout = "0601"
	OrderNumberSeqDigits    = 3
	OrderNumberSeqMax       = 999
)

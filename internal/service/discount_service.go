package service

import (
	"context"
	"strings"
	"time"

	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/queue"
	"github.com/leafbox-next/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// DiscountService discount code evaluation and usage bookkeeping
type DiscountService struct {
	repo        repository.DiscountRepository
	queueClient *queue.Client
}

// NewDiscountService creates the discount service
func NewDiscountService(repo repository.DiscountRepository, queueClient *queue.Client) *DiscountService {
	return &DiscountService{repo: repo, queueClient: queueClient}
}

// AppliedDiscount evaluated discount code
type AppliedDiscount struct {
	Code   *models.DiscountCode
	Amount decimal.Decimal
}

// Evaluate resolves code against subtotal. An empty code yields a zero discount.
func (s *DiscountService) Evaluate(code string, subtotal decimal.Decimal, now time.Time) (*AppliedDiscount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &AppliedDiscount{Amount: decimal.Zero}, nil
	}
	if s == nil || s.repo == nil {
		return nil, ErrDiscountInvalid
	}
	row, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return nil, ErrDiscountInvalid
	}
	if row.StartsAt != nil && now.Before(*row.StartsAt) {
		return nil, ErrDiscountInvalid
	}
	if row.EndsAt != nil && now.After(*row.EndsAt) {
		return nil, ErrDiscountExpired
	}
	if row.UsageLimit > 0 && row.UsedCount >= row.UsageLimit {
		return nil, ErrDiscountUsedUp
	}
	if subtotal.LessThan(row.MinAmount.Decimal) {
		return nil, ErrDiscountMinAmount
	}

	var amount decimal.Decimal
	switch row.Type {
	case models.DiscountTypeFixed:
		amount = row.Value.Decimal
	case models.DiscountTypePercent:
		amount = subtotal.Mul(row.Value.Decimal).Div(hundred)
		if row.MaxDiscount.IsPositive() && amount.GreaterThan(row.MaxDiscount.Decimal) {
			amount = row.MaxDiscount.Decimal
		}
	default:
		return nil, ErrDiscountInvalid
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return &AppliedDiscount{Code: row, Amount: amount.Round(2)}, nil
}

// IncrementUsage bumps the used counter of a redeemed code. It never
// fails the caller: with the queue enabled the increment is handed to the
// worker, otherwise it runs in place and a failure is only logged.
func (s *DiscountService) IncrementUsage(ctx context.Context, codeID uint, orderID uint) {
	if s == nil || codeID == 0 {
		return
	}
	if s.queueClient != nil && s.queueClient.Enabled() {
		err := s.queueClient.EnqueueDiscountUsage(queue.DiscountUsagePayload{
			DiscountCodeID: codeID,
			OrderID:        orderID,
		}, asynq.MaxRetry(3))
		if err == nil {
			return
		}
		logger.Warnw("discount_usage_enqueue_failed", "discount_code_id", codeID, "order_id", orderID, "error", err)
	}
	if err := s.ApplyUsageIncrement(ctx, codeID); err != nil {
		logger.Warnw("discount_usage_increment_failed", "discount_code_id", codeID, "order_id", orderID, "error", err)
	}
}

// ApplyUsageIncrement atomic used_count + 1 at the storage layer.
func (s *DiscountService) ApplyUsageIncrement(_ context.Context, codeID uint) error {
	if s == nil || s.repo == nil || codeID == 0 {
		return nil
	}
	return s.repo.IncrementUsedCount(codeID, 1)
}

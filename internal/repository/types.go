package repository

import "time"

// OrderListFilter admin order list filter
type OrderListFilter struct {
	Page          int
	PageSize      int
	Status        string
	PaymentStatus string
	Gateway       string
	OrderNumber   string
	Search        string
	UserID        *uint
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PendingPaymentListFilter pending payment list filter
type PendingPaymentListFilter struct {
	Page     int
	PageSize int
	Gateway  string
	Status   string
	Search   string
}


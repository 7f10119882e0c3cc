package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/repository"

	"gorm.io/gorm"
)

// OrderNumberGenerator hands out YYMM### numbers. The read of the current
// maximum is not atomic with the insert; callers retry on a unique violation.
type OrderNumberGenerator struct {
	orderRepo repository.OrderRepository
	location  *time.Location
}

// NewOrderNumberGenerator creates the generator. loc decides where a month starts.
func NewOrderNumberGenerator(orderRepo repository.OrderRepository, loc *time.Location) *OrderNumberGenerator {
	if loc == nil {
		loc = time.Local
	}
	return &OrderNumberGenerator{orderRepo: orderRepo, location: loc}
}

// Prefix YYMM for now in the generator timezone
func (g *OrderNumberGenerator) Prefix(now time.Time) string {
	return now.In(g.location).Format(constants.OrderNumberPrefixLayout)
}

// Next returns the next free number of now's month as seen through tx.
func (g *OrderNumberGenerator) Next(tx *gorm.DB, now time.Time) (string, error) {
	prefix := g.Prefix(now)
	repo := g.orderRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	latest, err := repo.LatestOrderNumberWithPrefix(prefix)
	if err != nil {
		return "", err
	}
	seq, err := nextSequence(prefix, latest)
	if err != nil {
		return "", err
	}
	return formatOrderNumber(prefix, seq), nil
}

func nextSequence(prefix, latest string) (int, error) {
	latest = strings.TrimSpace(latest)
	if latest == "" {
		return 1, nil
	}
	if !strings.HasPrefix(latest, prefix) || len(latest) != len(prefix)+constants.OrderNumberSeqDigits {
		return 0, fmt.Errorf("unexpected order number %q for prefix %s", latest, prefix)
	}
	seq, err := strconv.Atoi(latest[len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("parse order number %q: %w", latest, err)
	}
	if seq >= constants.OrderNumberSeqMax {
		return 0, ErrOrderNumberExhausted
	}
	return seq + 1, nil
}

func formatOrderNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, constants.OrderNumberSeqDigits, seq)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceQuery answers cheapest-store questions from the ledger
type PriceQuery struct {
	repo domain.PriceRepository
	now  func() time.Time
}

// NewPriceQuery creates a new price query
func NewPriceQuery(repo domain.PriceRepository, now func() time.Time) *PriceQuery {
	if now == nil {
		now = time.Now
	}
	return &PriceQuery{repo: repo, now: now}
}

// CheapestStore finds every store with a price for items whose name contains
// itemName (ignoring case) observed within maxDays, cheapest first.
func (q *PriceQuery) CheapestStore(ctx context.Context, itemName string, maxDays int) (*domain.CheapestStoreResult, error) {
	query := domain.NormalizeItemName(itemName)
	if query == "" {
		return nil, domain.NewValidationError("itemName", "is required")
	}

	observations, err := q.repo.FindByItemName(ctx, query, windowStart(q.now(), maxDays))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("%w for %q", domain.ErrPriceNotFound, strings.TrimSpace(itemName))
	}

	entries := cheapestPerStore(observations)

	return &domain.CheapestStoreResult{
		ItemName:      strings.TrimSpace(itemName),
		CheapestStore: entries[0],
		AllStores:     entries,
		Savings:       computeSavings(entries),
	}, nil
}

// windowStart is the oldest observation time a maxDays lookback accepts
func windowStart(now time.Time, maxDays int) time.Time {
	return now.UTC().Add(-time.Duration(maxDays) * 24 * time.Hour)
}

// cheapestPerStore keeps the lowest price per store (ties go to the most recent
// observation) and returns the entries sorted by ascending price, then store.
func cheapestPerStore(observations []domain.PriceObservation) []domain.StorePriceEntry {
	byStore := make(map[string]domain.StorePriceEntry, len(observations))

	for _, obs := range observations {
		current, seen := byStore[obs.Store]
		if seen {
			if obs.Price.GreaterThan(current.Price) {
				continue
			}
			if obs.Price.Equal(current.Price) && !obs.ObservedAt.After(current.ObservedAt) {
				continue
			}
		}
		byStore[obs.Store] = domain.StorePriceEntry{
			Store:       obs.Store,
			Price:       obs.Price,
			ObservedAt:  obs.ObservedAt,
			Unit:        obs.Unit,
			Verified:    obs.Verified,
			ReportCount: obs.ReportCount,
		}
	}

	entries := make([]domain.StorePriceEntry, 0, len(byStore))
	for _, entry := range byStore {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Price.Equal(entries[j].Price) {
			return entries[i].Price.LessThan(entries[j].Price)
		}
		return entries[i].Store < entries[j].Store
	})

	return entries
}

// computeSavings compares the extremes of a price-sorted entry list.
// A single store has nothing to compare against.
func computeSavings(entries []domain.StorePriceEntry) *domain.Savings {
	if len(entries) < 2 {
		return nil
	}

	minPrice := entries[0].Price
	maxPrice := entries[len(entries)-1].Price
	amount := maxPrice.Sub(minPrice)

	percentage := decimal.Zero
	if maxPrice.IsPositive() {
		percentage = amount.Div(maxPrice).Mul(hundred)
	}

	return &domain.Savings{
		Amount:     amount.Round(2),
		Percentage: percentage.Round(2),
	}
}

// percentOf returns part/whole as a percentage rounded to 2 places
func percentOf(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))).Round(2)
}

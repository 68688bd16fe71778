package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/logx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Prices must fit the NUMERIC(14,4) ledger column without rounding
const priceScale = 4

var maxPrice = decimal.New(1, 10)

// LedgerConfig holds configuration for the price ledger
type LedgerConfig struct {
	Window                time.Duration
	VerificationThreshold int
	Now                   func() time.Time
}

// PriceLedger records price reports, folding repeated reports of the same
// (item, store) pair inside the rolling window into one record.
type PriceLedger struct {
	repo      domain.PriceRepository
	window    time.Duration
	threshold int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPriceLedger creates a new price ledger with the given configuration
func NewPriceLedger(repo domain.PriceRepository, config LedgerConfig) *PriceLedger {
	window := config.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	threshold := config.VerificationThreshold
	if threshold <= 0 {
		threshold = 3
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &PriceLedger{
		repo:      repo,
		window:    window,
		threshold: threshold,
		now:       now,
		logger:    logx.Component("price_ledger"),
	}
}

// RecordPrice stores a price report. A prior record matches when its item name is
// equal ignoring case, its store is the same and it was opened inside the window;
// a match is updated in place, otherwise a new record is opened.
func (l *PriceLedger) RecordPrice(ctx context.Context, report *domain.PriceReport) (*domain.PriceObservation, error) {
	if err := validateReport(report); err != nil {
		return nil, err
	}

	now := l.now().UTC().Truncate(time.Microsecond)
	key := domain.LedgerKey{
		ItemKey: domain.NormalizeItemName(report.ItemName),
		Store:   strings.TrimSpace(report.Store),
	}
	price := *report.Price

	unit := strings.TrimSpace(report.Unit)
	if unit == "" {
		unit = domain.DefaultUnit
	}

	obs, err := l.repo.UpsertObservation(ctx, key, now.Add(-l.window), func(existing *domain.PriceObservation) (*domain.PriceObservation, error) {
		if existing == nil {
			return &domain.PriceObservation{
				ID:             uuid.New().String(),
				ItemName:       strings.TrimSpace(report.ItemName),
				ItemKey:        key.ItemKey,
				Category:       strings.TrimSpace(report.Category),
				Store:          key.Store,
				Price:          price,
				Unit:           unit,
				ObservedAt:     now,
				LastReportedAt: now,
				ReportCount:    1,
				Verified:       1 >= l.threshold,
				ReporterID:     report.ReporterID,
			}, nil
		}

		updated := *existing
		updated.Price = price
		updated.ReportCount++
		updated.Verified = updated.ReportCount >= l.threshold
		updated.LastReportedAt = now
		if report.ReporterID != "" {
			updated.ReporterID = report.ReporterID
		}
		return &updated, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	l.logger.Debug().
		Str("item", obs.ItemName).
		Str("store", obs.Store).
		Str("price", obs.Price.String()).
		Int("reportCount", obs.ReportCount).
		Bool("verified", obs.Verified).
		Msg("price recorded")

	return obs, nil
}

// validateReport checks the fields every report must carry
func validateReport(report *domain.PriceReport) error {
	if report == nil {
		return domain.NewValidationError("report", "is required")
	}
	if strings.TrimSpace(report.ItemName) == "" {
		return domain.NewValidationError("itemName", "is required")
	}
	if strings.TrimSpace(report.Category) == "" {
		return domain.NewValidationError("category", "is required")
	}
	if strings.TrimSpace(report.Store) == "" {
		return domain.NewValidationError("store", "is required")
	}
	if report.Price == nil {
		return domain.NewValidationError("price", "is required")
	}
	if report.Price.IsNegative() {
		return domain.NewValidationError("price", "must not be negative")
	}
	if !report.Price.Equal(report.Price.Round(priceScale)) {
		return domain.NewValidationError("price", fmt.Sprintf("must have at most %d decimal places", priceScale))
	}
	if report.Price.GreaterThanOrEqual(maxPrice) {
		return domain.NewValidationError("price", "must be less than "+maxPrice.String())
	}
	return nil
}

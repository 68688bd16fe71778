package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// CoverageAnalyzer works out which stores can supply which list items and at what cost
type CoverageAnalyzer struct {
	repo domain.PriceRepository
	now  func() time.Time
}

// NewCoverageAnalyzer creates a new coverage analyzer
func NewCoverageAnalyzer(repo domain.PriceRepository, now func() time.Time) *CoverageAnalyzer {
	if now == nil {
		now = time.Now
	}
	return &CoverageAnalyzer{repo: repo, now: now}
}

// storeTally accumulates one store's coverage while items are scanned
type storeTally struct {
	store     string
	itemIDs   []string
	seenItems map[string]struct{}
	totalCost decimal.Decimal
}

// Analyze splits the list into priced and unpriced items and aggregates, per
// store, how many distinct items it offers and what they would cost there.
// Stores are ranked by coverage descending, then total cost ascending.
func (a *CoverageAnalyzer) Analyze(ctx context.Context, items []domain.ShoppingListItem, maxDays int) (*domain.CoverageAnalysis, error) {
	since := windowStart(a.now(), maxDays)

	analysis := &domain.CoverageAnalysis{
		TotalItems:         len(items),
		PerStore:           []domain.StoreCoverage{},
		ItemsWithPrices:    []domain.PricedItem{},
		ItemsWithoutPrices: []domain.UnpricedItem{},
	}

	// Lists often repeat a name; look each one up once per call.
	lookups := make(map[string][]domain.StorePriceEntry)
	tallies := make(map[string]*storeTally)
	var storeOrder []string

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}

		query := domain.NormalizeItemName(item.Name)
		entries, cached := lookups[query]
		if !cached && query != "" {
			observations, err := a.repo.FindByItemName(ctx, query, since)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
			}
			entries = cheapestPerStore(observations)
			lookups[query] = entries
		}

		if len(entries) == 0 {
			analysis.ItemsWithoutPrices = append(analysis.ItemsWithoutPrices, domain.UnpricedItem{
				ID:             item.ID,
				Name:           item.Name,
				EstimatedPrice: item.EstimatedPrice,
				Quantity:       quantity,
			})
			continue
		}

		qty := decimal.NewFromInt(int64(quantity))
		prices := make([]domain.StoreItemPrice, 0, len(entries))

		for _, entry := range entries {
			lineTotal := entry.Price.Mul(qty)
			prices = append(prices, domain.StoreItemPrice{
				Store:      entry.Store,
				Price:      entry.Price,
				TotalPrice: lineTotal,
			})

			tally, ok := tallies[entry.Store]
			if !ok {
				tally = &storeTally{
					store:     entry.Store,
					seenItems: make(map[string]struct{}),
				}
				tallies[entry.Store] = tally
				storeOrder = append(storeOrder, entry.Store)
			}
			if _, dup := tally.seenItems[item.ID]; dup {
				continue
			}
			tally.seenItems[item.ID] = struct{}{}
			tally.itemIDs = append(tally.itemIDs, item.ID)
			tally.totalCost = tally.totalCost.Add(lineTotal)
		}

		analysis.ItemsWithPrices = append(analysis.ItemsWithPrices, domain.PricedItem{
			ID:             item.ID,
			Name:           item.Name,
			EstimatedPrice: item.EstimatedPrice,
			Quantity:       quantity,
			Prices:         prices,
		})
	}

	for _, store := range storeOrder {
		tally := tallies[store]
		found := len(tally.itemIDs)

		average := decimal.Zero
		if found > 0 {
			average = tally.totalCost.Div(decimal.NewFromInt(int64(found))).Round(2)
		}

		analysis.PerStore = append(analysis.PerStore, domain.StoreCoverage{
			Store:              store,
			ItemsFound:         found,
			TotalCost:          tally.totalCost,
			CoveragePct:        percentOf(found, len(items)),
			AverageCostPerItem: average,
			ItemIDs:            tally.itemIDs,
		})
	}

	rankStores(analysis.PerStore)

	return analysis, nil
}

// rankStores sorts by coverage (higher is better), then total cost (lower is
// better), then store name for determinism.
func rankStores(stores []domain.StoreCoverage) {
	sort.SliceStable(stores, func(i, j int) bool {
		a, b := stores[i], stores[j]
		if a.ItemsFound != b.ItemsFound {
			return a.ItemsFound > b.ItemsFound
		}
		if !a.TotalCost.Equal(b.TotalCost) {
			return a.TotalCost.LessThan(b.TotalCost)
		}
		return a.Store < b.Store
	})
}

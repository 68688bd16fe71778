package usecase

import (
	"fmt"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/logx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StoreSelector picks a bounded set of stores for a list with a greedy
// set-cover approximation and routes each item to its cheapest selected store.
type StoreSelector struct {
	logger zerolog.Logger
}

// NewStoreSelector creates a new store selector
func NewStoreSelector() *StoreSelector {
	return &StoreSelector{logger: logx.Component("store_selector")}
}

// itemPricing indexes the cheapest price of each item at each store
type itemPricing struct {
	quantity map[string]decimal.Decimal
	price    map[string]map[string]decimal.Decimal
}

func indexPricing(items []domain.PricedItem) itemPricing {
	idx := itemPricing{
		quantity: make(map[string]decimal.Decimal, len(items)),
		price:    make(map[string]map[string]decimal.Decimal, len(items)),
	}
	for _, item := range items {
		idx.quantity[item.ID] = decimal.NewFromInt(int64(item.Quantity))
		byStore := make(map[string]decimal.Decimal, len(item.Prices))
		for _, p := range item.Prices {
			if current, ok := byStore[p.Store]; ok && current.LessThanOrEqual(p.Price) {
				continue
			}
			byStore[p.Store] = p.Price
		}
		idx.price[item.ID] = byStore
	}
	return idx
}

// SelectOptimalStores builds the plan from ranked store coverages (best first)
// and the priced list items. totalListItems counts priced and unpriced items.
//
// With one candidate, or maxStores <= 1, the top-ranked store is used alone.
// Otherwise the top-ranked store seeds the selection and each round adds the
// store covering the most still-uncovered items, cheapest additional cost on a
// tie, until maxStores is reached, every candidate is used, everything priced
// is covered, or no candidate adds coverage.
func (s *StoreSelector) SelectOptimalStores(rankings []domain.StoreCoverage, items []domain.PricedItem, totalListItems, maxStores int) (domain.OptimalPlan, error) {
	if len(rankings) == 0 {
		return emptyPlan(), nil
	}

	pricing := indexPricing(items)

	if len(rankings) <= 1 || maxStores <= 1 {
		return s.optimizeItemDistribution([]string{rankings[0].Store}, items, pricing, totalListItems)
	}

	selected := []string{rankings[0].Store}
	chosen := map[string]bool{rankings[0].Store: true}
	covered := make(map[string]bool, len(items))
	for _, id := range rankings[0].ItemIDs {
		covered[id] = true
	}

	for len(selected) < maxStores && len(selected) < len(rankings) && len(covered) < len(items) {
		bestIdx := -1
		bestAdded := 0
		bestCost := decimal.Zero

		for i, candidate := range rankings {
			if chosen[candidate.Store] {
				continue
			}

			added := 0
			cost := decimal.Zero
			for _, id := range candidate.ItemIDs {
				if covered[id] {
					continue
				}
				added++
				cost = cost.Add(pricing.price[id][candidate.Store].Mul(pricing.quantity[id]))
			}

			if bestIdx == -1 || added > bestAdded || (added == bestAdded && cost.LessThan(bestCost)) {
				bestIdx = i
				bestAdded = added
				bestCost = cost
			}
		}

		if bestIdx == -1 || bestAdded == 0 {
			break
		}

		best := rankings[bestIdx]
		selected = append(selected, best.Store)
		chosen[best.Store] = true
		for _, id := range best.ItemIDs {
			covered[id] = true
		}

		s.logger.Debug().
			Str("store", best.Store).
			Int("addedItems", bestAdded).
			Str("addedCost", bestCost.String()).
			Msg("store selected")
	}

	return s.optimizeItemDistribution(selected, items, pricing, totalListItems)
}

// optimizeItemDistribution assigns every item to the selected store with the
// lowest price for it (earlier selection wins a tie) and drops stores that end
// up with nothing assigned.
func (s *StoreSelector) optimizeItemDistribution(selected []string, items []domain.PricedItem, pricing itemPricing, totalListItems int) (domain.OptimalPlan, error) {
	plans := make(map[string]*domain.PlannedStore, len(selected))
	for _, store := range selected {
		plans[store] = &domain.PlannedStore{
			Store:          store,
			AssignedItems:  []domain.AssignedItem{},
			StoreTotalCost: decimal.Zero,
		}
	}

	for _, item := range items {
		bestStore := ""
		var bestPrice decimal.Decimal

		for _, store := range selected {
			price, ok := pricing.price[item.ID][store]
			if !ok {
				continue
			}
			if bestStore == "" || price.LessThan(bestPrice) {
				bestStore = store
				bestPrice = price
			}
		}

		if bestStore == "" {
			continue
		}

		lineTotal := bestPrice.Mul(pricing.quantity[item.ID])
		plan := plans[bestStore]
		plan.AssignedItems = append(plan.AssignedItems, domain.AssignedItem{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: bestPrice,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		plan.ItemCount++
		plan.StoreTotalCost = plan.StoreTotalCost.Add(lineTotal)
	}

	result := domain.OptimalPlan{
		Stores:    []domain.PlannedStore{},
		TotalCost: decimal.Zero,
	}

	assigned := 0
	for _, store := range selected {
		plan := plans[store]
		if plan.ItemCount == 0 {
			continue
		}
		plan.CoveragePct = percentOf(plan.ItemCount, totalListItems)
		assigned += plan.ItemCount
		result.TotalCost = result.TotalCost.Add(plan.StoreTotalCost)
		result.Stores = append(result.Stores, *plan)
	}

	union := unionCoverage(selected, items, pricing)
	if assigned != union {
		return domain.OptimalPlan{}, fmt.Errorf("%w: %d assigned, %d covered", domain.ErrPlanInconsistent, assigned, union)
	}

	result.TotalCoverage = percentOf(union, totalListItems)

	switch len(result.Stores) {
	case 0:
		result.Type = domain.PlanNone
	case 1:
		result.Type = domain.PlanSingle
	default:
		result.Type = domain.PlanMultiple
	}

	return result, nil
}

// unionCoverage counts the items at least one selected store offers
func unionCoverage(selected []string, items []domain.PricedItem, pricing itemPricing) int {
	count := 0
	for _, item := range items {
		for _, store := range selected {
			if _, ok := pricing.price[item.ID][store]; ok {
				count++
				break
			}
		}
	}
	return count
}

func emptyPlan() domain.OptimalPlan {
	return domain.OptimalPlan{
		Type:          domain.PlanNone,
		Stores:        []domain.PlannedStore{},
		TotalCoverage: decimal.Zero,
		TotalCost:     decimal.Zero,
	}
}

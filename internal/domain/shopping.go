package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShoppingListItem is owned by the shopping-list collaborator and read-only here
type ShoppingListItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	EstimatedPrice decimal.Decimal `json:"estimatedPrice"`
	Quantity       int             `json:"quantity"`
	ParentListID   string          `json:"parentListId,omitempty"`
}

// PrepareListItems copies a list, clamps quantities to at least 1, gives items
// without an id a uuid and rejects duplicate ids. Lists are prepared the same
// way whether they are stored or optimized directly.
func PrepareListItems(items []ShoppingListItem) ([]ShoppingListItem, error) {
	prepared := make([]ShoppingListItem, len(items))
	seen := make(map[string]bool, len(items))

	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if seen[item.ID] {
			return nil, NewValidationError("items", fmt.Sprintf("duplicate item id %q", item.ID))
		}
		seen[item.ID] = true

		if item.Quantity < 1 {
			item.Quantity = 1
		}
		prepared[i] = item
	}

	return prepared, nil
}

// StoreItemPrice is the price of one list item at one store
type StoreItemPrice struct {
	Store      string          `json:"store"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// PricedItem is a list item with at least one known store price, cheapest first
type PricedItem struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	EstimatedPrice decimal.Decimal  `json:"estimatedPrice"`
	Quantity       int              `json:"quantity"`
	Prices         []StoreItemPrice `json:"prices"`
}

// UnpricedItem is a list item no store has a recent price for
type UnpricedItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	EstimatedPrice decimal.Decimal `json:"estimatedPrice"`
	Quantity       int             `json:"quantity"`
}

// StoreCoverage aggregates how much of a list one store can supply
type StoreCoverage struct {
	Store              string          `json:"store"`
	ItemsFound         int             `json:"itemsFound"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	CoveragePct        decimal.Decimal `json:"coveragePct"`
	AverageCostPerItem decimal.Decimal `json:"averageCostPerItem"`
	ItemIDs            []string        `json:"itemIds"`
}

// CoverageAnalysis is the per-store breakdown of a shopping list
type CoverageAnalysis struct {
	TotalItems         int             `json:"totalItems"`
	PerStore           []StoreCoverage `json:"perStore"`
	ItemsWithPrices    []PricedItem    `json:"itemsWithPrices"`
	ItemsWithoutPrices []UnpricedItem  `json:"itemsWithoutPrices"`
}

// PlanType tells single-store plans apart from multi-store ones
type PlanType string

const (
	PlanNone     PlanType = "none"
	PlanSingle   PlanType = "single"
	PlanMultiple PlanType = "multiple"
)

// AssignedItem is a list item routed to a particular store
type AssignedItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// PlannedStore is one stop of an optimal plan
type PlannedStore struct {
	Store          string          `json:"store"`
	AssignedItems  []AssignedItem  `json:"assignedItems"`
	ItemCount      int             `json:"itemCount"`
	StoreTotalCost decimal.Decimal `json:"storeTotalCost"`
	CoveragePct    decimal.Decimal `json:"coveragePct"`
}

// OptimalPlan is the selected store subset with its item assignment
type OptimalPlan struct {
	Type          PlanType
	Stores        []PlannedStore
	TotalCoverage decimal.Decimal
	TotalCost     decimal.Decimal
}

// MarshalJSON renders single-store plans as {type, store, coverage, totalCost}
// and everything else as {type, storeCount, stores, totalCoverage, totalCost}.
func (p OptimalPlan) MarshalJSON() ([]byte, error) {
	if p.Type == PlanSingle && len(p.Stores) == 1 {
		return json.Marshal(struct {
			Type      PlanType        `json:"type"`
			Store     PlannedStore    `json:"store"`
			Coverage  decimal.Decimal `json:"coverage"`
			TotalCost decimal.Decimal `json:"totalCost"`
		}{p.Type, p.Stores[0], p.TotalCoverage, p.TotalCost})
	}

	stores := p.Stores
	if stores == nil {
		stores = []PlannedStore{}
	}
	return json.Marshal(struct {
		Type          PlanType        `json:"type"`
		StoreCount    int             `json:"storeCount"`
		Stores        []PlannedStore  `json:"stores"`
		TotalCoverage decimal.Decimal `json:"totalCoverage"`
		TotalCost     decimal.Decimal `json:"totalCost"`
	}{p.Type, len(stores), stores, p.TotalCoverage, p.TotalCost})
}

// ShoppingListSummary is the list-level roll-up of an optimization
type ShoppingListSummary struct {
	TotalItems            int             `json:"totalItems"`
	ItemsWithPriceData    int             `json:"itemsWithPriceData"`
	ItemsWithoutPriceData int             `json:"itemsWithoutPriceData"`
	EstimatedTotal        decimal.Decimal `json:"estimatedTotal"`
	OptimizedTotal        decimal.Decimal `json:"optimizedTotal"`
	EstimatedSavings      decimal.Decimal `json:"estimatedSavings"`
}

// OptimalStoresResult is the full answer to an optimal-stores request
type OptimalStoresResult struct {
	Summary            ShoppingListSummary `json:"shoppingListSummary"`
	OptimalStoreVisit  OptimalPlan         `json:"optimalStoreVisit"`
	AllStores          []StoreCoverage     `json:"allStores"`
	ItemsWithPrices    []PricedItem        `json:"itemsWithPrices"`
	ItemsWithoutPrices []UnpricedItem      `json:"itemsWithoutPrices"`
}

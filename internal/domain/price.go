package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and percentages go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultUnit is used when a price report does not name a unit
const DefaultUnit = "each"

var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// PriceObservation is one ledger record for an (item, store) pair within a window.
// ObservedAt is the window start; later reports in the same window update the
// record in place and only move LastReportedAt.
type PriceObservation struct {
	ID             string          `json:"id"`
	ItemName       string          `json:"itemName"`
	ItemKey        string          `json:"-"`
	Category       string          `json:"category"`
	Store          string          `json:"store"`
	Price          decimal.Decimal `json:"price"`
	Unit           string          `json:"unit"`
	ObservedAt     time.Time       `json:"observedAt"`
	LastReportedAt time.Time       `json:"lastReportedAt"`
	Verified       bool            `json:"verified"`
	ReportCount    int             `json:"reportCount"`
	ReporterID     string          `json:"reporterId,omitempty"`
}

// PriceReport is an incoming price report. Price is a pointer so that an absent
// price can be told apart from a zero price.
type PriceReport struct {
	ItemName   string           `json:"itemName"`
	Category   string           `json:"category"`
	Store      string           `json:"store"`
	Price      *decimal.Decimal `json:"price"`
	Unit       string           `json:"unit,omitempty"`
	ReporterID string           `json:"reporterId,omitempty"`
}

// LedgerKey identifies the (item, store) pair a report is deduplicated on.
type LedgerKey struct {
	ItemKey string
	Store   string
}

// String renders the key for lock names and logs
func (k LedgerKey) String() string {
	return k.ItemKey + "|" + k.Store
}

// StorePriceEntry is the cheapest observation of an item at one store.
type StorePriceEntry struct {
	Store       string          `json:"store"`
	Price       decimal.Decimal `json:"price"`
	ObservedAt  time.Time       `json:"observedAt"`
	Unit        string          `json:"unit"`
	Verified    bool            `json:"verified"`
	ReportCount int             `json:"reportCount"`
}

// Savings compares the most and least expensive store for an item.
type Savings struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CheapestStoreResult is the answer to a cheapest-store query.
type CheapestStoreResult struct {
	ItemName      string            `json:"itemName"`
	CheapestStore StorePriceEntry   `json:"cheapestStore"`
	AllStores     []StorePriceEntry `json:"allStores"`
	Savings       *Savings          `json:"savings"`
}

// NormalizeItemName builds the case-insensitive comparison key for an item name:
// lower-cased, trimmed, inner whitespace collapsed.
func NormalizeItemName(name string) string {
	if name == "" {
		return ""
	}
	result := strings.ToLower(name)
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

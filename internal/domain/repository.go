package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ObservationUpdate receives the current record for a ledger key inside the
// window (nil when there is none) and returns the record to persist.
type ObservationUpdate func(existing *PriceObservation) (*PriceObservation, error)

// PriceRepository defines the interface for price ledger persistence
type PriceRepository interface {
	// UpsertObservation runs apply against the most recent record for key observed
	// at or after since, and persists the result. Calls for the same key are
	// serialized; the read and the write happen atomically.
	UpsertObservation(ctx context.Context, key LedgerKey, since time.Time, apply ObservationUpdate) (*PriceObservation, error)

	// FindByItemName returns every observation at or after since whose item key
	// contains the normalized query.
	FindByItemName(ctx context.Context, query string, since time.Time) ([]PriceObservation, error)
}

// ShoppingListRepository gives read access to shopping-list items
type ShoppingListRepository interface {
	ListItems(ctx context.Context, listID string) ([]ShoppingListItem, error)
}

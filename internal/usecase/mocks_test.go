package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pantrylens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu             sync.Mutex
	data           map[string][]byte
	getError       error
	setError       error
	deleteError    error
	getCalls       int
	setCalls       int
	deletePrefixes []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletePrefixes = append(m.deletePrefixes, prefix)
	if m.deleteError != nil {
		return m.deleteError
	}
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

// MockPriceRepository is a mock implementation of domain.PriceRepository that
// keeps observations in a slice and records the lookups it receives.
type MockPriceRepository struct {
	mu           sync.Mutex
	observations []domain.PriceObservation
	upsertError  error
	findError    error
	findCalls    []string
	lastSince    time.Time
	// afterFind runs once the lookup has read its rows, outside the lock
	afterFind func(call int)
}

func NewMockPriceRepository(observations ...domain.PriceObservation) *MockPriceRepository {
	m := &MockPriceRepository{}
	for _, obs := range observations {
		m.add(obs)
	}
	return m
}

func (m *MockPriceRepository) add(obs domain.PriceObservation) {
	if obs.ItemKey == "" {
		obs.ItemKey = domain.NormalizeItemName(obs.ItemName)
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = testNow.Add(-24 * time.Hour)
	}
	m.observations = append(m.observations, obs)
}

func (m *MockPriceRepository) UpsertObservation(ctx context.Context, key domain.LedgerKey, since time.Time, apply domain.ObservationUpdate) (*domain.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertError != nil {
		return nil, m.upsertError
	}

	idx := -1
	for i, obs := range m.observations {
		if obs.ItemKey != key.ItemKey || obs.Store != key.Store || obs.ObservedAt.Before(since) {
			continue
		}
		if idx == -1 || obs.ObservedAt.After(m.observations[idx].ObservedAt) {
			idx = i
		}
	}

	var existing *domain.PriceObservation
	if idx >= 0 {
		found := m.observations[idx]
		existing = &found
	}

	next, err := apply(existing)
	if err != nil {
		return nil, err
	}
	if idx >= 0 && next.ID == m.observations[idx].ID {
		m.observations[idx] = *next
	} else {
		m.observations = append(m.observations, *next)
	}

	saved := *next
	return &saved, nil
}

func (m *MockPriceRepository) FindByItemName(ctx context.Context, query string, since time.Time) ([]domain.PriceObservation, error) {
	m.mu.Lock()
	m.findCalls = append(m.findCalls, query)
	m.lastSince = since
	call := len(m.findCalls)
	hook := m.afterFind
	if m.findError != nil {
		m.mu.Unlock()
		return nil, m.findError
	}

	needle := domain.NormalizeItemName(query)
	var out []domain.PriceObservation
	for _, obs := range m.observations {
		if obs.ObservedAt.Before(since) || !strings.Contains(obs.ItemKey, needle) {
			continue
		}
		out = append(out, obs)
	}
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return out, nil
}

// MockShoppingListRepository is a mock implementation of domain.ShoppingListRepository
type MockShoppingListRepository struct {
	lists     map[string][]domain.ShoppingListItem
	listError error
}

func NewMockShoppingListRepository() *MockShoppingListRepository {
	return &MockShoppingListRepository{lists: make(map[string][]domain.ShoppingListItem)}
}

func (m *MockShoppingListRepository) ListItems(ctx context.Context, listID string) ([]domain.ShoppingListItem, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	items, ok := m.lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	return items, nil
}

func observation(item, store, price string) domain.PriceObservation {
	return domain.PriceObservation{
		ID:          item + "@" + store,
		ItemName:    item,
		Store:       store,
		Price:       dec(price),
		Unit:        domain.DefaultUnit,
		ReportCount: 1,
	}
}

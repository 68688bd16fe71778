package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pantrylens/backend/internal/domain"
)

// PriceStore is an in-process price ledger. One mutex guards every key, so
// upserts are atomic and serialized.
type PriceStore struct {
	mu           sync.RWMutex
	observations map[string]domain.PriceObservation
	byKey        map[domain.LedgerKey][]string
}

// NewPriceStore creates an empty in-memory price ledger
func NewPriceStore() *PriceStore {
	return &PriceStore{
		observations: make(map[string]domain.PriceObservation),
		byKey:        make(map[domain.LedgerKey][]string),
	}
}

// UpsertObservation implements domain.PriceRepository
func (s *PriceStore) UpsertObservation(ctx context.Context, key domain.LedgerKey, since time.Time, apply domain.ObservationUpdate) (*domain.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current *domain.PriceObservation
	for _, id := range s.byKey[key] {
		obs := s.observations[id]
		if obs.ObservedAt.Before(since) {
			continue
		}
		if current == nil || obs.ObservedAt.After(current.ObservedAt) {
			found := obs
			current = &found
		}
	}

	next, err := apply(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.New("observation update returned nil")
	}

	if _, exists := s.observations[next.ID]; !exists {
		s.byKey[key] = append(s.byKey[key], next.ID)
	}
	s.observations[next.ID] = *next

	saved := *next
	return &saved, nil
}

// FindByItemName implements domain.PriceRepository
func (s *PriceStore) FindByItemName(ctx context.Context, query string, since time.Time) ([]domain.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	needle := domain.NormalizeItemName(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []domain.PriceObservation
	for _, obs := range s.observations {
		if obs.ObservedAt.Before(since) {
			continue
		}
		if !strings.Contains(obs.ItemKey, needle) {
			continue
		}
		matches = append(matches, obs)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].ObservedAt.Equal(matches[j].ObservedAt) {
			return matches[i].ObservedAt.Before(matches[j].ObservedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	return matches, nil
}

// Insert stores an observation as-is. Used to seed the ledger with history.
func (s *PriceStore) Insert(obs domain.PriceObservation) {
	if obs.ItemKey == "" {
		obs.ItemKey = domain.NormalizeItemName(obs.ItemName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LedgerKey{ItemKey: obs.ItemKey, Store: obs.Store}
	if _, exists := s.observations[obs.ID]; !exists {
		s.byKey[key] = append(s.byKey[key], obs.ID)
	}
	s.observations[obs.ID] = obs
}

// Len returns the number of stored observations
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations)
}

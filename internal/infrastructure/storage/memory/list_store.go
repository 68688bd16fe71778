package memory

import (
	"context"
	"sync"

	"github.com/pantrylens/backend/internal/domain"
)

// ShoppingListStore holds shopping lists in memory
type ShoppingListStore struct {
	mu    sync.RWMutex
	lists map[string][]domain.ShoppingListItem
}

// NewShoppingListStore creates an empty list store
func NewShoppingListStore() *ShoppingListStore {
	return &ShoppingListStore{lists: make(map[string][]domain.ShoppingListItem)}
}

// PutList replaces the items of a list
func (s *ShoppingListStore) PutList(listID string, items []domain.ShoppingListItem) {
	stored := make([]domain.ShoppingListItem, len(items))
	for i, item := range items {
		item.ParentListID = listID
		stored[i] = item
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[listID] = stored
}

// ReplaceList prepares the items like the SQL list store does and stores them
func (s *ShoppingListStore) ReplaceList(ctx context.Context, listID string, items []domain.ShoppingListItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepared, err := domain.PrepareListItems(items)
	if err != nil {
		return err
	}
	s.PutList(listID, prepared)
	return nil
}

// ListItems implements domain.ShoppingListRepository
func (s *ShoppingListStore) ListItems(ctx context.Context, listID string) ([]domain.ShoppingListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}

	out := make([]domain.ShoppingListItem, len(items))
	copy(out, items)
	return out, nil
}

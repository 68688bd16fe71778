package sqlstore

import (
	"context"
	"fmt"

	"github.com/pantrylens/backend/internal/domain"
)

// ListItems implements domain.ShoppingListRepository. A list with no rows is
// reported as not found.
func (s *Store) ListItems(ctx context.Context, listID string) ([]domain.ShoppingListItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, name, estimated_price, quantity
		FROM shopping_list_items
		WHERE list_id = ?
		ORDER BY position, id`), listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer rows.Close()

	var items []domain.ShoppingListItem
	for rows.Next() {
		item := domain.ShoppingListItem{ParentListID: listID}
		if err := rows.Scan(&item.ID, &item.Name, &item.EstimatedPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list items: %w", err)
	}

	if len(items) == 0 {
		return nil, domain.ErrListNotFound
	}

	return items, nil
}

// ReplaceList overwrites the items stored for a list. Items without an id get
// one; duplicate ids are rejected before anything is written.
func (s *Store) ReplaceList(ctx context.Context, listID string, items []domain.ShoppingListItem) error {
	items, err := domain.PrepareListItems(items)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM shopping_list_items WHERE list_id = ?`), listID); err != nil {
		return fmt.Errorf("failed to clear list: %w", err)
	}

	insert := s.rebind(`INSERT INTO shopping_list_items (list_id, id, position, name, estimated_price, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, insert, listID, item.ID, i, item.Name, item.EstimatedPrice, item.Quantity); err != nil {
			return fmt.Errorf("failed to insert list item %q: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list: %w", err)
	}
	return nil
}

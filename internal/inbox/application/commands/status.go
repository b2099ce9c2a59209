package commands

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// SetStatusCommand moves an item between pending, done and skipped.
type SetStatusCommand struct {
	ItemID string
	Status domain.Status
}

// SetStatusHandler applies status changes.
type SetStatusHandler struct {
	store domain.Store
}

// NewSetStatusHandler builds a handler.
func NewSetStatusHandler(store domain.Store) *SetStatusHandler {
	return &SetStatusHandler{store: store}
}

// Handle updates the item and returns it. Setting pending reopens a closed item.
func (h *SetStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*domain.InboxItem, error) {
	if !cmd.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidItem, cmd.Status)
	}

	var updated domain.InboxItem
	err := domain.Update(ctx, h.store, func(items []domain.InboxItem) ([]domain.InboxItem, bool, error) {
		idx := domain.FindItem(items, cmd.ItemID)
		if idx < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrItemNotFound, cmd.ItemID)
		}
		current := items[idx]
		if current.Status == cmd.Status {
			updated = current
			return nil, false, nil
		}
		switch cmd.Status {
		case domain.StatusDone:
			updated = current.MarkDone()
		case domain.StatusSkipped:
			updated = current.MarkSkipped()
		default:
			updated = current.Reopen()
		}
		items[idx] = updated
		return items, true, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

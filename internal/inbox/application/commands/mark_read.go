package commands

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// MarkReadCommand clears the unread flag of one item, or of every item when ItemID is empty.
type MarkReadCommand struct {
	ItemID string
}

// MarkReadHandler clears unread flags.
type MarkReadHandler struct {
	store domain.Store
}

// NewMarkReadHandler builds a handler.
func NewMarkReadHandler(store domain.Store) *MarkReadHandler {
	return &MarkReadHandler{store: store}
}

// Handle returns how many items changed.
func (h *MarkReadHandler) Handle(ctx context.Context, cmd MarkReadCommand) (int, error) {
	marked := 0
	err := domain.Update(ctx, h.store, func(items []domain.InboxItem) ([]domain.InboxItem, bool, error) {
		if cmd.ItemID != "" && domain.FindItem(items, cmd.ItemID) < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrItemNotFound, cmd.ItemID)
		}
		for i, item := range items {
			if item.Read || (cmd.ItemID != "" && item.ID != cmd.ItemID) {
				continue
			}
			items[i] = item.MarkRead()
			marked++
		}
		return items, marked > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

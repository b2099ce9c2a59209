package queries

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// GetItemQuery contains the parameters for getting a single inbox item.
type GetItemQuery struct {
	ItemID string
}

// GetItemHandler handles the GetItemQuery.
type GetItemHandler struct {
	store domain.Store
}

// NewGetItemHandler creates a new GetItemHandler.
func NewGetItemHandler(store domain.Store) *GetItemHandler {
	return &GetItemHandler{store: store}
}

// Handle executes the GetItemQuery.
func (h *GetItemHandler) Handle(ctx context.Context, query GetItemQuery) (*InboxItemDTO, error) {
	items, err := h.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := domain.FindItem(items, query.ItemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, query.ItemID)
	}
	dto := toDTO(items[idx])
	return &dto, nil
}

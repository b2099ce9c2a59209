package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/google/uuid"
)

// AddReplyCommand appends a reply to an item's thread.
type AddReplyCommand struct {
	ItemID string
	Author domain.Author
	Text   string
}

// AddReplyResult returns the updated item and the new reply.
type AddReplyResult struct {
	Item  domain.InboxItem
	Reply domain.Reply
}

// AddReplyHandler appends replies.
type AddReplyHandler struct {
	store  domain.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewAddReplyHandler builds a handler.
func NewAddReplyHandler(store domain.Store, logger *slog.Logger) *AddReplyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddReplyHandler{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Handle adds the reply. A reply from the agent marks the item unread.
func (h *AddReplyHandler) Handle(ctx context.Context, cmd AddReplyCommand) (*AddReplyResult, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: reply text is required", domain.ErrInvalidItem)
	}
	author := cmd.Author
	if author == "" {
		author = domain.AuthorUser
	}
	reply := domain.Reply{
		ID:        "reply-" + uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: h.now(),
	}

	var updated domain.InboxItem
	err := domain.Update(ctx, h.store, func(items []domain.InboxItem) ([]domain.InboxItem, bool, error) {
		idx := domain.FindItem(items, cmd.ItemID)
		if idx < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrItemNotFound, cmd.ItemID)
		}
		item, err := items[idx].AddReply(reply)
		if err != nil {
			return nil, false, err
		}
		items[idx] = item
		updated = item
		return items, true, nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("reply added", "item", cmd.ItemID, "author", author)
	return &AddReplyResult{Item: updated, Reply: reply}, nil
}

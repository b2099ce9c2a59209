package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/klarity/internal/inbox/services"
	"github.com/google/uuid"
)

// CaptureItemCommand contains capture data.
type CaptureItemCommand struct {
	Text     string
	Type     string
	Project  string
	Priority string
	Author   domain.Author
	ForAgent bool
	ParentID string
	TaskRef  string
}

// CaptureItemResult returns the saved item.
type CaptureItemResult struct {
	Item domain.InboxItem
}

// CaptureItemHandler adds new items to the local inbox.
type CaptureItemHandler struct {
	store      domain.Store
	classifier *services.Classifier
	now        func() time.Time
	logger     *slog.Logger
}

// NewCaptureItemHandler builds a handler.
func NewCaptureItemHandler(store domain.Store, classifier *services.Classifier, logger *slog.Logger) *CaptureItemHandler {
	if classifier == nil {
		classifier = services.NewClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureItemHandler{
		store:      store,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Handle saves the item at the top of the inbox.
// Items captured by the user start read; agent responses start unread.
func (h *CaptureItemHandler) Handle(ctx context.Context, cmd CaptureItemCommand) (*CaptureItemResult, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidItem)
	}
	author := cmd.Author
	if author == "" {
		author = domain.AuthorUser
	}

	item := domain.InboxItem{
		ID:        "inbox-" + uuid.NewString(),
		Text:      text,
		Type:      h.classifier.Classify(text, cmd.Type),
		Project:   optional(cmd.Project),
		Status:    domain.StatusPending,
		CreatedAt: h.now(),
		Read:      author == domain.AuthorUser,
		Author:    author,
		Replies:   []domain.Reply{},
		ForAgent:  cmd.ForAgent,
		ParentID:  optional(cmd.ParentID),
		TaskRef:   optional(cmd.TaskRef),
	}
	if cmd.Priority != "" {
		p, err := domain.ParsePriority(strings.ToUpper(cmd.Priority))
		if err != nil {
			return nil, err
		}
		item.Priority = &p
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	err := domain.Update(ctx, h.store, func(items []domain.InboxItem) ([]domain.InboxItem, bool, error) {
		if item.ParentID != nil && domain.FindItem(items, *item.ParentID) < 0 {
			return nil, false, fmt.Errorf("%w: parent %s", domain.ErrItemNotFound, *item.ParentID)
		}
		return append([]domain.InboxItem{item}, items...), true, nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("inbox item captured", "id", item.ID, "type", item.Type, "author", item.Author)
	return &CaptureItemResult{Item: item}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// ListItemsQuery holds params. Zero values mean no filter.
type ListItemsQuery struct {
	Status     domain.Status
	UnreadOnly bool
	Project    string
	Limit      int
}

// ReplyDTO is the view model of a reply.
type ReplyDTO struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// InboxItemDTO is the view model of an item.
type InboxItemDTO struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Type      string     `json:"type"`
	Project   string     `json:"project,omitempty"`
	Priority  string     `json:"priority,omitempty"`
	Status    string     `json:"status"`
	CreatedAt string     `json:"createdAt"`
	Read      bool       `json:"read"`
	Author    string     `json:"author"`
	ForAgent  bool       `json:"forAgent,omitempty"`
	ParentID  string     `json:"parentId,omitempty"`
	TaskRef   string     `json:"taskRef,omitempty"`
	TaskTitle string     `json:"taskTitle,omitempty"`
	Replies   []ReplyDTO `json:"replies"`
}

// ListItemsHandler returns items, newest first.
type ListItemsHandler struct {
	store domain.Store
}

// NewListItemsHandler creates handler.
func NewListItemsHandler(store domain.Store) *ListItemsHandler {
	return &ListItemsHandler{store: store}
}

// Handle executes the query.
func (h *ListItemsHandler) Handle(ctx context.Context, query ListItemsQuery) ([]InboxItemDTO, error) {
	items, err := h.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortNewestFirst(items)

	dtos := make([]InboxItemDTO, 0, len(items))
	for _, item := range items {
		if !query.matches(item) {
			continue
		}
		dtos = append(dtos, toDTO(item))
		if query.Limit > 0 && len(dtos) == query.Limit {
			break
		}
	}
	return dtos, nil
}

func (q ListItemsQuery) matches(item domain.InboxItem) bool {
	if q.Status != "" && item.Status != q.Status {
		return false
	}
	if q.UnreadOnly && item.Read {
		return false
	}
	if q.Project != "" && item.ProjectName() != q.Project {
		return false
	}
	return true
}

// UnreadCountHandler counts unread items.
type UnreadCountHandler struct {
	store domain.Store
}

// NewUnreadCountHandler creates handler.
func NewUnreadCountHandler(store domain.Store) *UnreadCountHandler {
	return &UnreadCountHandler{store: store}
}

// Handle returns the number of unread items.
func (h *UnreadCountHandler) Handle(ctx context.Context) (int, error) {
	items, err := h.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range items {
		if !item.Read {
			count++
		}
	}
	return count, nil
}

func toDTO(item domain.InboxItem) InboxItemDTO {
	dto := InboxItemDTO{
		ID:        item.ID,
		Text:      item.Text,
		Type:      string(item.Type),
		Project:   item.ProjectName(),
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
		Read:      item.Read,
		Author:    string(item.Author),
		ForAgent:  item.ForAgent,
		ParentID:  deref(item.ParentID),
		TaskRef:   deref(item.TaskRef),
		TaskTitle: deref(item.TaskTitle),
		Replies:   make([]ReplyDTO, len(item.Replies)),
	}
	if item.Priority != nil {
		dto.Priority = string(*item.Priority)
	}
	for i, r := range item.Replies {
		dto.Replies[i] = ReplyDTO{
			ID:        r.ID,
			Author:    string(r.Author),
			Text:      r.Text,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		}
	}
	return dto
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

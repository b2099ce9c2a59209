package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemType classifies a captured inbox item.
type ItemType string

const (
	TypeIdea          ItemType = "idea"
	TypeTask          ItemType = "task"
	TypeNote          ItemType = "note"
	TypeAgentResponse ItemType = "agent-response"
)

// IsValid reports whether t is a known item type.
func (t ItemType) IsValid() bool {
	switch t {
	case TypeIdea, TypeTask, TypeNote, TypeAgentResponse:
		return true
	}
	return false
}

// ParseItemType parses an item type name.
func ParseItemType(value string) (ItemType, error) {
	t := ItemType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown item type %q", ErrInvalidItem, value)
	}
	return t, nil
}

// Priority is the optional P0..P3 urgency of an item.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// ParsePriority parses a priority such as "P1".
func ParsePriority(value string) (Priority, error) {
	p := Priority(value)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidItem, value)
	}
	return p, nil
}

// Status is the processing state of an item.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// Rank orders statuses by finality: done > skipped > pending.
func (s Status) Rank() int {
	switch s {
	case StatusDone:
		return 2
	case StatusSkipped:
		return 1
	default:
		return 0
	}
}

// IsFinal reports whether the item has been closed.
func (s Status) IsFinal() bool {
	return s == StatusDone || s == StatusSkipped
}

// ResolveStatus returns the more final of two divergent statuses.
func ResolveStatus(a, b Status) Status {
	if a == StatusDone || b == StatusDone {
		return StatusDone
	}
	if a == StatusSkipped || b == StatusSkipped {
		return StatusSkipped
	}
	return StatusPending
}

// Author identifies who wrote an item or reply.
type Author string

const (
	AuthorUser  Author = "user"
	AuthorAgent Author = "agent"

	// legacyAgentAuthor is what older mobile builds write for the agent.
	legacyAgentAuthor = "claude"
)

// IsValid reports whether a is a known author.
func (a Author) IsValid() bool {
	return a == AuthorUser || a == AuthorAgent
}

// UnmarshalJSON accepts the legacy agent spelling.
func (a *Author) UnmarshalJSON(b []byte) error {
	var value string
	if err := json.Unmarshal(b, &value); err != nil {
		return err
	}
	if value == legacyAgentAuthor {
		value = string(AuthorAgent)
	}
	*a = Author(value)
	return nil
}

// Reply is a threaded follow-up to an inbox item.
type Reply struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the reply's required fields.
func (r Reply) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: reply id is required", ErrInvalidItem)
	}
	if !r.Author.IsValid() {
		return fmt.Errorf("%w: reply %s has unknown author %q", ErrInvalidItem, r.ID, r.Author)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("%w: reply %s has no createdAt", ErrInvalidItem, r.ID)
	}
	return nil
}

// InboxItem is a captured idea, task, note or agent response shared between devices.
type InboxItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      ItemType  `json:"type"`
	Project   *string   `json:"project"`
	Priority  *Priority `json:"priority"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
	Author    Author    `json:"author"`
	Replies   []Reply   `json:"replies"`

	ForAgent  bool    `json:"forAgent,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
	TaskRef   *string `json:"taskRef,omitempty"`
	TaskTitle *string `json:"taskTitle,omitempty"`
}

// inboxItemJSON mirrors InboxItem for decoding, with the legacy forClaude flag.
type inboxItemJSON struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      ItemType  `json:"type"`
	Project   *string   `json:"project"`
	Priority  *Priority `json:"priority"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
	Author    Author    `json:"author"`
	Replies   []Reply   `json:"replies"`
	ForAgent  bool      `json:"forAgent"`
	ForClaude bool      `json:"forClaude"`
	ParentID  *string   `json:"parentId"`
	TaskRef   *string   `json:"taskRef"`
	TaskTitle *string   `json:"taskTitle"`
}

// UnmarshalJSON decodes an item written by either device.
func (i *InboxItem) UnmarshalJSON(b []byte) error {
	var raw inboxItemJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*i = InboxItem{
		ID:        raw.ID,
		Text:      raw.Text,
		Type:      raw.Type,
		Project:   raw.Project,
		Priority:  raw.Priority,
		Status:    raw.Status,
		CreatedAt: raw.CreatedAt,
		Read:      raw.Read,
		Author:    raw.Author,
		Replies:   raw.Replies,
		ForAgent:  raw.ForAgent || raw.ForClaude,
		ParentID:  raw.ParentID,
		TaskRef:   raw.TaskRef,
		TaskTitle: raw.TaskTitle,
	}
	if i.Author == "" {
		i.Author = AuthorUser
	}
	return nil
}

// Validate checks required fields and reply id uniqueness.
func (i InboxItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("%w: item %s has unknown type %q", ErrInvalidItem, i.ID, i.Type)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("%w: item %s has unknown status %q", ErrInvalidItem, i.ID, i.Status)
	}
	if !i.Author.IsValid() {
		return fmt.Errorf("%w: item %s has unknown author %q", ErrInvalidItem, i.ID, i.Author)
	}
	if i.Priority != nil && !i.Priority.IsValid() {
		return fmt.Errorf("%w: item %s has unknown priority %q", ErrInvalidItem, i.ID, *i.Priority)
	}
	if i.CreatedAt.IsZero() {
		return fmt.Errorf("%w: item %s has no createdAt", ErrInvalidItem, i.ID)
	}
	seen := make(map[string]struct{}, len(i.Replies))
	for _, r := range i.Replies {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: item %s has duplicate reply %s", ErrInvalidItem, i.ID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers can modify it without touching shared state.
func (i InboxItem) Clone() InboxItem {
	out := i
	out.Project = cloneString(i.Project)
	out.ParentID = cloneString(i.ParentID)
	out.TaskRef = cloneString(i.TaskRef)
	out.TaskTitle = cloneString(i.TaskTitle)
	if i.Priority != nil {
		p := *i.Priority
		out.Priority = &p
	}
	if i.Replies != nil {
		out.Replies = make([]Reply, len(i.Replies))
		copy(out.Replies, i.Replies)
	}
	return out
}

// ProjectName returns the project or "" when unassigned.
func (i InboxItem) ProjectName() string {
	if i.Project == nil {
		return ""
	}
	return *i.Project
}

// HasReply reports whether a reply with id exists on the item.
func (i InboxItem) HasReply(id string) bool {
	for _, r := range i.Replies {
		if r.ID == id {
			return true
		}
	}
	return false
}

// MarkDone closes the item as done.
func (i InboxItem) MarkDone() InboxItem {
	out := i.Clone()
	out.Status = StatusDone
	return out
}

// MarkSkipped closes the item without doing it.
func (i InboxItem) MarkSkipped() InboxItem {
	out := i.Clone()
	out.Status = StatusSkipped
	return out
}

// Reopen moves a closed item back to pending. Only an explicit user action does this;
// a later merge with a device that still has it closed will close it again.
func (i InboxItem) Reopen() InboxItem {
	out := i.Clone()
	out.Status = StatusPending
	return out
}

// MarkRead flags the item and its replies as seen.
func (i InboxItem) MarkRead() InboxItem {
	out := i.Clone()
	out.Read = true
	return out
}

// MarkUnread reopens the unread badge.
func (i InboxItem) MarkUnread() InboxItem {
	out := i.Clone()
	out.Read = false
	return out
}

// AddReply appends a reply. Replies from the agent reopen the unread flag.
func (i InboxItem) AddReply(r Reply) (InboxItem, error) {
	if err := r.Validate(); err != nil {
		return i, err
	}
	if i.HasReply(r.ID) {
		return i, fmt.Errorf("%w: %s", ErrDuplicateReply, r.ID)
	}
	out := i.Clone()
	out.Replies = append(out.Replies, r)
	if r.Author == AuthorAgent {
		out.Read = false
	}
	return out, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

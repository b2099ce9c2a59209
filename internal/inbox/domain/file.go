package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// FileVersion is the envelope version written on every save.
const FileVersion = "1.0.0"

// InboxFile is the JSON document shared between devices.
type InboxFile struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Items       []InboxItem `json:"items"`
}

// NewInboxFile wraps items in a fresh envelope stamped with now.
func NewInboxFile(items []InboxItem, now time.Time) InboxFile {
	normalized := make([]InboxItem, len(items))
	for i, item := range items {
		normalized[i] = item.Clone()
		if normalized[i].Replies == nil {
			normalized[i].Replies = []Reply{}
		}
	}
	return InboxFile{
		Version:     FileVersion,
		LastUpdated: now.UTC().Format(time.RFC3339),
		Items:       normalized,
	}
}

// EncodeFile renders the envelope as indented JSON.
func EncodeFile(items []InboxItem, now time.Time) ([]byte, error) {
	return json.MarshalIndent(NewInboxFile(items, now), "", "  ")
}

// DecodeFile parses and validates an envelope. An empty document decodes to no items.
func DecodeFile(data []byte) (*InboxFile, error) {
	var file InboxFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if err := ValidateItems(file.Items); err != nil {
		return nil, err
	}
	return &file, nil
}

// ValidateItems validates each item and rejects duplicate ids.
func ValidateItems(items []InboxItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// FindItem returns the index of the item with id, or -1.
func FindItem(items []InboxItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// SortNewestFirst orders items by createdAt descending, ties by id.
func SortNewestFirst(items []InboxItem) {
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].CreatedAt.Equal(items[b].CreatedAt) {
			return items[a].CreatedAt.After(items[b].CreatedAt)
		}
		return items[a].ID < items[b].ID
	})
}

// SortRepliesOldestFirst orders replies by createdAt ascending, ties by id.
func SortRepliesOldestFirst(replies []Reply) {
	sort.SliceStable(replies, func(a, b int) bool {
		if !replies[a].CreatedAt.Equal(replies[b].CreatedAt) {
			return replies[a].CreatedAt.Before(replies[b].CreatedAt)
		}
		return replies[a].ID < replies[b].ID
	})
}

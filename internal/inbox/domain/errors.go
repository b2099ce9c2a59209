package domain

import "errors"

var (
	// ErrInvalidItem is returned when an item or reply is missing required fields.
	ErrInvalidItem = errors.New("invalid inbox item")

	// ErrItemNotFound is returned when no item has the requested id.
	ErrItemNotFound = errors.New("inbox item not found")

	// ErrDuplicateItem is returned when a collection holds the same id twice.
	ErrDuplicateItem = errors.New("duplicate inbox item")

	// ErrDuplicateReply is returned when a reply id already exists on the item.
	ErrDuplicateReply = errors.New("duplicate reply")
)

package domain

import (
	"context"
	"fmt"
)

// Store persists the local inbox collection.
//
// Save must durably replace the whole collection so that a later Load returns
// exactly the saved items.
type Store interface {
	Load(ctx context.Context) ([]InboxItem, error)
	Save(ctx context.Context, items []InboxItem) error
}

// UpdateFunc receives the stored collection and returns the replacement.
// Returning save=false leaves the store untouched.
type UpdateFunc func(items []InboxItem) (updated []InboxItem, save bool, err error)

// Updater is a Store that serializes read-modify-write cycles.
type Updater interface {
	Store
	Update(ctx context.Context, fn UpdateFunc) error
}

// Update runs fn against store, atomically when the store is an Updater.
func Update(ctx context.Context, store Store, fn UpdateFunc) error {
	if u, ok := store.(Updater); ok {
		return u.Update(ctx, fn)
	}
	items, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load local inbox: %w", err)
	}
	updated, save, err := fn(items)
	if err != nil || !save {
		return err
	}
	if err := store.Save(ctx, updated); err != nil {
		return fmt.Errorf("save local inbox: %w", err)
	}
	return nil
}

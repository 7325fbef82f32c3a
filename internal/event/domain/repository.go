package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// List returns every event in creation order.
	List(ctx context.Context, db *gorm.DB) ([]Event, error)

	// FindBySlug returns the event with the given slug, or
	// ErrEventNotFound.
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Event, error)

	Insert(ctx context.Context, db *gorm.DB, event *Event) error
}

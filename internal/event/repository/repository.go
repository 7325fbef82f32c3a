package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	eventdomain "github.com/smallbiznis/chainpay/internal/event/domain"
)

type Repository struct{}

func Provide() eventdomain.Repository {
	return &Repository{}
}

func (r *Repository) List(ctx context.Context, db *gorm.DB) ([]eventdomain.Event, error) {
	var events []eventdomain.Event
	err := db.WithContext(ctx).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *Repository) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*eventdomain.Event, error) {
	slug = strings.TrimSpace(slug)
	var event eventdomain.Event
	err := db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, eventdomain.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, event *eventdomain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

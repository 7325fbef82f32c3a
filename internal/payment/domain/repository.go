package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment_not_found")

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)

	// FindLatestByOrderCode returns the most recent payment for an order
	// within an event, or ErrPaymentNotFound.
	FindLatestByOrderCode(ctx context.Context, db *gorm.DB, eventID snowflake.ID, orderCode string) (*Payment, error)

	// FindByStates returns an event's payments in creation order,
	// filtered to the given states.
	FindByStates(ctx context.Context, db *gorm.DB, eventID snowflake.ID, states []State) ([]Payment, error)

	// Confirm transitions a payment from an unconfirmed state to
	// confirmed and records the payment date. It reports false without
	// error when the payment was not in an unconfirmed state, so a
	// repeated confirmation attempt is a no-op rather than a failure.
	Confirm(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}

// Package domain contains the ticketed-event records payments belong to.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrEventNotFound = errors.New("event_not_found")

// Event is a ticketed event accepting on-chain payments.
type Event struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	Name      string       `gorm:"type:text;not null"`
	Currency  string       `gorm:"type:text;not null;default:USD"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }

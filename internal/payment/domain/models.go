// Package domain contains the order-payment records the reconciliation
// engine reads and confirms.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// State is the lifecycle state of an order payment.
type State string

const (
	StateCreated   State = "created"
	StatePending   State = "pending"
	StateCanceled  State = "canceled"
	StateConfirmed State = "confirmed"
	StateRefunded  State = "refunded"
	StateFailed    State = "failed"
)

// UnconfirmedStates are the states the reconciliation run considers.
// Canceled is included deliberately: a customer may have paid before
// cancelling, and money that already moved must still be detected.
func UnconfirmedStates() []State {
	return []State{StateCreated, StatePending, StateCanceled}
}

// Info keys snapshotted into Payment.Info at checkout time.
const (
	InfoPrimaryCurrency = "primary_currency"
	InfoLogicalAmount   = "logical_amount"
	InfoUSDPerETH       = "usd_per_eth"
	InfoCheckoutTime    = "checkout_time"
)

// Payment is one payment attempt against an order.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	EventID   snowflake.ID `gorm:"not null;index"`
	OrderCode string       `gorm:"type:text;not null"`
	FullID    string       `gorm:"type:text;not null"`

	Amount   decimal.Decimal `gorm:"type:numeric;not null"`
	Currency string          `gorm:"type:text;not null"`
	State    State           `gorm:"type:text;not null;default:created"`

	// Info holds the trusted checkout snapshot: primary currency,
	// logical amount and quoted rate as of the moment the customer was
	// shown payment instructions.
	Info datatypes.JSONMap `gorm:"type:text"`

	PaymentDate *time.Time
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// InfoString returns a string value from the checkout snapshot.
func (p Payment) InfoString(key string) string {
	if p.Info == nil {
		return ""
	}
	value, ok := p.Info[key]
	if !ok {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

// LogicalAmount returns the snapshotted logical amount, falling back to
// zero when the snapshot is missing or malformed.
func (p Payment) LogicalAmount() decimal.Decimal {
	raw := p.InfoString(InfoLogicalAmount)
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// USDPerETH returns the snapshotted quoted rate, or zero.
func (p Payment) USDPerETH() decimal.Decimal {
	raw := p.InfoString(InfoUSDPerETH)
	if raw == "" {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

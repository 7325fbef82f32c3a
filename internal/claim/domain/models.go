// Package domain contains the signed payment claims customers submit and
// the contract of the store that guards their invariants.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// SignedClaim is one customer assertion of having sent an on-chain
// payment for an order payment.
//
// Fields are partitioned by trust. The trusted fields are snapshotted
// from server-side configuration when the claim is created and never
// sourced from client input; if the global receiver address changes
// later, older claims keep the address the customer actually paid.
// The untrusted fields arrive verbatim from the customer and prove
// nothing until the remote verifier has checked them.
type SignedClaim struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrderPaymentID snowflake.ID `gorm:"not null;index"`
	CreatedAt      time.Time    `gorm:"not null"`

	// Trusted snapshot.
	RecipientAddress string          `gorm:"type:text;not null"`
	PrimaryCurrency  string          `gorm:"type:text;not null"`
	LogicalAmount    decimal.Decimal `gorm:"type:numeric;not null"`
	USDPerETH        decimal.Decimal `gorm:"type:numeric"`

	// Untrusted, customer supplied. The signature proves the customer
	// controls SenderAddress; it is opaque here and only the verifier
	// checks it. TransactionHash is globally unique so one on-chain
	// transfer can never pay for two orders.
	SenderAddress   string  `gorm:"type:text;not null"`
	RawMessage      string  `gorm:"type:text;not null"`
	Signature       string  `gorm:"type:text;not null"`
	ChainID         *int64  `gorm:""`
	TransactionHash *string `gorm:"type:text"`

	// Cosmetic metadata, display only.
	ReceiptURL           string `gorm:"type:text"`
	TokenTicker          string `gorm:"type:text"`
	TokenName            string `gorm:"type:text"`
	TokenAmount          string `gorm:"type:text"`
	TokenDecimals        *int64 `gorm:""`
	TokenContractAddress string `gorm:"type:text"`
	ChainName            string `gorm:"type:text"`
	IsTestnet            bool   `gorm:"not null;default:false"`

	// Outcome fields, written only by the reconciliation engine.
	IsConfirmed                   bool   `gorm:"not null;default:false"`
	Invalid                       bool   `gorm:"not null;default:false"`
	VerificationExplanation       string `gorm:"type:text"`
	VerificationFailedPermanently bool   `gorm:"not null;default:false"`
}

// TableName sets the database table name.
func (SignedClaim) TableName() string { return "signed_claims" }

// Age reports how long ago the claim was created.
func (c SignedClaim) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrClaimNotFound = errors.New("claim_not_found")

	// ErrConstraintViolation reports a store-level integrity failure: a
	// second confirmed claim on one payment, or a transaction hash that
	// already belongs to another claim. Either means an attacker attempt
	// or an engine bug, so callers must surface it loudly rather than
	// swallow it.
	ErrConstraintViolation = errors.New("claim_constraint_violation")

	// ErrChainWithoutHash reports a claim carrying a chain id without a
	// transaction hash, or vice versa.
	ErrChainWithoutHash = errors.New("chain_id_requires_transaction_hash")
)

type Repository interface {
	// Insert persists a new claim. The transaction-hash uniqueness
	// constraint is enforced here; a duplicate maps to
	// ErrConstraintViolation.
	Insert(ctx context.Context, db *gorm.DB, claim *SignedClaim) error

	// ListByPayment returns every claim for a payment in submission
	// order, including invalid ones: a low-gas transaction behind an
	// invalid claim can still be mined later, so invalidity is not a
	// terminal skip condition for re-verification.
	ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]SignedClaim, error)

	// MarkConfirmed sets is_confirmed on the claim and records the
	// verifier's explanation. It fails with ErrConstraintViolation when
	// another claim on the same payment is already confirmed or the
	// claim's transaction hash collides with a confirmed claim
	// elsewhere.
	MarkConfirmed(ctx context.Context, db *gorm.DB, claimID snowflake.ID, explanation string) error

	// MarkInvalid idempotently sets invalid and the permanent-failure
	// outcome. It never touches a confirmed claim and never resets
	// invalid back to false.
	MarkInvalid(ctx context.Context, db *gorm.DB, claimID snowflake.ID, explanation string) error

	// AnotherClaimSubmitted reports whether the payment already has a
	// non-invalid claim. Used to advise customers against paying twice;
	// advisory only, not a lock.
	AnotherClaimSubmitted(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (bool, error)

	// FindConfirmedByPayment returns the confirmed claim for a payment,
	// or nil when none exists.
	FindConfirmedByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*SignedClaim, error)

	// FindLatestByPayment returns the most recently submitted claim for
	// a payment, or nil when none exists.
	FindLatestByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*SignedClaim, error)
}

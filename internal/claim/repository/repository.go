package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
)

type Repository struct{}

func Provide() claimdomain.Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, claim *claimdomain.SignedClaim) error {
	hasHash := claim.TransactionHash != nil && strings.TrimSpace(*claim.TransactionHash) != ""
	hasChain := claim.ChainID != nil
	if hasHash != hasChain {
		return claimdomain.ErrChainWithoutHash
	}
	if hasHash {
		normalized := strings.ToLower(strings.TrimSpace(*claim.TransactionHash))
		claim.TransactionHash = &normalized
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}

	if err := db.WithContext(ctx).Create(claim).Error; err != nil {
		if isUniqueViolation(err) {
			return claimdomain.ErrConstraintViolation
		}
		return err
	}
	return nil
}

func (r *Repository) ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]claimdomain.SignedClaim, error) {
	var claims []claimdomain.SignedClaim
	err := db.WithContext(ctx).
		Where("order_payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *Repository) MarkConfirmed(ctx context.Context, db *gorm.DB, claimID snowflake.ID, explanation string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim claimdomain.SignedClaim
		err := tx.Where("id = ?", claimID).First(&claim).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claimdomain.ErrClaimNotFound
		}
		if err != nil {
			return err
		}
		if claim.IsConfirmed {
			return nil
		}
		if claim.Invalid {
			// An invalidated claim never auto-confirms; a fresh claim
			// must supersede it.
			return claimdomain.ErrConstraintViolation
		}

		var siblingConfirmed int64
		if err := tx.Model(&claimdomain.SignedClaim{}).
			Where("order_payment_id = ? AND is_confirmed = ? AND id <> ?", claim.OrderPaymentID, true, claim.ID).
			Count(&siblingConfirmed).Error; err != nil {
			return err
		}
		if siblingConfirmed > 0 {
			return claimdomain.ErrConstraintViolation
		}

		if claim.TransactionHash != nil {
			var hashTaken int64
			if err := tx.Model(&claimdomain.SignedClaim{}).
				Where("transaction_hash = ? AND is_confirmed = ? AND id <> ?", *claim.TransactionHash, true, claim.ID).
				Count(&hashTaken).Error; err != nil {
				return err
			}
			if hashTaken > 0 {
				return claimdomain.ErrConstraintViolation
			}
		}

		result := tx.Exec(
			`UPDATE signed_claims
			 SET is_confirmed = ?, verification_explanation = ?, verification_failed_permanently = ?
			 WHERE id = ? AND invalid = ?`,
			true,
			explanation,
			false,
			claim.ID,
			false,
		)
		if result.Error != nil {
			// The partial unique index on (order_payment_id) WHERE
			// is_confirmed is the final backstop against a double
			// confirmation racing past the checks above.
			if isUniqueViolation(result.Error) {
				return claimdomain.ErrConstraintViolation
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return claimdomain.ErrConstraintViolation
		}
		return nil
	})
}

func (r *Repository) MarkInvalid(ctx context.Context, db *gorm.DB, claimID snowflake.ID, explanation string) error {
	// Confirmed claims are never invalidated and invalid is monotonic, so
	// repeated calls are no-ops.
	return db.WithContext(ctx).Exec(
		`UPDATE signed_claims
		 SET invalid = ?, verification_failed_permanently = ?, verification_explanation = ?
		 WHERE id = ? AND is_confirmed = ? AND invalid = ?`,
		true,
		true,
		explanation,
		claimID,
		false,
		false,
	).Error
}

func (r *Repository) AnotherClaimSubmitted(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&claimdomain.SignedClaim{}).
		Where("order_payment_id = ? AND invalid = ?", paymentID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) FindConfirmedByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*claimdomain.SignedClaim, error) {
	var claim claimdomain.SignedClaim
	err := db.WithContext(ctx).
		Where("order_payment_id = ? AND is_confirmed = ?", paymentID, true).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *Repository) FindLatestByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*claimdomain.SignedClaim, error) {
	var claim claimdomain.SignedClaim
	err := db.WithContext(ctx).
		Where("order_payment_id = ?", paymentID).
		Order("created_at DESC, id DESC").
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

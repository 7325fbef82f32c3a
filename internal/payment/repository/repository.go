package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

type Repository struct{}

func Provide() paymentdomain.Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) FindLatestByOrderCode(ctx context.Context, db *gorm.DB, eventID snowflake.ID, orderCode string) (*paymentdomain.Payment, error) {
	orderCode = strings.TrimSpace(orderCode)
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("event_id = ? AND order_code = ?", eventID, orderCode).
		Order("id DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) FindByStates(ctx context.Context, db *gorm.DB, eventID snowflake.ID, states []paymentdomain.State) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("event_id = ? AND state IN ?", eventID, states).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *Repository) Confirm(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET state = ?, payment_date = ?, updated_at = ?
		 WHERE id = ? AND state IN ?`,
		paymentdomain.StateConfirmed,
		now,
		now,
		id,
		paymentdomain.UnconfirmedStates(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

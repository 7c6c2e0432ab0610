package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
)

// Repository manages payment tranche rows. Tranches are append-only except
// for the audited delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tranche *models.PaymentTranche) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentTranche, error)
	FindByNumber(ctx context.Context, bookingID uuid.UUID, trancheNumber int) (*models.PaymentTranche, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tranche repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, tranche *models.PaymentTranche) error {
	return r.db.WithContext(ctx).Create(tranche).Error
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentTranche, error) {
	var tranches []models.PaymentTranche
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("tranche_number ASC").
		Find(&tranches).Error
	if err != nil {
		return nil, err
	}
	return tranches, nil
}

func (r *repository) FindByNumber(ctx context.Context, bookingID uuid.UUID, trancheNumber int) (*models.PaymentTranche, error) {
	var tranche models.PaymentTranche
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND tranche_number = ?", bookingID, trancheNumber).
		First(&tranche).Error
	if err != nil {
		return nil, err
	}
	return &tranche, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PaymentTranche{}).Error
}

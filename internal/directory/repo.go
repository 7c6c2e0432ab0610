package directory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
)

// Repository exposes read-only master-data lookups. The engine never writes
// to the directory tables.
type Repository interface {
	FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a directory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error) {
	var partner models.ReferralPartner
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

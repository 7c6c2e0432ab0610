package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

// Service wraps directory lookups with the predicates the engine consumes.
type Service interface {
	GetBookableClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetActiveReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error)
}

type service struct {
	repo Repository
}

// NewService wires the directory service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("directory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	client, err := s.repo.FindClient(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	return client, nil
}

// GetBookableClient loads a client and rejects clients that cannot take a
// new booking (inactive or not yet approved).
func (s *service) GetBookableClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if !client.Bookable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client is not approved for bookings")
	}
	return client, nil
}

func (s *service) GetActiveReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral partner id required")
	}
	partner, err := s.repo.FindReferralPartner(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral partner")
	}
	if !partner.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral partner is inactive")
	}
	return partner, nil
}

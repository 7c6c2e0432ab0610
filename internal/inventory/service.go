package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

// Service exposes stock-master reads and the PE-gated landing price update.
// Share counts never move through this surface; only the ledger functions
// in this package mutate quantities.
type Service interface {
	GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	ListStocks(ctx context.Context) ([]models.Stock, error)
	CreateStock(ctx context.Context, caller auth.Caller, input CreateStockInput) (*models.Stock, error)
	UpdateLandingPrice(ctx context.Context, caller auth.Caller, stockID uuid.UUID, landingPrice decimal.Decimal) (*models.Stock, error)
}

// CreateStockInput onboards a new stock into the master.
type CreateStockInput struct {
	Symbol           string          `json:"symbol" validate:"required"`
	Name             string          `json:"name" validate:"required"`
	AvailableQty     int64           `json:"available_qty" validate:"gte=0"`
	LandingPrice     decimal.Decimal `json:"landing_price" validate:"required"`
	WeightedAvgPrice decimal.Decimal `json:"weighted_avg_price"`
}

type service struct {
	repo Repository
}

// NewService wires the stock service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	stock, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	return stock, nil
}

func (s *service) ListStocks(ctx context.Context) ([]models.Stock, error) {
	stocks, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stocks")
	}
	return stocks, nil
}

func (s *service) CreateStock(ctx context.Context, caller auth.Caller, input CreateStockInput) (*models.Stock, error) {
	if !caller.Can(enums.CapabilityEditLandingPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stock onboarding requires PE desk rights")
	}
	if input.Symbol == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "symbol and name required")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity cannot be negative")
	}
	if input.LandingPrice.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "landing price must be positive")
	}
	avg := input.WeightedAvgPrice
	if avg.Sign() <= 0 {
		avg = input.LandingPrice
	}

	if _, err := s.repo.FindBySymbol(ctx, input.Symbol); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "symbol already registered")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check symbol")
	}

	stock := &models.Stock{
		ID:               uuid.New(),
		Symbol:           input.Symbol,
		Name:             input.Name,
		AvailableQty:     input.AvailableQty,
		BlockedQty:       0,
		LandingPrice:     input.LandingPrice,
		WeightedAvgPrice: avg,
	}
	if err := s.repo.Create(ctx, stock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
	}
	return stock, nil
}

func (s *service) UpdateLandingPrice(ctx context.Context, caller auth.Caller, stockID uuid.UUID, landingPrice decimal.Decimal) (*models.Stock, error) {
	if !caller.Can(enums.CapabilityEditLandingPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "landing price updates require PE desk rights")
	}
	if stockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	if landingPrice.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "landing price must be positive")
	}

	rows, err := s.repo.UpdatePricing(ctx, stockID, map[string]any{"landing_price": landingPrice})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update landing price")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}
	return s.GetStock(ctx, stockID)
}

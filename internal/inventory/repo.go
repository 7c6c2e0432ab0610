package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
)

// Repository manages persistence for the stock master.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	FindBySymbol(ctx context.Context, symbol string) (*models.Stock, error)
	List(ctx context.Context) ([]models.Stock, error)
	Create(ctx context.Context, stock *models.Stock) error
	UpdatePricing(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) FindBySymbol(ctx context.Context, symbol string) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) List(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repository) Create(ctx context.Context, stock *models.Stock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) UpdatePricing(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ?", id).
		Updates(fields)
	return res.RowsAffected, res.Error
}

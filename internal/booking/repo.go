package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	"github.com/kabidey/privity-sub003/pkg/pagination"
)

// ListFilters narrows booking list queries.
type ListFilters struct {
	ApprovalStatus *enums.ApprovalStatus
	PaymentStatus  *enums.PaymentStatus
	ClientID       *uuid.UUID
	StockID        *uuid.UUID
	From           *time.Time
	To             *time.Time
	IncludeVoided  bool
}

// Page is one keyset page of bookings.
type Page struct {
	Items      []models.Booking `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Repository manages booking persistence. Every state-changing write goes
// through UpdateVersioned so concurrent writers cannot silently overwrite
// each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error)
	ListTouchedSince(ctx context.Context, since time.Time, limit int) ([]models.Booking, error)
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	NextBookingNumber(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a booking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("tranche_number ASC")
		}).
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error) {
	query := r.db.WithContext(ctx).Model(&models.Booking{})

	if filters.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filters.ApprovalStatus)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.StockID != nil {
		query = query.Where("stock_id = ?", *filters.StockID)
	}
	if filters.From != nil {
		query = query.Where("booking_date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("booking_date <= ?", *filters.To)
	}
	if !filters.IncludeVoided {
		query = query.Where("is_voided = ?", false)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var items []models.Booking
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	page := &Page{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	page.Items = items
	return page, nil
}

// ListTouchedSince feeds the reconciliation sweep with recently-updated
// bookings that are not yet terminal.
func (r *repository) ListTouchedSince(ctx context.Context, since time.Time, limit int) ([]models.Booking, error) {
	var items []models.Booking
	err := r.db.WithContext(ctx).
		Where("updated_at >= ?", since).
		Where("is_voided = ?", false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateVersioned applies fields only when the stored lock_version still
// matches; it bumps the version as part of the same statement. A zero row
// count means the caller lost the race.
func (r *repository) UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, fields map[string]any) (int64, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["lock_version"] = gorm.Expr("lock_version + 1")

	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND lock_version = ?", id, version).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Booking{}).Error
}

// NextBookingNumber assigns the next sequential human-readable number. It
// runs inside the creation transaction; the unique index backstops races.
func (r *repository) NextBookingNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Select("COALESCE(MAX(booking_number), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is the per-scrip inventory record. Blocked quantity only moves
// through booking creation, approval, rejection, void, or deletion.
type Stock struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Symbol           string          `gorm:"column:symbol;not null;uniqueIndex"`
	Name             string          `gorm:"column:name;not null"`
	AvailableQty     int64           `gorm:"column:available_qty;not null;default:0"`
	BlockedQty       int64           `gorm:"column:blocked_qty;not null;default:0"`
	LandingPrice     decimal.Decimal `gorm:"column:landing_price;type:numeric(18,4);not null;default:0"`
	WeightedAvgPrice decimal.Decimal `gorm:"column:weighted_avg_price;type:numeric(18,4);not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

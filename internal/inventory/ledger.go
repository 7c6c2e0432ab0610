package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

// ReserveResult reports how much of a reservation was covered by on-hand
// stock. Oversubscription is allowed; the caller surfaces the warning.
type ReserveResult struct {
	StockID        uuid.UUID
	Requested      int64
	FromAvailable  int64
	Oversubscribed int64
	Warning        string
}

// Reserve blocks qty units of the stock inside the caller's transaction.
// Available quantity absorbs as much of the request as it can and never goes
// negative; the blocked count always grows by the full qty so oversubscription
// stays visible on the ledger. Low inventory is a warning, not a rejection.
func Reserve(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, qty int64) (ReserveResult, error) {
	if tx == nil {
		return ReserveResult{}, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if stockID == uuid.Nil {
		return ReserveResult{}, pkgerrors.New(pkgerrors.CodeValidation, "stock id required")
	}
	if qty <= 0 {
		return ReserveResult{}, pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	var stock models.Stock
	if err := tx.WithContext(ctx).Where("id = ?", stockID).First(&stock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ReserveResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return ReserveResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	// Single conditional update; the CASE keeps available_qty from dipping
	// below zero without an application-level read-modify-write.
	res := tx.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ?", stockID).
		Updates(map[string]any{
			"blocked_qty":   gorm.Expr("blocked_qty + ?", qty),
			"available_qty": gorm.Expr("CASE WHEN available_qty >= ? THEN available_qty - ? ELSE 0 END", qty, qty),
		})
	if res.Error != nil {
		return ReserveResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		return ReserveResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}

	result := ReserveResult{
		StockID:   stockID,
		Requested: qty,
	}
	if stock.AvailableQty >= qty {
		result.FromAvailable = qty
	} else {
		result.FromAvailable = stock.AvailableQty
		result.Oversubscribed = qty - stock.AvailableQty
		result.Warning = fmt.Sprintf(
			"stock %s oversubscribed by %d units (available %d, requested %d)",
			stock.Symbol, result.Oversubscribed, stock.AvailableQty, qty,
		)
	}
	return result, nil
}

// Commit converts qty blocked units into a completed sale. The quantity
// leaves the ledger entirely; there is no corresponding increment.
func Commit(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, qty int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "commit quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ? AND blocked_qty >= ?", stockID, qty).
		Update("blocked_qty", gorm.Expr("blocked_qty - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "blocked quantity insufficient for commit")
	}
	return nil
}

// Release returns qty blocked units to the available pool.
func Release(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, qty int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ? AND blocked_qty >= ?", stockID, qty).
		Updates(map[string]any{
			"blocked_qty":   gorm.Expr("blocked_qty - ?", qty),
			"available_qty": gorm.Expr("available_qty + ?", qty),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "blocked quantity insufficient for release")
	}
	return nil
}

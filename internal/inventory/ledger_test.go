package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/pkg/db/models"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

func TestReserveMovesAvailableToBlocked(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	ctx := context.Background()
	stockID := seedStock(t, db, 100, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		result, terr := Reserve(ctx, tx, stockID, 40)
		if terr != nil {
			return terr
		}
		if result.FromAvailable != 40 || result.Oversubscribed != 0 || result.Warning != "" {
			t.Fatalf("unexpected reserve result: %+v", result)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	assertQuantities(t, db, stockID, 60, 40)
}

func TestReserveOversubscriptionWarnsAndPinsAvailableAtZero(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	ctx := context.Background()
	stockID := seedStock(t, db, 30, 0)

	var result ReserveResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		result, terr = Reserve(ctx, tx, stockID, 50)
		return terr
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}
	if result.FromAvailable != 30 || result.Oversubscribed != 20 {
		t.Fatalf("unexpected reserve result: %+v", result)
	}
	if result.Warning == "" {
		t.Fatal("expected oversubscription warning")
	}

	// The blocked count carries the full request so the shortfall stays
	// visible on the ledger.
	assertQuantities(t, db, stockID, 0, 50)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	stockID := seedStock(t, db, 10, 0)

	_, err := Reserve(context.Background(), db, stockID, 0)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveUnknownStock(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)

	_, err := Reserve(context.Background(), db, uuid.New(), 5)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommitConsumesBlockedOnce(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	ctx := context.Background()
	stockID := seedStock(t, db, 0, 25)

	if err := Commit(ctx, db, stockID, 25); err != nil {
		t.Fatalf("commit: %v", err)
	}
	assertQuantities(t, db, stockID, 0, 0)

	// A second commit of the same quantity has nothing left to consume.
	err := Commit(ctx, db, stockID, 25)
	if err == nil {
		t.Fatal("expected state conflict on double commit")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseReturnsBlockedToAvailable(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	ctx := context.Background()
	stockID := seedStock(t, db, 10, 15)

	if err := Release(ctx, db, stockID, 15); err != nil {
		t.Fatalf("release: %v", err)
	}
	assertQuantities(t, db, stockID, 25, 0)
}

func TestReleaseInsufficientBlocked(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	stockID := seedStock(t, db, 10, 5)

	err := Release(context.Background(), db, stockID, 6)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	assertQuantities(t, db, stockID, 10, 5)
}

func TestReserveThenReleaseConservesTotal(t *testing.T) {
	t.Parallel()

	db := newLedgerTestDB(t)
	ctx := context.Background()
	stockID := seedStock(t, db, 80, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, terr := Reserve(ctx, tx, stockID, 30); terr != nil {
			return terr
		}
		return Release(ctx, tx, stockID, 30)
	})
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	assertQuantities(t, db, stockID, 80, 0)
}

func newLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Hand-written DDL; the Postgres model defaults do not translate to
	// sqlite.
	ddl := `
CREATE TABLE IF NOT EXISTS stocks (
  id TEXT PRIMARY KEY,
  symbol TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  blocked_qty INTEGER NOT NULL DEFAULT 0,
  landing_price NUMERIC NOT NULL DEFAULT 0,
  weighted_avg_price NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create stocks table: %v", err)
	}
	return db
}

func seedStock(t *testing.T, db *gorm.DB, available, blocked int64) uuid.UUID {
	t.Helper()
	stock := models.Stock{
		ID:           uuid.New(),
		Symbol:       "PVT-" + uuid.NewString()[:8],
		Name:         "Test Scrip",
		AvailableQty: available,
		BlockedQty:   blocked,
	}
	if err := db.Create(&stock).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return stock.ID
}

func assertQuantities(t *testing.T, db *gorm.DB, stockID uuid.UUID, wantAvailable, wantBlocked int64) {
	t.Helper()
	var stock models.Stock
	if err := db.First(&stock, "id = ?", stockID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != wantAvailable || stock.BlockedQty != wantBlocked {
		t.Fatalf("quantities available=%d blocked=%d, want available=%d blocked=%d",
			stock.AvailableQty, stock.BlockedQty, wantAvailable, wantBlocked)
	}
}

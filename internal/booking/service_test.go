package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/internal/directory"
	"github.com/kabidey/privity-sub003/internal/inventory"
	"github.com/kabidey/privity-sub003/internal/revshare"
	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/outbox"
)

func setupBookingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:booking_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	stocks := `
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
	bookings := `
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  booking_number INTEGER NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  stock_id TEXT NOT NULL,
  created_by_id TEXT NOT NULL,
  booking_type TEXT NOT NULL DEFAULT 'client',
  quantity INTEGER NOT NULL,
  buying_price NUMERIC NOT NULL,
  landing_price_at_reserve NUMERIC NOT NULL,
  selling_price NUMERIC,
  booking_date DATETIME NOT NULL,
  approval_status TEXT NOT NULL DEFAULT 'pending',
  loss_approval_status TEXT NOT NULL DEFAULT 'not_required',
  client_confirmation_status TEXT NOT NULL DEFAULT 'pending',
  is_voided INTEGER NOT NULL DEFAULT 0,
  void_reason TEXT,
  voided_at DATETIME,
  stock_transferred INTEGER NOT NULL DEFAULT 0,
  stock_transferred_at DATETIME,
  dp_transfer_ready INTEGER NOT NULL DEFAULT 0,
  referral_partner_id TEXT,
  rp_revenue_share_percent NUMERIC,
  is_bp_booking INTEGER NOT NULL DEFAULT 0,
  bp_share_percent NUMERIC,
  bp_override_percent NUMERIC,
  bp_override_status TEXT NOT NULL DEFAULT 'none',
  bp_override_reason TEXT,
  bp_override_decided_at DATETIME,
  insider_acknowledged INTEGER NOT NULL DEFAULT 0,
  insider_form_required INTEGER NOT NULL DEFAULT 0,
  insider_form_url TEXT,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  total_paid NUMERIC NOT NULL DEFAULT 0,
  tranche_seq INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  approved_at DATETIME,
  loss_decided_at DATETIME,
  client_confirmed_at DATETIME,
  lock_version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	tranches := `
CREATE TABLE IF NOT EXISTS payment_tranches (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  tranche_number INTEGER NOT NULL,
  amount NUMERIC NOT NULL,
  payment_date DATETIME NOT NULL,
  proof_url TEXT,
  notes TEXT,
  recorded_by_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, ddl := range []string{stocks, bookings, tranches} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type eventRecorder struct {
	events []outbox.DomainEvent
}

func (r *eventRecorder) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubDirectory struct {
	clients  map[uuid.UUID]*models.Client
	partners map[uuid.UUID]*models.ReferralPartner
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		clients:  make(map[uuid.UUID]*models.Client),
		partners: make(map[uuid.UUID]*models.ReferralPartner),
	}
}

func (d *stubDirectory) addClient() *models.Client {
	client := &models.Client{
		ID:       uuid.New(),
		Name:     "Test Client",
		Status:   enums.ClientStatusApproved,
		IsActive: true,
	}
	d.clients[client.ID] = client
	return client
}

func (d *stubDirectory) GetBookableClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, ok := d.clients[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	if !client.Bookable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client is not approved for bookings")
	}
	return client, nil
}

func (d *stubDirectory) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, ok := d.clients[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return client, nil
}

func (d *stubDirectory) GetActiveReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error) {
	partner, ok := d.partners[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral partner not found")
	}
	return partner, nil
}

type bookingHarness struct {
	db      *gorm.DB
	svc     Service
	dir     *stubDirectory
	events  *eventRecorder
	client  *models.Client
	stockID uuid.UUID
}

func newBookingHarness(t *testing.T) *bookingHarness {
	t.Helper()

	db := setupBookingTestDB(t)
	dir := newStubDirectory()
	events := &eventRecorder{}

	var mustDir directory.Service = dir
	resolver, err := revshare.NewResolver(mustDir, decimal.NewFromInt(30), decimal.NewFromInt(10))
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		inventory.NewRepository(db),
		gormTxRunner{db: db},
		events,
		mustDir,
		resolver,
	)
	require.NoError(t, err)

	stock := models.Stock{
		ID:           uuid.New(),
		Symbol:       "PVTX",
		Name:         "Privity Exchange",
		AvailableQty: 1000,
		LandingPrice: decimal.NewFromInt(50),
	}
	require.NoError(t, db.Create(&stock).Error)

	return &bookingHarness{
		db:      db,
		svc:     svc,
		dir:     dir,
		events:  events,
		client:  dir.addClient(),
		stockID: stock.ID,
	}
}

func (h *bookingHarness) stock(t *testing.T) models.Stock {
	t.Helper()
	var stock models.Stock
	require.NoError(t, h.db.First(&stock, "id = ?", h.stockID).Error)
	return stock
}

func deskCaller(capabilities ...enums.Capability) auth.Caller {
	return auth.NewCaller(uuid.New(), enums.MemberRolePEDesk, capabilities...)
}

func createInput(h *bookingHarness) CreateInput {
	selling := decimal.NewFromInt(60)
	return CreateInput{
		ClientID:     h.client.ID,
		StockID:      h.stockID,
		Quantity:     100,
		BookingType:  enums.BookingTypeClient,
		SellingPrice: &selling,
	}
}

func TestCreateReservesInventoryAndEmitsEvent(t *testing.T) {
	h := newBookingHarness(t)

	result, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Booking.BookingNumber)
	assert.Equal(t, enums.ApprovalStatusPending, result.Booking.ApprovalStatus)
	assert.Equal(t, enums.LossApprovalStatusNotRequired, result.Booking.LossApprovalStatus)
	assert.Contains(t, result.Actions, "reserved 100 units of PVTX")

	stock := h.stock(t)
	assert.Equal(t, int64(900), stock.AvailableQty)
	assert.Equal(t, int64(100), stock.BlockedQty)

	assert.Equal(t, []enums.OutboxEventType{enums.EventBookingCreated}, h.events.types())
}

func TestCreateFlagsLossBooking(t *testing.T) {
	h := newBookingHarness(t)
	input := createInput(h)
	selling := decimal.NewFromInt(40)
	input.SellingPrice = &selling

	result, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.NoError(t, err)

	assert.Equal(t, enums.LossApprovalStatusPending, result.Booking.LossApprovalStatus)
	assert.True(t, result.Booking.IsLossBooking)
	assert.Contains(t, result.Actions, "loss booking flagged for second-level approval")
}

func TestCreateAllowsOversubscriptionWithWarning(t *testing.T) {
	h := newBookingHarness(t)
	input := createInput(h)
	input.Quantity = 1500

	result, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.NoError(t, err)

	stock := h.stock(t)
	assert.Equal(t, int64(0), stock.AvailableQty)
	assert.Equal(t, int64(1500), stock.BlockedQty)

	require.NotEmpty(t, result.Actions)
	assert.Contains(t, result.Actions[0], "oversubscribed by 500 units")
}

func TestCreateOwnStockNeedsInsiderAcknowledgment(t *testing.T) {
	h := newBookingHarness(t)
	input := createInput(h)
	input.BookingType = enums.BookingTypeOwn

	_, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCompliance, pkgerrors.As(err).Code())

	input.InsiderAcknowledged = true
	result, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.NoError(t, err)
	assert.True(t, result.Booking.InsiderFormRequired)
}

func TestCreateBuyingPriceOverrideNeedsCapability(t *testing.T) {
	h := newBookingHarness(t)
	input := createInput(h)
	price := decimal.NewFromInt(45)
	input.BuyingPrice = &price

	_, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	result, err := h.svc.Create(context.Background(), deskCaller(enums.CapabilityEditBuyingPrice), input)
	require.NoError(t, err)
	assert.True(t, result.Booking.BuyingPrice.Equal(price))
	assert.True(t, result.Booking.LandingPriceAtReserve.Equal(decimal.NewFromInt(50)))
}

type collidingCreateRepo struct {
	Repository
}

func (r *collidingCreateRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *collidingCreateRepo) Create(ctx context.Context, b *models.Booking) error {
	return errors.New(`duplicate key value violates unique constraint "idx_bookings_booking_number"`)
}

func TestCreateBookingNumberRaceIsRetryable(t *testing.T) {
	h := newBookingHarness(t)

	svc, err := NewService(
		&collidingCreateRepo{Repository: NewRepository(h.db)},
		inventory.NewRepository(h.db),
		gormTxRunner{db: h.db},
		h.events,
		h.dir,
		mustResolver(t, h.dir),
	)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), deskCaller(), createInput(h))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConcurrentModification, pkgerrors.As(err).Code())
}

func mustResolver(t *testing.T, dir directory.Service) *revshare.Resolver {
	t.Helper()
	resolver, err := revshare.NewResolver(dir, decimal.NewFromInt(30), decimal.NewFromInt(10))
	require.NoError(t, err)
	return resolver
}

func TestApproveCommitsReservedQuantity(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	result, err := h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, true)
	require.NoError(t, err)

	assert.Equal(t, enums.ApprovalStatusApproved, result.Booking.ApprovalStatus)
	stock := h.stock(t)
	assert.Equal(t, int64(900), stock.AvailableQty)
	assert.Equal(t, int64(0), stock.BlockedQty)

	// The decision is single-shot.
	_, err = h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, false)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRejectReleasesReservedQuantity(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	result, err := h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, false)
	require.NoError(t, err)

	assert.Equal(t, enums.ApprovalStatusRejected, result.Booking.ApprovalStatus)
	stock := h.stock(t)
	assert.Equal(t, int64(1000), stock.AvailableQty)
	assert.Equal(t, int64(0), stock.BlockedQty)
}

func TestApproveRequiresCapability(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), deskCaller(), created.Booking.ID, true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestVoidPendingBookingReleasesInventory(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	result, err := h.svc.Void(context.Background(), deskCaller(enums.CapabilityVoidBookings), created.Booking.ID, "duplicate entry")
	require.NoError(t, err)

	assert.True(t, result.Booking.IsVoided)
	require.NotNil(t, result.Booking.VoidReason)
	assert.Equal(t, "duplicate entry", *result.Booking.VoidReason)
	assert.Contains(t, result.Actions, "released 100 units back to available")

	stock := h.stock(t)
	assert.Equal(t, int64(1000), stock.AvailableQty)
	assert.Equal(t, int64(0), stock.BlockedQty)

	// The record survives for audit.
	projection, err := h.svc.Get(context.Background(), created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, projection.IsVoided)
}

func TestVoidApprovedBookingKeepsInventory(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)
	_, err = h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, true)
	require.NoError(t, err)

	result, err := h.svc.Void(context.Background(), deskCaller(enums.CapabilityVoidBookings), created.Booking.ID, "client backed out")
	require.NoError(t, err)
	assert.NotContains(t, result.Actions, "released 100 units back to available")

	stock := h.stock(t)
	assert.Equal(t, int64(900), stock.AvailableQty)
	assert.Equal(t, int64(0), stock.BlockedQty)
}

func TestVoidRequiresReason(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	_, err = h.svc.Void(context.Background(), deskCaller(enums.CapabilityVoidBookings), created.Booking.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeletePendingBookingReleasesInventory(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	actions, err := h.svc.Delete(context.Background(), deskCaller(enums.CapabilityDeleteBookings), created.Booking.ID)
	require.NoError(t, err)
	assert.Contains(t, actions, "released 100 units back to available")

	stock := h.stock(t)
	assert.Equal(t, int64(1000), stock.AvailableQty)

	_, err = h.svc.Get(context.Background(), created.Booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestApproveLossFlow(t *testing.T) {
	h := newBookingHarness(t)
	input := createInput(h)
	selling := decimal.NewFromInt(40)
	input.SellingPrice = &selling
	created, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.NoError(t, err)

	result, err := h.svc.ApproveLoss(context.Background(), deskCaller(enums.CapabilityApproveLossBookings), created.Booking.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.LossApprovalStatusApproved, result.Booking.LossApprovalStatus)

	_, err = h.svc.ApproveLoss(context.Background(), deskCaller(enums.CapabilityApproveLossBookings), created.Booking.ID, false)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestConfirmClientOnce(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	result, err := h.svc.ConfirmClient(context.Background(), deskCaller(), created.Booking.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.ClientConfirmationDenied, result.Booking.ClientConfirmationStatus)
	assert.Contains(t, result.Actions, "client denied the booking; desk follow-up required")

	_, err = h.svc.ConfirmClient(context.Background(), deskCaller(), created.Booking.ID, true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestMarkStockTransferredRequiresFullPayment(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)
	_, err = h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, true)
	require.NoError(t, err)

	_, err = h.svc.MarkStockTransferred(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// Simulate the ledger completing payment.
	require.NoError(t, h.db.Model(&models.Booking{}).
		Where("id = ?", created.Booking.ID).
		Updates(map[string]any{
			"payment_status":    enums.PaymentStatusCompleted,
			"total_paid":        decimal.NewFromInt(6000),
			"dp_transfer_ready": true,
		}).Error)

	result, err := h.svc.MarkStockTransferred(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, result.Booking.StockTransferred)
	assert.Contains(t, result.Actions, "booking is now terminal")

	// Terminal bookings freeze the rp mapping and refuse deletion.
	_, err = h.svc.Delete(context.Background(), deskCaller(enums.CapabilityDeleteBookings), created.Booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUploadInsiderFormOnlyWhenRequired(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	_, err = h.svc.UploadInsiderForm(context.Background(), deskCaller(), created.Booking.ID, "https://files.example/form.pdf")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	input := createInput(h)
	input.BookingType = enums.BookingTypeOwn
	input.InsiderAcknowledged = true
	own, err := h.svc.Create(context.Background(), deskCaller(), input)
	require.NoError(t, err)

	result, err := h.svc.UploadInsiderForm(context.Background(), deskCaller(), own.Booking.ID, "https://files.example/form.pdf")
	require.NoError(t, err)
	require.NotNil(t, result.Booking.InsiderFormURL)
	assert.Equal(t, "https://files.example/form.pdf", *result.Booking.InsiderFormURL)
}

func TestUpdateRpMapping(t *testing.T) {
	h := newBookingHarness(t)
	partner := &models.ReferralPartner{
		ID:                  uuid.New(),
		Name:                "Partner One",
		DefaultSharePercent: decimal.NewFromInt(5),
		IsActive:            true,
	}
	h.dir.partners[partner.ID] = partner

	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	result, err := h.svc.UpdateRpMapping(context.Background(), deskCaller(enums.CapabilityManageRpMapping), created.Booking.ID, RpRemapInput{
		ReferralPartnerID: partner.ID,
		RpSharePercent:    decimal.NewFromInt(35),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Booking.ReferralPartnerID)
	assert.Equal(t, partner.ID, *result.Booking.ReferralPartnerID)
	require.NotNil(t, result.Booking.RpRevenueSharePercent)
	assert.True(t, result.Booking.RpRevenueSharePercent.Equal(decimal.NewFromInt(35)))
	require.Len(t, result.Actions, 1)
	assert.Contains(t, result.Actions[0], "manual approval required")
}

func TestBpOverrideLifecycle(t *testing.T) {
	h := newBookingHarness(t)
	bp := auth.NewCaller(uuid.New(), enums.MemberRoleBusinessPartner)
	created, err := h.svc.Create(context.Background(), bp, createInput(h))
	require.NoError(t, err)
	assert.True(t, created.Booking.IsBpBooking)
	require.NotNil(t, created.Booking.BpSharePercent)
	assert.True(t, created.Booking.BpSharePercent.Equal(decimal.NewFromInt(10)))

	proposed, err := h.svc.ProposeBpOverride(context.Background(), deskCaller(enums.CapabilityProposeRevenueOverride), created.Booking.ID, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, enums.BpOverrideStatusPending, proposed.Booking.BpOverrideStatus)

	// A second proposal cannot stack on a pending one.
	_, err = h.svc.ProposeBpOverride(context.Background(), deskCaller(enums.CapabilityProposeRevenueOverride), created.Booking.ID, decimal.NewFromInt(20))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	decided, err := h.svc.DecideBpOverride(context.Background(), deskCaller(enums.CapabilityApproveRevenueOverride), created.Booking.ID, BpOverrideDecision{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, enums.BpOverrideStatusApproved, decided.Booking.BpOverrideStatus)
	assert.True(t, decided.Booking.EmployeeSharePercent.Equal(decimal.NewFromInt(85)))
}

func TestDecideBpOverrideRejectionNeedsReason(t *testing.T) {
	h := newBookingHarness(t)

	_, err := h.svc.DecideBpOverride(context.Background(), deskCaller(enums.CapabilityApproveRevenueOverride), uuid.New(), BpOverrideDecision{Approve: false})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestEditReArmsLossAxis(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)
	assert.Equal(t, enums.LossApprovalStatusNotRequired, created.Booking.LossApprovalStatus)

	selling := decimal.NewFromInt(30)
	result, err := h.svc.Edit(context.Background(), deskCaller(), created.Booking.ID, EditInput{SellingPrice: &selling})
	require.NoError(t, err)
	assert.Equal(t, enums.LossApprovalStatusPending, result.Booking.LossApprovalStatus)
	assert.Contains(t, result.Actions, "loss booking flagged for second-level approval")

	recovered := decimal.NewFromInt(70)
	result, err = h.svc.Edit(context.Background(), deskCaller(), created.Booking.ID, EditInput{SellingPrice: &recovered})
	require.NoError(t, err)
	assert.Equal(t, enums.LossApprovalStatusNotRequired, result.Booking.LossApprovalStatus)
}

func TestEditQuantityAdjustsReservation(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)

	quantity := int64(250)
	result, err := h.svc.Edit(context.Background(), deskCaller(), created.Booking.ID, EditInput{Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.Booking.Quantity)
	assert.Contains(t, result.Actions, "reservation adjusted from 100 to 250 units")

	stock := h.stock(t)
	assert.Equal(t, int64(750), stock.AvailableQty)
	assert.Equal(t, int64(250), stock.BlockedQty)
}

func TestEditCommercialTermsFrozenAfterDecision(t *testing.T) {
	h := newBookingHarness(t)
	created, err := h.svc.Create(context.Background(), deskCaller(), createInput(h))
	require.NoError(t, err)
	_, err = h.svc.Approve(context.Background(), deskCaller(enums.CapabilityApproveBookings), created.Booking.ID, true)
	require.NoError(t, err)

	selling := decimal.NewFromInt(80)
	_, err = h.svc.Edit(context.Background(), deskCaller(), created.Booking.ID, EditInput{SellingPrice: &selling})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// Notes stay editable after the freeze.
	notes := "client called to confirm"
	result, err := h.svc.Edit(context.Background(), deskCaller(), created.Booking.ID, EditInput{Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, result.Booking.Notes)
	assert.Equal(t, notes, *result.Booking.Notes)
}

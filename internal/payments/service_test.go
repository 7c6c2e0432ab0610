package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/outbox"
	"github.com/kabidey/privity-sub003/pkg/pagination"
)

type fakeBookingRepo struct {
	bookings map[uuid.UUID]*models.Booking
}

func newFakeBookingRepo(bookings ...*models.Booking) *fakeBookingRepo {
	repo := &fakeBookingRepo{bookings: make(map[uuid.UUID]*models.Booking)}
	for _, b := range bookings {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (f *fakeBookingRepo) WithTx(tx *gorm.DB) booking.Repository { return f }

func (f *fakeBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingRepo) List(ctx context.Context, params pagination.Params, filters booking.ListFilters) (*booking.Page, error) {
	return &booking.Page{}, nil
}

func (f *fakeBookingRepo) ListTouchedSince(ctx context.Context, since time.Time, limit int) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) UpdateVersioned(ctx context.Context, id uuid.UUID, version int64, fields map[string]any) (int64, error) {
	b, ok := f.bookings[id]
	if !ok || b.LockVersion != version {
		return 0, nil
	}
	if v, ok := fields["total_paid"]; ok {
		b.TotalPaid = v.(decimal.Decimal)
	}
	if v, ok := fields["payment_status"]; ok {
		b.PaymentStatus = v.(enums.PaymentStatus)
	}
	if v, ok := fields["tranche_seq"]; ok {
		b.TrancheSeq = v.(int)
	}
	if v, ok := fields["dp_transfer_ready"]; ok {
		b.DpTransferReady = v.(bool)
	}
	b.LockVersion++
	return 1, nil
}

func (f *fakeBookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.bookings, id)
	return nil
}

func (f *fakeBookingRepo) NextBookingNumber(ctx context.Context) (int64, error) {
	return int64(len(f.bookings) + 1), nil
}

type fakeTrancheRepo struct {
	tranches map[uuid.UUID]*models.PaymentTranche
}

func newFakeTrancheRepo(tranches ...*models.PaymentTranche) *fakeTrancheRepo {
	repo := &fakeTrancheRepo{tranches: make(map[uuid.UUID]*models.PaymentTranche)}
	for _, tr := range tranches {
		repo.tranches[tr.ID] = tr
	}
	return repo
}

func (f *fakeTrancheRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeTrancheRepo) Create(ctx context.Context, tranche *models.PaymentTranche) error {
	f.tranches[tranche.ID] = tranche
	return nil
}

func (f *fakeTrancheRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentTranche, error) {
	var out []models.PaymentTranche
	for _, tr := range f.tranches {
		if tr.BookingID == bookingID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (f *fakeTrancheRepo) FindByNumber(ctx context.Context, bookingID uuid.UUID, trancheNumber int) (*models.PaymentTranche, error) {
	for _, tr := range f.tranches {
		if tr.BookingID == bookingID && tr.TrancheNumber == trancheNumber {
			copied := *tr
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTrancheRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.tranches, id)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range f.events {
		if existing.EventType == event.EventType &&
			existing.AggregateType == event.AggregateType &&
			existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return f.Emit(ctx, tx, event)
}

func (f *fakeOutbox) eventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

func approvedBooking() *models.Booking {
	selling := decimal.NewFromInt(100)
	return &models.Booking{
		ID:                 uuid.New(),
		BookingNumber:      7,
		ClientID:           uuid.New(),
		StockID:            uuid.New(),
		Quantity:           10,
		BuyingPrice:        decimal.NewFromInt(90),
		SellingPrice:       &selling,
		ApprovalStatus:     enums.ApprovalStatusApproved,
		LossApprovalStatus: enums.LossApprovalStatusNotRequired,
		PaymentStatus:      enums.PaymentStatusPending,
		TotalPaid:          decimal.Zero,
	}
}

func newTestService(t *testing.T, bookings *fakeBookingRepo, tranches *fakeTrancheRepo, ob *fakeOutbox) Service {
	t.Helper()
	svc, err := NewService(tranches, bookings, fakeTxRunner{}, ob, 4)
	require.NoError(t, err)
	return svc
}

func recorder() auth.Caller {
	return auth.NewCaller(uuid.New(), enums.MemberRoleEmployee)
}

func deleter() auth.Caller {
	return auth.NewCaller(uuid.New(), enums.MemberRolePEDesk, enums.CapabilityDeletePayments)
}

func TestAddPartialPayment(t *testing.T) {
	b := approvedBooking()
	bookings := newFakeBookingRepo(b)
	tranches := newFakeTrancheRepo()
	ob := &fakeOutbox{}
	svc := newTestService(t, bookings, tranches, ob)

	result, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{
		Amount: decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPartial, result.Booking.PaymentStatus)
	assert.True(t, result.Booking.TotalPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, result.Booking.Outstanding.Equal(decimal.NewFromInt(600)))
	assert.False(t, result.Booking.DpTransferReady)
	assert.Equal(t, []enums.OutboxEventType{enums.EventPaymentRecorded}, ob.eventTypes())
}

func TestAddFinalPaymentFlipsTransferReady(t *testing.T) {
	b := approvedBooking()
	b.TotalPaid = decimal.NewFromInt(600)
	b.PaymentStatus = enums.PaymentStatusPartial
	b.TrancheSeq = 1
	bookings := newFakeBookingRepo(b)
	tranches := newFakeTrancheRepo()
	ob := &fakeOutbox{}
	svc := newTestService(t, bookings, tranches, ob)

	result, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{
		Amount: decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusCompleted, result.Booking.PaymentStatus)
	assert.True(t, result.Booking.DpTransferReady)
	assert.Contains(t, result.Actions, "booking fully paid; dp transfer ready")
	assert.Equal(t, []enums.OutboxEventType{enums.EventPaymentRecorded, enums.EventTransferReady}, ob.eventTypes())
}

func TestAddRejectsOverpayment(t *testing.T) {
	b := approvedBooking()
	b.TotalPaid = decimal.NewFromInt(900)
	bookings := newFakeBookingRepo(b)
	svc := newTestService(t, bookings, newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{
		Amount: decimal.NewFromInt(101),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Contains(t, pkgerrors.As(err).Message(), "100.00")
}

func TestAddRejectsBeforeApproval(t *testing.T) {
	b := approvedBooking()
	b.ApprovalStatus = enums.ApprovalStatusPending
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAddRejectsPendingLossApproval(t *testing.T) {
	b := approvedBooking()
	b.LossApprovalStatus = enums.LossApprovalStatusPending
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAddRejectsVoidedBooking(t *testing.T) {
	b := approvedBooking()
	b.IsVoided = true
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAddEnforcesTrancheCap(t *testing.T) {
	b := approvedBooking()
	b.TrancheSeq = 4
	for i := 1; i <= 4; i++ {
		b.Payments = append(b.Payments, models.PaymentTranche{
			ID:            uuid.New(),
			BookingID:     b.ID,
			TrancheNumber: i,
			Amount:        decimal.NewFromInt(100),
		})
	}
	b.TotalPaid = decimal.NewFromInt(400)
	b.PaymentStatus = enums.PaymentStatusPartial
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{Amount: decimal.NewFromInt(100)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Contains(t, pkgerrors.As(err).Message(), "maximum of 4 tranches")
}

func TestAddNeverReusesTrancheNumbers(t *testing.T) {
	b := approvedBooking()
	// Two tranches were recorded and one deleted; the sequence stays at 2.
	b.TrancheSeq = 2
	b.TotalPaid = decimal.NewFromInt(100)
	b.PaymentStatus = enums.PaymentStatusPartial
	b.Payments = []models.PaymentTranche{{
		ID:            uuid.New(),
		BookingID:     b.ID,
		TrancheNumber: 1,
		Amount:        decimal.NewFromInt(100),
	}}
	tranches := newFakeTrancheRepo()
	svc := newTestService(t, newFakeBookingRepo(b), tranches, &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), b.ID, AddInput{Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	var created *models.PaymentTranche
	for _, tr := range tranches.tranches {
		created = tr
	}
	require.NotNil(t, created)
	assert.Equal(t, 3, created.TrancheNumber)
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, newFakeBookingRepo(), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Add(context.Background(), recorder(), uuid.New(), AddInput{Amount: decimal.Zero})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteRequiresCapability(t *testing.T) {
	b := approvedBooking()
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Delete(context.Background(), recorder(), b.ID, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestDeleteFrozenAfterStockTransfer(t *testing.T) {
	b := approvedBooking()
	b.StockTransferred = true
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Delete(context.Background(), deleter(), b.ID, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestDeleteRevokesTransferReadiness(t *testing.T) {
	b := approvedBooking()
	b.TotalPaid = decimal.NewFromInt(1000)
	b.PaymentStatus = enums.PaymentStatusCompleted
	b.DpTransferReady = true
	b.TrancheSeq = 2
	tranche := &models.PaymentTranche{
		ID:            uuid.New(),
		BookingID:     b.ID,
		TrancheNumber: 2,
		Amount:        decimal.NewFromInt(400),
	}
	tranches := newFakeTrancheRepo(tranche)
	ob := &fakeOutbox{}
	svc := newTestService(t, newFakeBookingRepo(b), tranches, ob)

	result, err := svc.Delete(context.Background(), deleter(), b.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPartial, result.Booking.PaymentStatus)
	assert.True(t, result.Booking.TotalPaid.Equal(decimal.NewFromInt(600)))
	assert.False(t, result.Booking.DpTransferReady)
	assert.Contains(t, result.Actions, "dp transfer readiness revoked")
	require.Equal(t, []enums.OutboxEventType{enums.EventPaymentDeleted}, ob.eventTypes())

	_, err = tranches.FindByNumber(context.Background(), b.ID, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteUnknownTranche(t *testing.T) {
	b := approvedBooking()
	svc := newTestService(t, newFakeBookingRepo(b), newFakeTrancheRepo(), &fakeOutbox{})

	_, err := svc.Delete(context.Background(), deleter(), b.ID, 9)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

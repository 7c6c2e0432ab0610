package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/outbox"
	"github.com/kabidey/privity-sub003/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AddInput records one tranche against a booking.
type AddInput struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate time.Time       `json:"payment_date"`
	ProofURL    *string         `json:"proof_url,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// Service manages the payment tranche ledger. A booking accepts money only
// after both approval axes have cleared, and never beyond its total.
type Service interface {
	Add(ctx context.Context, caller auth.Caller, bookingID uuid.UUID, input AddInput) (*booking.Result, error)
	Delete(ctx context.Context, caller auth.Caller, bookingID uuid.UUID, trancheNumber int) (*booking.Result, error)
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]booking.TrancheView, error)
}

type service struct {
	repo        Repository
	bookings    booking.Repository
	tx          txRunner
	outbox      outboxPublisher
	maxTranches int
}

// NewService wires the payments service. maxTranches caps how many tranches
// one booking may carry.
func NewService(repo Repository, bookings booking.Repository, tx txRunner, ob outboxPublisher, maxTranches int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if bookings == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if maxTranches <= 0 {
		return nil, fmt.Errorf("max tranches must be positive")
	}
	return &service{
		repo:        repo,
		bookings:    bookings,
		tx:          tx,
		outbox:      ob,
		maxTranches: maxTranches,
	}, nil
}

func (s *service) Add(ctx context.Context, caller auth.Caller, bookingID uuid.UUID, input AddInput) (*booking.Result, error) {
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	var result *booking.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := s.loadBooking(ctx, bookings, bookingID)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.ApprovalStatus != enums.ApprovalStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not approved")
		}
		if !b.LossApprovalStatus.Settled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "loss approval is outstanding")
		}

		total := b.TotalAmount()
		if total.Sign() <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "booking has no selling price; total is undefined")
		}
		newTotal := b.TotalPaid.Add(input.Amount)
		if newTotal.GreaterThan(total) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
				"payment exceeds outstanding balance of %s", total.Sub(b.TotalPaid).StringFixed(2),
			))
		}
		if len(b.Payments) >= s.maxTranches {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf(
				"booking already carries the maximum of %d tranches", s.maxTranches,
			))
		}

		tranche := &models.PaymentTranche{
			ID:            uuid.New(),
			BookingID:     b.ID,
			TrancheNumber: b.TrancheSeq + 1,
			Amount:        input.Amount,
			PaymentDate:   paymentDate,
			ProofURL:      input.ProofURL,
			Notes:         input.Notes,
			RecordedByID:  caller.UserID,
		}
		if err := s.repo.WithTx(tx).Create(ctx, tranche); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tranche")
		}

		status := enums.PaymentStatusPartial
		ready := b.DpTransferReady
		var actions []string
		if newTotal.Equal(total) {
			status = enums.PaymentStatusCompleted
			ready = true
			if !b.DpTransferReady {
				actions = append(actions, "booking fully paid; dp transfer ready")
			}
		}

		fields := map[string]any{
			"total_paid":        newTotal,
			"payment_status":    status,
			"tranche_seq":       tranche.TrancheNumber,
			"dp_transfer_ready": ready,
		}
		if err := s.applyVersioned(ctx, bookings, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePaymentTranche,
			AggregateID:   tranche.ID,
			Actor:         actor(caller),
			Data: payloads.PaymentRecordedEvent{
				BookingID:       b.ID,
				BookingNumber:   b.BookingNumber,
				TrancheNumber:   tranche.TrancheNumber,
				Amount:          tranche.Amount,
				TotalPaid:       newTotal,
				PaymentStatus:   status,
				DpTransferReady: ready,
			},
		}); err != nil {
			return err
		}
		if ready && !b.DpTransferReady {
			// At most one transfer_ready per booking, even when readiness
			// is revoked by an audited delete and later re-earned.
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTransferReady,
				AggregateType: enums.AggregateBooking,
				AggregateID:   b.ID,
				Actor:         actor(caller),
				Data: payloads.TransferReadyEvent{
					BookingID:     b.ID,
					BookingNumber: b.BookingNumber,
					TotalPaid:     newTotal,
				},
			}); err != nil {
				return err
			}
		}
		return s.finishResult(ctx, bookings, b.ID, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, bookingID uuid.UUID, trancheNumber int) (*booking.Result, error) {
	if !caller.Can(enums.CapabilityDeletePayments) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot delete payments")
	}
	var result *booking.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookings := s.bookings.WithTx(tx)
		b, err := s.loadBooking(ctx, bookings, bookingID)
		if err != nil {
			return err
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock already transferred; the ledger is frozen")
		}

		tranche, err := s.repo.WithTx(tx).FindByNumber(ctx, b.ID, trancheNumber)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "tranche not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tranche")
		}
		if err := s.repo.WithTx(tx).Delete(ctx, tranche.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete tranche")
		}

		total := b.TotalAmount()
		newTotal := b.TotalPaid.Sub(tranche.Amount)
		status := enums.PaymentStatusPending
		if newTotal.Sign() > 0 {
			status = enums.PaymentStatusPartial
			if total.Sign() > 0 && newTotal.Equal(total) {
				status = enums.PaymentStatusCompleted
			}
		}
		wasReady := b.DpTransferReady
		ready := status == enums.PaymentStatusCompleted

		var actions []string
		actions = append(actions, fmt.Sprintf("tranche %d removed from the ledger", trancheNumber))
		if wasReady && !ready {
			actions = append(actions, "dp transfer readiness revoked")
		}

		fields := map[string]any{
			"total_paid":        newTotal,
			"payment_status":    status,
			"dp_transfer_ready": ready,
		}
		if err := s.applyVersioned(ctx, bookings, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentDeleted,
			AggregateType: enums.AggregatePaymentTranche,
			AggregateID:   tranche.ID,
			Actor:         actor(caller),
			Data: payloads.PaymentDeletedEvent{
				BookingID:          b.ID,
				BookingNumber:      b.BookingNumber,
				TrancheNumber:      tranche.TrancheNumber,
				Amount:             tranche.Amount,
				TotalPaid:          newTotal,
				PaymentStatus:      status,
				WasDpTransferReady: wasReady,
				DpTransferReady:    ready,
				DeletedByID:        caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, bookings, b.ID, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]booking.TrancheView, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	tranches, err := s.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tranches")
	}
	views := make([]booking.TrancheView, 0, len(tranches))
	for _, t := range tranches {
		views = append(views, booking.TrancheView{
			ID:            t.ID,
			TrancheNumber: t.TrancheNumber,
			Amount:        t.Amount,
			PaymentDate:   t.PaymentDate,
			ProofURL:      t.ProofURL,
			Notes:         t.Notes,
			RecordedByID:  t.RecordedByID,
			CreatedAt:     t.CreatedAt,
		})
	}
	return views, nil
}

func (s *service) loadBooking(ctx context.Context, repo booking.Repository, id uuid.UUID) (*models.Booking, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	b, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return b, nil
}

func (s *service) applyVersioned(ctx context.Context, repo booking.Repository, b *models.Booking, fields map[string]any) error {
	rows, err := repo.UpdateVersioned(ctx, b.ID, b.LockVersion, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrentModification, "booking was modified concurrently")
	}
	return nil
}

func (s *service) finishResult(ctx context.Context, repo booking.Repository, id uuid.UUID, actions []string, out **booking.Result) error {
	fresh, err := s.loadBooking(ctx, repo, id)
	if err != nil {
		return err
	}
	*out = &booking.Result{Booking: booking.NewProjection(fresh), Actions: actions}
	return nil
}

func actor(caller auth.Caller) *outbox.ActorRef {
	if caller.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role.String()}
}

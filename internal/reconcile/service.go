package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/logger"
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

// Report summarizes one reconciliation run.
type Report struct {
	Checked   int      `json:"checked"`
	Corrected int      `json:"corrected"`
	Actions   []string `json:"actions,omitempty"`
}

// Service recomputes derived booking state from the tranche ledger and heals
// drift. Running it twice in a row is safe; the second pass finds nothing to
// do and emits nothing.
type Service interface {
	RefreshStatus(ctx context.Context, id uuid.UUID) ([]string, error)
	Sweep(ctx context.Context, window time.Duration, batch int) (*Report, error)
}

type service struct {
	bookings booking.Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService wires the reconciliation service.
func NewService(bookings booking.Repository, tx txRunner, ob outboxPublisher, logg *logger.Logger) (Service, error) {
	if bookings == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{bookings: bookings, tx: tx, outbox: ob, logg: logg}, nil
}

// RefreshStatus re-derives payment totals, payment status, transfer
// readiness and the loss axis for one booking, fixing whatever drifted.
// It returns the corrective actions taken, empty when nothing drifted.
func (s *service) RefreshStatus(ctx context.Context, id uuid.UUID) ([]string, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	var actions []string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		b, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}

		// Denial is advisory. It stays visible on the projection and in the
		// logs but never counts as a correction, so repeat runs stay clean.
		if b.ClientConfirmationStatus == enums.ClientConfirmationDenied && !b.IsVoided && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"booking_id":     b.ID.String(),
				"booking_number": b.BookingNumber,
			})
			s.logg.Warn(logCtx, "client denial outstanding; desk follow-up required")
		}

		fields := map[string]any{}
		actions = s.reconcile(b, fields)
		if len(fields) == 0 {
			return nil
		}

		rows, err := repo.UpdateVersioned(ctx, b.ID, b.LockVersion, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "booking was modified concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingStatusReconciled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Data: payloads.BookingReconciledEvent{
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				Actions:       actions,
			},
		}); err != nil {
			return err
		}

		// A heal that grants readiness still owes downstream the
		// transfer_ready signal. Deduped against the payment path.
		if granted, ok := fields["dp_transfer_ready"].(bool); ok && granted {
			total, _ := fields["total_paid"].(decimal.Decimal)
			if _, corrected := fields["total_paid"]; !corrected {
				total = b.TotalPaid
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTransferReady,
				AggregateType: enums.AggregateBooking,
				AggregateID:   b.ID,
				Data: payloads.TransferReadyEvent{
					BookingID:     b.ID,
					BookingNumber: b.BookingNumber,
					TotalPaid:     total,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// reconcile compares stored state against the tranche ledger, filling fields
// with the corrections and returning the matching action descriptions.
func (s *service) reconcile(b *models.Booking, fields map[string]any) []string {
	var actions []string

	total := decimal.Zero
	maxTranche := 0
	for _, t := range b.Payments {
		total = total.Add(t.Amount)
		if t.TrancheNumber > maxTranche {
			maxTranche = t.TrancheNumber
		}
	}
	if !total.Equal(b.TotalPaid) {
		fields["total_paid"] = total
		actions = append(actions, fmt.Sprintf(
			"total_paid corrected from %s to %s", b.TotalPaid.StringFixed(2), total.StringFixed(2),
		))
	}
	if maxTranche > b.TrancheSeq {
		fields["tranche_seq"] = maxTranche
		actions = append(actions, fmt.Sprintf("tranche sequence advanced to %d", maxTranche))
	}

	bookingTotal := b.TotalAmount()
	status := enums.PaymentStatusPending
	if total.Sign() > 0 {
		status = enums.PaymentStatusPartial
		if bookingTotal.Sign() > 0 && total.Equal(bookingTotal) {
			status = enums.PaymentStatusCompleted
		}
	}
	if status != b.PaymentStatus {
		fields["payment_status"] = status
		actions = append(actions, fmt.Sprintf(
			"payment_status corrected from %s to %s", b.PaymentStatus, status,
		))
	}

	if !b.StockTransferred {
		ready := status == enums.PaymentStatusCompleted
		if ready != b.DpTransferReady {
			fields["dp_transfer_ready"] = ready
			if ready {
				actions = append(actions, "dp transfer readiness granted")
			} else {
				actions = append(actions, "dp transfer readiness revoked")
			}
		}
	}

	// The loss axis only re-arms while the commercial terms can still move.
	if b.ApprovalStatus == enums.ApprovalStatusPending {
		isLoss := b.IsLossBooking()
		if isLoss && b.LossApprovalStatus == enums.LossApprovalStatusNotRequired {
			fields["loss_approval_status"] = enums.LossApprovalStatusPending
			actions = append(actions, "loss booking flagged for second-level approval")
		}
		if !isLoss && b.LossApprovalStatus == enums.LossApprovalStatusPending {
			fields["loss_approval_status"] = enums.LossApprovalStatusNotRequired
			actions = append(actions, "loss approval no longer required")
		}
	}

	return actions
}

// Sweep reconciles every booking touched inside the window, in one batch.
// Individual failures do not stop the sweep; they are aggregated and
// returned alongside the report.
func (s *service) Sweep(ctx context.Context, window time.Duration, batch int) (*Report, error) {
	since := time.Now().Add(-window)
	items, err := s.bookings.ListTouchedSince(ctx, since, batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings for sweep")
	}

	report := &Report{Checked: len(items)}
	var errs error
	for _, b := range items {
		actions, err := s.RefreshStatus(ctx, b.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
			continue
		}
		if len(actions) > 0 {
			report.Corrected++
			report.Actions = append(report.Actions, actions...)
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"booking_id": b.ID.String(),
					"actions":    actions,
				})
				s.logg.Info(logCtx, "booking reconciled")
			}
		}
	}
	return report, errs
}

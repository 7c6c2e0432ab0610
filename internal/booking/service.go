package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kabidey/privity-sub003/internal/directory"
	"github.com/kabidey/privity-sub003/internal/inventory"
	"github.com/kabidey/privity-sub003/internal/revshare"
	"github.com/kabidey/privity-sub003/pkg/auth"
	dbpkg "github.com/kabidey/privity-sub003/pkg/db"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/outbox"
	"github.com/kabidey/privity-sub003/pkg/outbox/payloads"
	"github.com/kabidey/privity-sub003/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the booking lifecycle. Every transition runs inside one
// transaction with an optimistic version check, so two racing writers can
// never both commit.
type Service interface {
	Create(ctx context.Context, caller auth.Caller, input CreateInput) (*Result, error)
	Get(ctx context.Context, id uuid.UUID) (*Projection, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error)
	Edit(ctx context.Context, caller auth.Caller, id uuid.UUID, input EditInput) (*Result, error)
	Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) ([]string, error)
	Void(ctx context.Context, caller auth.Caller, id uuid.UUID, reason string) (*Result, error)
	Approve(ctx context.Context, caller auth.Caller, id uuid.UUID, approve bool) (*Result, error)
	ApproveLoss(ctx context.Context, caller auth.Caller, id uuid.UUID, approve bool) (*Result, error)
	ConfirmClient(ctx context.Context, caller auth.Caller, id uuid.UUID, accept bool) (*Result, error)
	MarkStockTransferred(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Result, error)
	UploadInsiderForm(ctx context.Context, caller auth.Caller, id uuid.UUID, formURL string) (*Result, error)
	UpdateRpMapping(ctx context.Context, caller auth.Caller, id uuid.UUID, input RpRemapInput) (*Result, error)
	ProposeBpOverride(ctx context.Context, caller auth.Caller, id uuid.UUID, percent decimal.Decimal) (*Result, error)
	DecideBpOverride(ctx context.Context, caller auth.Caller, id uuid.UUID, decision BpOverrideDecision) (*Result, error)
}

type service struct {
	repo      Repository
	stocks    inventory.Repository
	tx        txRunner
	outbox    outboxPublisher
	directory directory.Service
	resolver  *revshare.Resolver
}

// NewService wires the booking service with its collaborators.
func NewService(
	repo Repository,
	stocks inventory.Repository,
	tx txRunner,
	ob outboxPublisher,
	dir directory.Service,
	resolver *revshare.Resolver,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if stocks == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory service required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("revenue share resolver required")
	}
	return &service{
		repo:      repo,
		stocks:    stocks,
		tx:        tx,
		outbox:    ob,
		directory: dir,
		resolver:  resolver,
	}, nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, input CreateInput) (*Result, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.BookingType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown booking type")
	}
	if input.SellingPrice != nil && input.SellingPrice.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling price must be positive")
	}
	if input.BuyingPrice != nil {
		if !caller.Can(enums.CapabilityEditBuyingPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot override the buying price")
		}
		if input.BuyingPrice.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "buying price must be positive")
		}
	}
	if input.BookingType == enums.BookingTypeOwn && !input.InsiderAcknowledged {
		return nil, pkgerrors.New(pkgerrors.CodeCompliance, "insider trading acknowledgment required for own-stock bookings")
	}

	client, err := s.directory.GetBookableClient(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}

	terms, err := s.resolver.ResolveCreation(ctx, caller, client, revshare.CreationInput{
		ReferralPartnerID: input.ReferralPartnerID,
		RpSharePercent:    input.RpSharePercent,
	})
	if err != nil {
		return nil, err
	}

	bookingDate := input.BookingDate
	if bookingDate.IsZero() {
		bookingDate = time.Now()
	}

	var (
		created *models.Booking
		actions []string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stock, err := s.stocks.WithTx(tx).FindByID(ctx, input.StockID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}

		buyingPrice := stock.LandingPrice
		if input.BuyingPrice != nil {
			buyingPrice = *input.BuyingPrice
		}
		if buyingPrice.Sign() <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock has no landing price; supply a buying price")
		}

		reservation, err := inventory.Reserve(ctx, tx, stock.ID, input.Quantity)
		if err != nil {
			return err
		}

		number, err := repo.NextBookingNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign booking number")
		}

		b := &models.Booking{
			ID:                    uuid.New(),
			BookingNumber:         number,
			ClientID:              client.ID,
			StockID:               stock.ID,
			CreatedByID:           caller.UserID,
			BookingType:           input.BookingType,
			Quantity:              input.Quantity,
			BuyingPrice:           buyingPrice,
			LandingPriceAtReserve: stock.LandingPrice,
			SellingPrice:          input.SellingPrice,
			BookingDate:           bookingDate,

			ApprovalStatus:           enums.ApprovalStatusPending,
			LossApprovalStatus:       enums.LossApprovalStatusNotRequired,
			ClientConfirmationStatus: enums.ClientConfirmationPending,

			ReferralPartnerID:     terms.ReferralPartnerID,
			RpRevenueSharePercent: terms.RpSharePercent,
			IsBpBooking:           terms.IsBpBooking,
			BpSharePercent:        terms.BpSharePercent,
			BpOverrideStatus:      enums.BpOverrideStatusNone,

			InsiderAcknowledged: input.InsiderAcknowledged,
			InsiderFormRequired: input.BookingType == enums.BookingTypeOwn,

			PaymentStatus: enums.PaymentStatusPending,
			TotalPaid:     decimal.Zero,
			Notes:         input.Notes,
		}
		if b.IsLossBooking() {
			b.LossApprovalStatus = enums.LossApprovalStatusPending
			actions = append(actions, "loss booking flagged for second-level approval")
		}
		if reservation.Warning != "" {
			actions = append(actions, reservation.Warning)
		}
		actions = append(actions, terms.Warnings...)
		actions = append(actions, fmt.Sprintf("reserved %d units of %s", input.Quantity, stock.Symbol))

		if err := repo.Create(ctx, b); err != nil {
			// A concurrent create can win the race for the same booking
			// number; the unique index surfaces it here and the caller
			// retries.
			if dbpkg.IsUniqueViolation(err, "idx_bookings_booking_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConcurrentModification, err, "booking number already assigned")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}

		created = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BookingCreatedEvent{
				BookingID:         b.ID,
				BookingNumber:     b.BookingNumber,
				ClientID:          b.ClientID,
				StockID:           b.StockID,
				Quantity:          b.Quantity,
				BookingType:       b.BookingType.String(),
				IsLossBooking:     b.IsLossBooking(),
				IsBpBooking:       b.IsBpBooking,
				ReferralPartnerID: b.ReferralPartnerID,
				RpSharePercent:    b.RpRevenueSharePercent,
				Oversubscribed:    reservation.Oversubscribed,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &Result{Booking: NewProjection(created), Actions: actions}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Projection, error) {
	b, err := s.findBooking(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	p := NewProjection(b)
	return &p, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error) {
	page, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return page, nil
}

func (s *service) Edit(ctx context.Context, caller auth.Caller, id uuid.UUID, input EditInput) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock already transferred")
		}

		fields := map[string]any{}
		var actions []string

		commercialEdit := input.Quantity != nil || input.BuyingPrice != nil ||
			input.SellingPrice != nil || input.BookingDate != nil
		if commercialEdit && b.ApprovalStatus != enums.ApprovalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commercial terms are frozen once the booking is decided")
		}

		quantity := b.Quantity
		if input.Quantity != nil && *input.Quantity != b.Quantity {
			if *input.Quantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
			}
			if err := inventory.Release(ctx, tx, b.StockID, b.Quantity); err != nil {
				return err
			}
			reservation, err := inventory.Reserve(ctx, tx, b.StockID, *input.Quantity)
			if err != nil {
				return err
			}
			if reservation.Warning != "" {
				actions = append(actions, reservation.Warning)
			}
			quantity = *input.Quantity
			fields["quantity"] = quantity
			actions = append(actions, fmt.Sprintf("reservation adjusted from %d to %d units", b.Quantity, quantity))
		}

		buying := b.BuyingPrice
		if input.BuyingPrice != nil {
			if !caller.Can(enums.CapabilityEditBuyingPrice) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot override the buying price")
			}
			if input.BuyingPrice.Sign() <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "buying price must be positive")
			}
			buying = *input.BuyingPrice
			fields["buying_price"] = buying
		}

		selling := b.SellingPrice
		if input.SellingPrice != nil {
			if input.SellingPrice.Sign() <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "selling price must be positive")
			}
			selling = input.SellingPrice
			fields["selling_price"] = *selling
		}

		if input.BookingDate != nil {
			fields["booking_date"] = *input.BookingDate
		}
		if input.Notes != nil {
			fields["notes"] = *input.Notes
		}

		// Price edits can move the booking across the loss boundary; the
		// loss axis re-arms either way while approval is still pending.
		if commercialEdit {
			isLoss := selling != nil && selling.LessThan(buying)
			next := enums.LossApprovalStatusNotRequired
			if isLoss {
				next = enums.LossApprovalStatusPending
			}
			if next != b.LossApprovalStatus {
				fields["loss_approval_status"] = next
				fields["loss_decided_at"] = nil
				if isLoss {
					actions = append(actions, "loss booking flagged for second-level approval")
				} else {
					actions = append(actions, "loss approval no longer required")
				}
			}
		}

		if len(fields) == 0 {
			result = &Result{Booking: NewProjection(b)}
			return nil
		}

		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) ([]string, error) {
	if !caller.Can(enums.CapabilityDeleteBookings) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot delete bookings")
	}
	var actions []string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock already transferred; booking cannot be deleted")
		}

		var released int64
		if !b.IsVoided && b.ApprovalStatus == enums.ApprovalStatusPending {
			if err := inventory.Release(ctx, tx, b.StockID, b.Quantity); err != nil {
				return err
			}
			released = b.Quantity
			actions = append(actions, fmt.Sprintf("released %d units back to available", released))
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingDeleted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BookingDeletedEvent{
				BookingID:        b.ID,
				BookingNumber:    b.BookingNumber,
				ReleasedQuantity: released,
				DeletedByID:      caller.UserID,
			},
		}); err != nil {
			return err
		}

		if err := repo.Delete(ctx, b.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete booking")
		}
		actions = append(actions, fmt.Sprintf("booking #%d deleted", b.BookingNumber))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *service) Void(ctx context.Context, caller auth.Caller, id uuid.UUID, reason string) (*Result, error) {
	if !caller.Can(enums.CapabilityVoidBookings) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot void bookings")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeConflict, "booking already voided")
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock already transferred; booking cannot be voided")
		}

		var released int64
		var actions []string
		if b.ApprovalStatus == enums.ApprovalStatusPending {
			if err := inventory.Release(ctx, tx, b.StockID, b.Quantity); err != nil {
				return err
			}
			released = b.Quantity
			actions = append(actions, fmt.Sprintf("released %d units back to available", released))
		}

		now := time.Now()
		fields := map[string]any{
			"is_voided":   true,
			"void_reason": reason,
			"voided_at":   now,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingVoided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BookingVoidedEvent{
				BookingID:        b.ID,
				BookingNumber:    b.BookingNumber,
				Reason:           reason,
				ReleasedQuantity: released,
				VoidedAt:         now,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Approve(ctx context.Context, caller auth.Caller, id uuid.UUID, approve bool) (*Result, error) {
	if !caller.Can(enums.CapabilityApproveBookings) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot approve bookings")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.ApprovalStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already decided")
		}

		now := time.Now()
		var (
			actions   []string
			status    enums.ApprovalStatus
			eventType enums.OutboxEventType
		)
		if approve {
			// The approval is the one and only commit of the reserved
			// quantity; the version check above makes it single-shot.
			if err := inventory.Commit(ctx, tx, b.StockID, b.Quantity); err != nil {
				return err
			}
			status = enums.ApprovalStatusApproved
			eventType = enums.EventBookingApproved
			actions = append(actions, fmt.Sprintf("committed %d units out of inventory", b.Quantity))
			if b.LossApprovalStatus == enums.LossApprovalStatusPending {
				actions = append(actions, "loss approval still outstanding")
			}
		} else {
			if err := inventory.Release(ctx, tx, b.StockID, b.Quantity); err != nil {
				return err
			}
			status = enums.ApprovalStatusRejected
			eventType = enums.EventBookingRejected
			actions = append(actions, fmt.Sprintf("released %d units back to available", b.Quantity))
		}

		fields := map[string]any{
			"approval_status": status,
			"approved_at":     now,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BookingDecisionEvent{
				BookingID:      b.ID,
				BookingNumber:  b.BookingNumber,
				ApprovalStatus: status,
				DecidedByID:    caller.UserID,
				DecidedAt:      now,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ApproveLoss(ctx context.Context, caller auth.Caller, id uuid.UUID, approve bool) (*Result, error) {
	if !caller.Can(enums.CapabilityApproveLossBookings) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot approve loss bookings")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.LossApprovalStatus != enums.LossApprovalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no loss approval pending")
		}

		status := enums.LossApprovalStatusApproved
		if !approve {
			status = enums.LossApprovalStatusRejected
		}
		now := time.Now()
		fields := map[string]any{
			"loss_approval_status": status,
			"loss_decided_at":      now,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		var actions []string
		if !approve {
			actions = append(actions, "loss rejected; payments remain blocked")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLossBookingDecided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.LossDecisionEvent{
				BookingID:          b.ID,
				BookingNumber:      b.BookingNumber,
				LossApprovalStatus: status,
				SellingPrice:       b.SellingPrice,
				BuyingPrice:        b.BuyingPrice,
				DecidedByID:        caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmClient(ctx context.Context, caller auth.Caller, id uuid.UUID, accept bool) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.ClientConfirmationStatus != enums.ClientConfirmationPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "client confirmation already recorded")
		}

		status := enums.ClientConfirmationAccepted
		if !accept {
			status = enums.ClientConfirmationDenied
		}
		now := time.Now()
		fields := map[string]any{
			"client_confirmation_status": status,
			"client_confirmed_at":        now,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		var actions []string
		if !accept {
			actions = append(actions, "client denied the booking; desk follow-up required")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClientConfirmed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.ClientConfirmationEvent{
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				Status:        status,
				ConfirmedAt:   now,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, actions, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) MarkStockTransferred(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Result, error) {
	if !caller.Can(enums.CapabilityApproveBookings) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot record stock transfers")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock already transferred")
		}
		if !b.CommerciallyActive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not approved for transfer")
		}
		if !b.DpTransferReady {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not fully paid")
		}

		now := time.Now()
		fields := map[string]any{
			"stock_transferred":    true,
			"stock_transferred_at": now,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockTransferred,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.StockTransferredEvent{
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				TransferredAt: now,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, []string{"booking is now terminal"}, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UploadInsiderForm(ctx context.Context, caller auth.Caller, id uuid.UUID, formURL string) (*Result, error) {
	if formURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "form url required")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if !b.InsiderFormRequired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking does not require an insider form")
		}

		fields := map[string]any{"insider_form_url": formURL}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInsiderFormUploaded,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.InsiderFormUploadedEvent{
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				FormURL:       formURL,
				UploadedByID:  caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateRpMapping(ctx context.Context, caller auth.Caller, id uuid.UUID, input RpRemapInput) (*Result, error) {
	if !caller.Can(enums.CapabilityManageRpMapping) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot manage referral partner mappings")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock already transferred; rp mapping is frozen")
		}
		if b.IsBpBooking {
			return pkgerrors.New(pkgerrors.CodeConflict, "bp bookings cannot carry a referral partner")
		}

		client, err := s.directory.GetClient(ctx, b.ClientID)
		if err != nil {
			return err
		}
		warnings, err := s.resolver.ValidateRpRemap(ctx, client, input.ReferralPartnerID, input.RpSharePercent)
		if err != nil {
			return err
		}

		previous := b.ReferralPartnerID
		fields := map[string]any{
			"referral_partner_id":      input.ReferralPartnerID,
			"rp_revenue_share_percent": input.RpSharePercent,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRpMappingUpdated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.RpMappingUpdatedEvent{
				BookingID:         b.ID,
				BookingNumber:     b.BookingNumber,
				ReferralPartnerID: input.ReferralPartnerID,
				RpSharePercent:    input.RpSharePercent,
				PreviousPartnerID: previous,
				UpdatedByID:       caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, warnings, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ProposeBpOverride(ctx context.Context, caller auth.Caller, id uuid.UUID, percent decimal.Decimal) (*Result, error) {
	if !caller.Can(enums.CapabilityProposeRevenueOverride) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot propose revenue overrides")
	}
	if percent.Sign() < 0 || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "override percent must be between 0 and 100")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.IsVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is voided")
		}
		if !b.IsBpBooking {
			return pkgerrors.New(pkgerrors.CodeConflict, "booking has no business partner share to override")
		}
		if b.StockTransferred {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock already transferred; bp share is frozen")
		}
		if b.BpOverrideStatus == enums.BpOverrideStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "an override proposal is already pending")
		}

		fields := map[string]any{
			"bp_override_percent":    percent,
			"bp_override_status":     enums.BpOverrideStatusPending,
			"bp_override_reason":     nil,
			"bp_override_decided_at": nil,
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBpOverrideProposed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BpOverrideProposedEvent{
				BookingID:       b.ID,
				BookingNumber:   b.BookingNumber,
				OverridePercent: percent,
				ProposedByID:    caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DecideBpOverride(ctx context.Context, caller auth.Caller, id uuid.UUID, decision BpOverrideDecision) (*Result, error) {
	if !caller.Can(enums.CapabilityApproveRevenueOverride) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot decide revenue overrides")
	}
	if !decision.Approve && (decision.Reason == nil || *decision.Reason == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.findBooking(ctx, repo, id)
		if err != nil {
			return err
		}
		if b.BpOverrideStatus != enums.BpOverrideStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no override proposal pending")
		}

		status := enums.BpOverrideStatusApproved
		if !decision.Approve {
			status = enums.BpOverrideStatusRejected
		}
		now := time.Now()
		fields := map[string]any{
			"bp_override_status":     status,
			"bp_override_decided_at": now,
		}
		if decision.Reason != nil {
			fields["bp_override_reason"] = *decision.Reason
		}
		if err := s.applyVersioned(ctx, repo, b, fields); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBpOverrideDecided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(caller),
			Data: payloads.BpOverrideDecidedEvent{
				BookingID:       b.ID,
				BookingNumber:   b.BookingNumber,
				Status:          status,
				OverridePercent: b.BpOverridePercent,
				Reason:          decision.Reason,
				DecidedByID:     caller.UserID,
			},
		}); err != nil {
			return err
		}
		return s.finishResult(ctx, repo, id, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) findBooking(ctx context.Context, repo Repository, id uuid.UUID) (*models.Booking, error) {
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

// applyVersioned performs the optimistic write for a loaded booking. Zero
// rows means another writer advanced the version first; the whole transaction
// rolls back and the caller may retry.
func (s *service) applyVersioned(ctx context.Context, repo Repository, b *models.Booking, fields map[string]any) error {
	rows, err := repo.UpdateVersioned(ctx, b.ID, b.LockVersion, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrentModification, "booking was modified concurrently")
	}
	return nil
}

func (s *service) finishResult(ctx context.Context, repo Repository, id uuid.UUID, actions []string, out **Result) error {
	fresh, err := s.findBooking(ctx, repo, id)
	if err != nil {
		return err
	}
	*out = &Result{Booking: NewProjection(fresh), Actions: actions}
	return nil
}

func actorRef(caller auth.Caller) *outbox.ActorRef {
	if caller.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role.String()}
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// BookingCreatedEvent signals a new booking with its reservation outcome.
type BookingCreatedEvent struct {
	BookingID         uuid.UUID        `json:"booking_id"`
	BookingNumber     int64            `json:"booking_number"`
	ClientID          uuid.UUID        `json:"client_id"`
	StockID           uuid.UUID        `json:"stock_id"`
	Quantity          int64            `json:"quantity"`
	BookingType       string           `json:"booking_type"`
	IsLossBooking     bool             `json:"is_loss_booking"`
	IsBpBooking       bool             `json:"is_bp_booking"`
	ReferralPartnerID *uuid.UUID       `json:"referral_partner_id,omitempty"`
	RpSharePercent    *decimal.Decimal `json:"rp_share_percent,omitempty"`
	Oversubscribed    int64            `json:"oversubscribed,omitempty"`
}

// BookingDecisionEvent is emitted when the PE desk decides a booking.
type BookingDecisionEvent struct {
	BookingID      uuid.UUID            `json:"booking_id"`
	BookingNumber  int64                `json:"booking_number"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	DecidedByID    uuid.UUID            `json:"decided_by_id"`
	DecidedAt      time.Time            `json:"decided_at"`
}

// LossDecisionEvent is emitted when the second-level loss review resolves.
type LossDecisionEvent struct {
	BookingID          uuid.UUID                `json:"booking_id"`
	BookingNumber      int64                    `json:"booking_number"`
	LossApprovalStatus enums.LossApprovalStatus `json:"loss_approval_status"`
	SellingPrice       *decimal.Decimal         `json:"selling_price,omitempty"`
	BuyingPrice        decimal.Decimal          `json:"buying_price"`
	DecidedByID        uuid.UUID                `json:"decided_by_id"`
}

// ClientConfirmationEvent records the client's accept or deny.
type ClientConfirmationEvent struct {
	BookingID     uuid.UUID                      `json:"booking_id"`
	BookingNumber int64                          `json:"booking_number"`
	Status        enums.ClientConfirmationStatus `json:"status"`
	ConfirmedAt   time.Time                      `json:"confirmed_at"`
}

// BookingVoidedEvent is emitted when a booking is voided with its inventory
// returned to the pool.
type BookingVoidedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	BookingNumber    int64     `json:"booking_number"`
	Reason           string    `json:"reason"`
	ReleasedQuantity int64     `json:"released_quantity"`
	VoidedAt         time.Time `json:"voided_at"`
}

// BookingDeletedEvent is the audit record for a hard delete.
type BookingDeletedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	BookingNumber    int64     `json:"booking_number"`
	ReleasedQuantity int64     `json:"released_quantity"`
	DeletedByID      uuid.UUID `json:"deleted_by_id"`
}

// PaymentRecordedEvent is emitted per accepted tranche.
type PaymentRecordedEvent struct {
	BookingID       uuid.UUID           `json:"booking_id"`
	BookingNumber   int64               `json:"booking_number"`
	TrancheNumber   int                 `json:"tranche_number"`
	Amount          decimal.Decimal     `json:"amount"`
	TotalPaid       decimal.Decimal     `json:"total_paid"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	DpTransferReady bool                `json:"dp_transfer_ready"`
}

// PaymentDeletedEvent is the audit record for a tranche delete. It keeps the
// readiness flag as it stood before the delete so the flip is traceable.
type PaymentDeletedEvent struct {
	BookingID          uuid.UUID           `json:"booking_id"`
	BookingNumber      int64               `json:"booking_number"`
	TrancheNumber      int                 `json:"tranche_number"`
	Amount             decimal.Decimal     `json:"amount"`
	TotalPaid          decimal.Decimal     `json:"total_paid"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	WasDpTransferReady bool                `json:"was_dp_transfer_ready"`
	DpTransferReady    bool                `json:"dp_transfer_ready"`
	DeletedByID        uuid.UUID           `json:"deleted_by_id"`
}

// TransferReadyEvent signals that a booking is fully paid and cleared for the
// manual DP transfer.
type TransferReadyEvent struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	BookingNumber int64           `json:"booking_number"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// StockTransferredEvent is emitted when the out-of-band DP transfer is
// recorded, making the booking terminal.
type StockTransferredEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber int64     `json:"booking_number"`
	TransferredAt time.Time `json:"transferred_at"`
}

// RpMappingUpdatedEvent captures a privileged referral-partner remap.
type RpMappingUpdatedEvent struct {
	BookingID         uuid.UUID       `json:"booking_id"`
	BookingNumber     int64           `json:"booking_number"`
	ReferralPartnerID uuid.UUID       `json:"referral_partner_id"`
	RpSharePercent    decimal.Decimal `json:"rp_share_percent"`
	PreviousPartnerID *uuid.UUID      `json:"previous_partner_id,omitempty"`
	UpdatedByID       uuid.UUID       `json:"updated_by_id"`
}

// BpOverrideProposedEvent is emitted when an employee proposes a deviation
// from the default business-partner share.
type BpOverrideProposedEvent struct {
	BookingID       uuid.UUID       `json:"booking_id"`
	BookingNumber   int64           `json:"booking_number"`
	OverridePercent decimal.Decimal `json:"override_percent"`
	ProposedByID    uuid.UUID       `json:"proposed_by_id"`
}

// BpOverrideDecidedEvent resolves a pending BP override proposal.
type BpOverrideDecidedEvent struct {
	BookingID       uuid.UUID              `json:"booking_id"`
	BookingNumber   int64                  `json:"booking_number"`
	Status          enums.BpOverrideStatus `json:"status"`
	OverridePercent *decimal.Decimal       `json:"override_percent,omitempty"`
	Reason          *string                `json:"reason,omitempty"`
	DecidedByID     uuid.UUID              `json:"decided_by_id"`
}

// InsiderFormUploadedEvent records the compliance document for an own-stock
// booking.
type InsiderFormUploadedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber int64     `json:"booking_number"`
	FormURL       string    `json:"form_url"`
	UploadedByID  uuid.UUID `json:"uploaded_by_id"`
}

// BookingReconciledEvent lists the corrective actions a reconciliation pass
// applied to one booking.
type BookingReconciledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber int64     `json:"booking_number"`
	Actions       []string  `json:"actions"`
}

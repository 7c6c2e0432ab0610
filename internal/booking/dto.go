package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/internal/revshare"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
)

// CreateInput carries everything a new booking needs. BuyingPrice is only
// honored for callers holding the edit-buying-price capability; everyone else
// books at the stock's current landing price.
type CreateInput struct {
	ClientID            uuid.UUID         `json:"client_id" validate:"required"`
	StockID             uuid.UUID         `json:"stock_id" validate:"required"`
	Quantity            int64             `json:"quantity" validate:"required,gt=0"`
	BookingType         enums.BookingType `json:"booking_type" validate:"required"`
	BuyingPrice         *decimal.Decimal  `json:"buying_price,omitempty"`
	SellingPrice        *decimal.Decimal  `json:"selling_price,omitempty"`
	BookingDate         time.Time         `json:"booking_date"`
	ReferralPartnerID   *uuid.UUID        `json:"referral_partner_id,omitempty"`
	RpSharePercent      *decimal.Decimal  `json:"rp_share_percent,omitempty"`
	InsiderAcknowledged bool              `json:"insider_acknowledged"`
	Notes               *string           `json:"notes,omitempty"`
}

// EditInput updates commercial terms. All fields are optional; nil leaves the
// stored value untouched. Once a booking leaves pending only Notes survives
// the edit.
type EditInput struct {
	Quantity     *int64           `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	BuyingPrice  *decimal.Decimal `json:"buying_price,omitempty"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	BookingDate  *time.Time       `json:"booking_date,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

// RpRemapInput reassigns the referral partner on a live booking.
type RpRemapInput struct {
	ReferralPartnerID uuid.UUID       `json:"referral_partner_id" validate:"required"`
	RpSharePercent    decimal.Decimal `json:"rp_share_percent"`
}

// BpOverrideDecision resolves a pending BP override proposal.
type BpOverrideDecision struct {
	Approve bool    `json:"approve"`
	Reason  *string `json:"reason,omitempty"`
}

// TrancheView is the read shape of one recorded payment.
type TrancheView struct {
	ID            uuid.UUID       `json:"id"`
	TrancheNumber int             `json:"tranche_number"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	ProofURL      *string         `json:"proof_url,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	RecordedByID  uuid.UUID       `json:"recorded_by_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Projection is the full read shape of a booking, including the derived
// settlement fields the desk works from.
type Projection struct {
	ID            uuid.UUID         `json:"id"`
	BookingNumber int64             `json:"booking_number"`
	ClientID      uuid.UUID         `json:"client_id"`
	StockID       uuid.UUID         `json:"stock_id"`
	CreatedByID   uuid.UUID         `json:"created_by_id"`
	BookingType   enums.BookingType `json:"booking_type"`

	Quantity              int64            `json:"quantity"`
	BuyingPrice           decimal.Decimal  `json:"buying_price"`
	LandingPriceAtReserve decimal.Decimal  `json:"landing_price_at_reserve"`
	SellingPrice          *decimal.Decimal `json:"selling_price,omitempty"`
	BookingDate           time.Time        `json:"booking_date"`

	ApprovalStatus           enums.ApprovalStatus           `json:"approval_status"`
	LossApprovalStatus       enums.LossApprovalStatus       `json:"loss_approval_status"`
	ClientConfirmationStatus enums.ClientConfirmationStatus `json:"client_confirmation_status"`

	IsVoided         bool       `json:"is_voided"`
	VoidReason       *string    `json:"void_reason,omitempty"`
	VoidedAt         *time.Time `json:"voided_at,omitempty"`
	StockTransferred bool       `json:"stock_transferred"`
	DpTransferReady  bool       `json:"dp_transfer_ready"`

	ReferralPartnerID     *uuid.UUID       `json:"referral_partner_id,omitempty"`
	RpRevenueSharePercent *decimal.Decimal `json:"rp_revenue_share_percent,omitempty"`

	IsBpBooking       bool                   `json:"is_bp_booking"`
	BpSharePercent    *decimal.Decimal       `json:"bp_share_percent,omitempty"`
	BpOverridePercent *decimal.Decimal       `json:"bp_override_percent,omitempty"`
	BpOverrideStatus  enums.BpOverrideStatus `json:"bp_override_status"`

	InsiderAcknowledged bool    `json:"insider_acknowledged"`
	InsiderFormRequired bool    `json:"insider_form_required"`
	InsiderFormURL      *string `json:"insider_form_url,omitempty"`

	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalPaid     decimal.Decimal     `json:"total_paid"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Outstanding   decimal.Decimal     `json:"outstanding"`

	IsLossBooking        bool            `json:"is_loss_booking"`
	EmployeeSharePercent decimal.Decimal `json:"employee_share_percent"`

	Notes *string `json:"notes,omitempty"`

	Payments []TrancheView `json:"payments"`

	LockVersion int64     `json:"lock_version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Result pairs the post-operation projection with the human-readable side
// effects the operation produced (warnings, released inventory, flags).
type Result struct {
	Booking Projection `json:"booking"`
	Actions []string   `json:"actions,omitempty"`
}

// NewProjection maps a stored booking to its read shape.
func NewProjection(b *models.Booking) Projection {
	total := b.TotalAmount()
	p := Projection{
		ID:            b.ID,
		BookingNumber: b.BookingNumber,
		ClientID:      b.ClientID,
		StockID:       b.StockID,
		CreatedByID:   b.CreatedByID,
		BookingType:   b.BookingType,

		Quantity:              b.Quantity,
		BuyingPrice:           b.BuyingPrice,
		LandingPriceAtReserve: b.LandingPriceAtReserve,
		SellingPrice:          b.SellingPrice,
		BookingDate:           b.BookingDate,

		ApprovalStatus:           b.ApprovalStatus,
		LossApprovalStatus:       b.LossApprovalStatus,
		ClientConfirmationStatus: b.ClientConfirmationStatus,

		IsVoided:         b.IsVoided,
		VoidReason:       b.VoidReason,
		VoidedAt:         b.VoidedAt,
		StockTransferred: b.StockTransferred,
		DpTransferReady:  b.DpTransferReady,

		ReferralPartnerID:     b.ReferralPartnerID,
		RpRevenueSharePercent: b.RpRevenueSharePercent,

		IsBpBooking:       b.IsBpBooking,
		BpSharePercent:    b.BpSharePercent,
		BpOverridePercent: b.BpOverridePercent,
		BpOverrideStatus:  b.BpOverrideStatus,

		InsiderAcknowledged: b.InsiderAcknowledged,
		InsiderFormRequired: b.InsiderFormRequired,
		InsiderFormURL:      b.InsiderFormURL,

		PaymentStatus: b.PaymentStatus,
		TotalPaid:     b.TotalPaid,
		TotalAmount:   total,
		Outstanding:   total.Sub(b.TotalPaid),

		IsLossBooking:        b.IsLossBooking(),
		EmployeeSharePercent: revshare.EmployeeSharePercent(b),

		Notes: b.Notes,

		LockVersion: b.LockVersion,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	p.Payments = make([]TrancheView, 0, len(b.Payments))
	for _, t := range b.Payments {
		p.Payments = append(p.Payments, TrancheView{
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
	return p
}

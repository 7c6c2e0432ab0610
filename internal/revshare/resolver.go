package revshare

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/internal/directory"
	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

// Terms is the revenue split attached to a booking at creation. At most one
// of the RP share and the BP share is ever non-zero.
type Terms struct {
	ReferralPartnerID *uuid.UUID
	RpSharePercent    *decimal.Decimal
	IsBpBooking       bool
	BpSharePercent    *decimal.Decimal
	Warnings          []string
}

// CreationInput carries the revenue-share fields supplied at booking creation.
type CreationInput struct {
	ReferralPartnerID *uuid.UUID
	RpSharePercent    *decimal.Decimal
}

// Resolver validates and computes revenue splits. The RP ceiling is a soft
// gate: shares above it are recorded verbatim and flagged, because the desk
// runs a manual approval-by-email escalation outside this system.
type Resolver struct {
	directory directory.Service
	ceiling   decimal.Decimal
	bpDefault decimal.Decimal
}

// NewResolver wires a resolver with the directory lookups and policy values.
func NewResolver(dir directory.Service, ceilingPercent, bpDefaultPercent decimal.Decimal) (*Resolver, error) {
	if dir == nil {
		return nil, fmt.Errorf("directory service required")
	}
	return &Resolver{
		directory: dir,
		ceiling:   ceilingPercent,
		bpDefault: bpDefaultPercent,
	}, nil
}

// ResolveCreation computes the revenue split for a new booking. BP identity
// wins: a business-partner creator makes the booking an implicit BP booking
// and excludes any RP attachment. An RP that matches the client's own
// registered-RP identity is rejected outright.
func (r *Resolver) ResolveCreation(ctx context.Context, caller auth.Caller, client *models.Client, input CreationInput) (Terms, error) {
	if client == nil {
		return Terms{}, pkgerrors.New(pkgerrors.CodeInternal, "client required")
	}

	if caller.IsBusinessPartner() {
		if input.ReferralPartnerID != nil {
			return Terms{}, pkgerrors.New(pkgerrors.CodeConflict, "bp bookings cannot carry a referral partner")
		}
		share := r.bpDefault
		return Terms{IsBpBooking: true, BpSharePercent: &share}, nil
	}

	if input.ReferralPartnerID == nil {
		if input.RpSharePercent != nil && input.RpSharePercent.Sign() != 0 {
			return Terms{}, pkgerrors.New(pkgerrors.CodeValidation, "rp share supplied without a referral partner")
		}
		return Terms{}, nil
	}

	partner, err := r.directory.GetActiveReferralPartner(ctx, *input.ReferralPartnerID)
	if err != nil {
		return Terms{}, err
	}

	if err := r.checkIdentityClash(client, partner.ID); err != nil {
		return Terms{}, err
	}

	share := partner.DefaultSharePercent
	if input.RpSharePercent != nil {
		share = *input.RpSharePercent
	}
	if share.Sign() < 0 {
		return Terms{}, pkgerrors.New(pkgerrors.CodeValidation, "rp share cannot be negative")
	}

	terms := Terms{
		ReferralPartnerID: &partner.ID,
		RpSharePercent:    &share,
	}
	if share.GreaterThan(r.ceiling) {
		terms.Warnings = append(terms.Warnings, fmt.Sprintf(
			"rp share %s%% exceeds the %s%% ceiling; manual approval required",
			share.StringFixed(2), r.ceiling.StringFixed(2),
		))
	}
	return terms, nil
}

// ValidateRpRemap checks the identity rules for a privileged RP remapping.
// Lifecycle gates (stock transferred, BP booking) stay with the state machine.
func (r *Resolver) ValidateRpRemap(ctx context.Context, client *models.Client, newPartnerID uuid.UUID, newShare decimal.Decimal) ([]string, error) {
	partner, err := r.directory.GetActiveReferralPartner(ctx, newPartnerID)
	if err != nil {
		return nil, err
	}
	if err := r.checkIdentityClash(client, partner.ID); err != nil {
		return nil, err
	}
	if newShare.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rp share cannot be negative")
	}
	var warnings []string
	if newShare.GreaterThan(r.ceiling) {
		warnings = append(warnings, fmt.Sprintf(
			"rp share %s%% exceeds the %s%% ceiling; manual approval required",
			newShare.StringFixed(2), r.ceiling.StringFixed(2),
		))
	}
	return warnings, nil
}

// checkIdentityClash enforces RP/client mutual exclusion by identity: a
// client who is itself a registered RP never earns RP commission on its own
// bookings.
func (r *Resolver) checkIdentityClash(client *models.Client, partnerID uuid.UUID) error {
	if client.ReferralPartnerID != nil && *client.ReferralPartnerID == partnerID {
		return pkgerrors.New(pkgerrors.CodeConflict, "client is the referral partner; rp share not allowed")
	}
	return nil
}

// EmployeeSharePercent derives the employee's cut from the attached splits.
func EmployeeSharePercent(b *models.Booking) decimal.Decimal {
	share := decimal.NewFromInt(100)
	if b.RpRevenueSharePercent != nil {
		share = share.Sub(*b.RpRevenueSharePercent)
	}
	if b.IsBpBooking {
		if b.BpOverrideStatus == enums.BpOverrideStatusApproved && b.BpOverridePercent != nil {
			share = share.Sub(*b.BpOverridePercent)
		} else if b.BpSharePercent != nil {
			share = share.Sub(*b.BpSharePercent)
		}
	}
	return share
}

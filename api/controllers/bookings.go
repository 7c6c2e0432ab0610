package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/api/middleware"
	"github.com/kabidey/privity-sub003/api/responses"
	"github.com/kabidey/privity-sub003/api/validators"
	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/logger"
	"github.com/kabidey/privity-sub003/pkg/pagination"
)

// BookingCreate opens a new booking and reserves its inventory.
func BookingCreate(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input booking.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Create(r.Context(), middleware.CallerFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// BookingList pages over bookings with optional filters.
func BookingList(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		filters, err := buildBookingFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// BookingDetail returns the full projection for one booking.
func BookingDetail(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		projection, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, projection)
	}
}

// BookingEdit updates commercial terms while pending, or notes afterwards.
func BookingEdit(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input booking.EditInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Edit(r.Context(), middleware.CallerFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BookingDelete removes a booking that never reached transfer.
func BookingDelete(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions, err := svc.Delete(r.Context(), middleware.CallerFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "actions": actions})
	}
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BookingVoid cancels a booking while keeping the audit trail.
func BookingVoid(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req voidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Void(r.Context(), middleware.CallerFromContext(r.Context()), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

// BookingApprove records the PE-level decision, committing or releasing the
// reserved quantity.
func BookingApprove(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req decisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Approve(r.Context(), middleware.CallerFromContext(r.Context()), id, req.Approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BookingApproveLoss records the second-level decision for below-cost bookings.
func BookingApproveLoss(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req decisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ApproveLoss(r.Context(), middleware.CallerFromContext(r.Context()), id, req.Approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type confirmationRequest struct {
	Accept bool `json:"accept"`
}

// BookingConfirmClient records the client's accept or deny.
func BookingConfirmClient(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ConfirmClient(r.Context(), middleware.CallerFromContext(r.Context()), id, req.Accept)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BookingMarkTransferred records the out-of-band DP transfer.
func BookingMarkTransferred(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.MarkStockTransferred(r.Context(), middleware.CallerFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type insiderFormRequest struct {
	FormURL string `json:"form_url" validate:"required,url"`
}

// BookingUploadInsiderForm attaches the compliance document to an own-stock
// booking.
func BookingUploadInsiderForm(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req insiderFormRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UploadInsiderForm(r.Context(), middleware.CallerFromContext(r.Context()), id, req.FormURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BookingUpdateRpMapping reassigns the referral partner on a live booking.
func BookingUpdateRpMapping(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input booking.RpRemapInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateRpMapping(r.Context(), middleware.CallerFromContext(r.Context()), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type bpOverrideProposal struct {
	OverridePercent decimal.Decimal `json:"override_percent" validate:"required"`
}

// BookingProposeBpOverride proposes a deviation from the default BP share.
func BookingProposeBpOverride(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bpOverrideProposal
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ProposeBpOverride(r.Context(), middleware.CallerFromContext(r.Context()), id, req.OverridePercent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BookingDecideBpOverride approves or rejects a pending BP override proposal.
func BookingDecideBpOverride(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req booking.BpOverrideDecision
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DecideBpOverride(r.Context(), middleware.CallerFromContext(r.Context()), id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseBookingID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "bookingId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking id")
	}
	return id, nil
}

func buildBookingFilters(r *http.Request) (booking.ListFilters, error) {
	var filters booking.ListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("approval_status")); raw != "" {
		status, err := enums.ParseApprovalStatus(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval_status filter")
		}
		filters.ApprovalStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("client_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid client_id filter")
		}
		filters.ClientID = &id
	}
	if raw := strings.TrimSpace(query.Get("stock_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock_id filter")
		}
		filters.StockID = &id
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid from filter; use RFC3339")
		}
		filters.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid to filter; use RFC3339")
		}
		filters.To = &ts
	}
	if raw := strings.TrimSpace(query.Get("include_voided")); raw != "" {
		filters.IncludeVoided = raw == "true" || raw == "1"
	}
	return filters, nil
}

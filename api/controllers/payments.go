package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kabidey/privity-sub003/api/middleware"
	"github.com/kabidey/privity-sub003/api/responses"
	"github.com/kabidey/privity-sub003/api/validators"
	"github.com/kabidey/privity-sub003/internal/payments"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

// PaymentAdd records one tranche against an approved booking.
func PaymentAdd(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input payments.AddInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Add(r.Context(), middleware.CallerFromContext(r.Context()), bookingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentList returns the tranche ledger for one booking.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tranches, err := svc.ListForBooking(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payments": tranches})
	}
}

// PaymentDelete removes a tranche and recomputes the booking's ledger state.
func PaymentDelete(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trancheNumber, err := strconv.Atoi(chi.URLParam(r, "trancheNumber"))
		if err != nil || trancheNumber <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid tranche number"))
			return
		}
		result, err := svc.Delete(r.Context(), middleware.CallerFromContext(r.Context()), bookingID, trancheNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

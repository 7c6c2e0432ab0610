package controllers

import (
	"net/http"

	"github.com/kabidey/privity-sub003/api/responses"
	"github.com/kabidey/privity-sub003/internal/reconcile"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

// BookingRefreshStatus re-derives one booking's payment and flag state from
// its tranche ledger. Safe to call repeatedly.
func BookingRefreshStatus(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actions, err := svc.RefreshStatus(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"reconciled": len(actions) > 0,
			"actions":    actions,
		})
	}
}

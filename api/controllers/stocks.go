package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/api/middleware"
	"github.com/kabidey/privity-sub003/api/responses"
	"github.com/kabidey/privity-sub003/api/validators"
	"github.com/kabidey/privity-sub003/internal/inventory"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

// StockList returns the stock master with its availability ledger.
func StockList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stocks, err := svc.ListStocks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stocks": stocks})
	}
}

// StockDetail returns one stock.
func StockDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStockID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.GetStock(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

// StockCreate onboards a new stock.
func StockCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input inventory.CreateStockInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.CreateStock(r.Context(), middleware.CallerFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stock)
	}
}

type landingPriceRequest struct {
	LandingPrice decimal.Decimal `json:"landing_price" validate:"required"`
}

// StockUpdateLandingPrice updates the landing price on a stock.
func StockUpdateLandingPrice(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseStockID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req landingPriceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.UpdateLandingPrice(r.Context(), middleware.CallerFromContext(r.Context()), id, req.LandingPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

func parseStockID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "stockId"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock id")
	}
	return id, nil
}

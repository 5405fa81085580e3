package controllers

import (
	"net/http"
	"strings"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/internal/users"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

const (
	historyDefaultLimit = 25
	historyMaxLimit     = 100
)

// DriverPointsBalance returns the caller's current point balance.
func DriverPointsBalance(ledgerService ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := ledgerService.Balance(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

// DriverPointsHistory pages through the caller's ledger, newest first.
func DriverPointsHistory(ledgerService ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", historyDefaultLimit, 1, historyMaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := ledgerService.History(r.Context(), ledger.HistoryParams{
			DriverUserID: driverID,
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SponsorDriverPoints exposes one driver's balance and recent history to the
// sponsors of that driver's organization.
func SponsorDriverPoints(ledgerService ledger.Service, userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driverID, err := parseUUIDParam(r, "driverID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := userService.Get(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if driver.Role != enums.UserRoleDriver || driver.OrgID == nil || *driver.OrgID != orgID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", historyDefaultLimit, 1, historyMaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := ledgerService.Balance(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := ledgerService.History(r.Context(), ledger.HistoryParams{
			DriverUserID: driverID,
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"driver":  driver,
			"balance": balance,
			"history": history,
		})
	}
}

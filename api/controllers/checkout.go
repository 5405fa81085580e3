package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/checkout"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type checkoutBody struct {
	CartID uuid.UUID `json:"cart_id" validate:"required"`
}

// Checkout converts the driver's active cart into a placed order, spending
// points in the same transaction.
func Checkout(checkoutService checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := checkoutService.Execute(r.Context(), checkout.Input{
			DriverUserID: driverID,
			OrgID:        orgID,
			CartID:       body.CartID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

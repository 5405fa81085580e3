package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/cart"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type cartView struct {
	Cart        *models.CartRecord `json:"cart"`
	TotalPoints int                `json:"total_points"`
}

func newCartView(record *models.CartRecord) cartView {
	return cartView{Cart: record, TotalPoints: cart.Total(record.Items)}
}

// CartGet returns the driver's active cart.
func CartGet(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := cartService.FetchActive(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record))
	}
}

type addCartItemBody struct {
	CartID        *uuid.UUID `json:"cart_id,omitempty"`
	CatalogItemID uuid.UUID  `json:"catalog_item_id" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1,max=99"`
}

// CartAddItem puts a catalog item into the driver's active cart, creating the
// cart when none exists.
func CartAddItem(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body addCartItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := cartService.AddItem(r.Context(), cart.AddItemInput{
			DriverUserID:  driverID,
			OrgID:         orgID,
			CartID:        body.CartID,
			CatalogItemID: body.CatalogItemID,
			Quantity:      body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record))
	}
}

// CartRemoveItem drops one line from the driver's active cart.
func CartRemoveItem(cartService cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := cartService.RemoveItem(r.Context(), driverID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record))
	}
}

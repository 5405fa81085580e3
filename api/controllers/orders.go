package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/orders"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

const (
	ordersDefaultLimit = 25
	ordersMaxLimit     = 100
)

func orderPageParams(r *http.Request) (orders.PageParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", ordersDefaultLimit, 1, ordersMaxLimit)
	if err != nil {
		return orders.PageParams{}, err
	}
	page := orders.PageParams{Limit: limit}

	raw := strings.TrimSpace(r.URL.Query().Get("cursor"))
	if raw != "" {
		cursor, err := pagination.ParseCursor(raw)
		if err != nil {
			return orders.PageParams{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
		}
		page.Cursor = cursor
	}
	return page, nil
}

type orderListView struct {
	Orders []models.Order `json:"orders"`
	Cursor string         `json:"cursor,omitempty"`
}

func newOrderListView(result *orders.ListResult) orderListView {
	view := orderListView{Orders: result.Orders}
	if view.Orders == nil {
		view.Orders = []models.Order{}
	}
	if result.Next != nil {
		view.Cursor = pagination.EncodeCursor(*result.Next)
	}
	return view
}

// DriverOrdersList pages through the caller's orders, newest first.
func DriverOrdersList(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := orderPageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := orderService.ListForDriver(r.Context(), driverID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListView(result))
	}
}

// DriverOrderGet returns one of the caller's orders with its line items.
func DriverOrderGet(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := orderService.GetForDriver(r.Context(), driverID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// SponsorOrdersList pages through the organization's orders.
func SponsorOrdersList(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := orderPageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := orderService.ListForOrg(r.Context(), orgID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListView(result))
	}
}

// AdminOrdersList pages through all orders across organizations.
func AdminOrdersList(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := orderPageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := orderService.ListAll(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListView(result))
	}
}

type updateOrderStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// SponsorUpdateOrderStatus fulfills or cancels a placed order in the caller's
// organization. Canceling refunds the points spent.
func SponsorUpdateOrderStatus(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return updateOrderStatus(orderService, logg, true)
}

// AdminUpdateOrderStatus is the unscoped variant for platform admins.
func AdminUpdateOrderStatus(orderService orders.Service, logg *logger.Logger) http.HandlerFunc {
	return updateOrderStatus(orderService, logg, false)
}

func updateOrderStatus(orderService orders.Service, logg *logger.Logger, orgScoped bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var scope *uuid.UUID
		if orgScoped {
			orgID, err := actorOrgID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			scope = &orgID
		}

		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
			return
		}

		order, err := orderService.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID:     orderID,
			ActorUserID: actor,
			OrgID:       scope,
			Status:      status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

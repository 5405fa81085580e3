package controllers

import (
	"net/http"
	"strings"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/catalog"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// SponsorCatalogSearch queries the marketplace and prices hits in org points.
func SponsorCatalogSearch(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q is required"))
			return
		}

		candidates, err := catalogService.SearchMarketplace(r.Context(), orgID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, candidates)
	}
}

type addCatalogItemBody struct {
	EbayItemID string `json:"ebay_item_id" validate:"required,max=64"`
}

// SponsorCatalogAdd mirrors one marketplace listing into the org catalog.
func SponsorCatalogAdd(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCatalogItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := catalogService.AddItem(r.Context(), orgID, body.EbayItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CatalogList returns the caller organization's catalog. Drivers and sponsors
// share this view.
func CatalogList(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := catalogService.List(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CatalogGet returns a single catalog item in the caller's organization.
func CatalogGet(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := catalogService.Get(r.Context(), orgID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// SponsorCatalogRemove retires an item from the catalog. Existing order
// history keeps its snapshots.
func SponsorCatalogRemove(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := catalogService.Remove(r.Context(), orgID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// SponsorCatalogRefresh re-fetches the listing from the marketplace and
// updates the mirrored snapshot and availability.
func SponsorCatalogRefresh(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := catalogService.RefreshItem(r.Context(), orgID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// CatalogImageProxy streams a marketplace image through the backend so the
// browser never talks to the CDN directly. Failures degrade to a placeholder.
func CatalogImageProxy(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if rawURL == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter url is required"))
			return
		}

		img := catalogService.ItemImage(r.Context(), rawURL)
		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img.Data)
	}
}

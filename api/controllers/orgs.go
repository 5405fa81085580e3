package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/internal/organizations"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type createOrgBody struct {
	Name              string          `json:"name" validate:"required,min=2,max=128"`
	PointValue        decimal.Decimal `json:"point_value" validate:"required"`
	PointUpperLimit   *int            `json:"point_upper_limit,omitempty"`
	PointLowerLimit   *int            `json:"point_lower_limit,omitempty"`
	MonthlyPointLimit *int            `json:"monthly_point_limit,omitempty"`
}

// AdminCreateOrg registers a new organization.
func AdminCreateOrg(orgService organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrgBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := orgService.Create(r.Context(), organizations.CreateInput{
			Name:              body.Name,
			PointValue:        body.PointValue,
			PointUpperLimit:   body.PointUpperLimit,
			PointLowerLimit:   body.PointLowerLimit,
			MonthlyPointLimit: body.MonthlyPointLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, org)
	}
}

// AdminListOrgs lists every organization.
func AdminListOrgs(orgService organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgs, err := orgService.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orgs)
	}
}

// AdminGetOrg returns one organization by id.
func AdminGetOrg(orgService organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := parseUUIDParam(r, "orgID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := orgService.Get(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

type updateOrgSettingsBody struct {
	PointValue        *decimal.Decimal `json:"point_value,omitempty"`
	PointUpperLimit   *int             `json:"point_upper_limit,omitempty"`
	PointLowerLimit   *int             `json:"point_lower_limit,omitempty"`
	MonthlyPointLimit *int             `json:"monthly_point_limit,omitempty"`
	ClearUpperLimit   bool             `json:"clear_upper_limit,omitempty"`
	ClearLowerLimit   bool             `json:"clear_lower_limit,omitempty"`
	ClearMonthlyLimit bool             `json:"clear_monthly_limit,omitempty"`
}

func (b updateOrgSettingsBody) toInput() organizations.UpdateSettingsInput {
	return organizations.UpdateSettingsInput{
		PointValue:        b.PointValue,
		PointUpperLimit:   b.PointUpperLimit,
		PointLowerLimit:   b.PointLowerLimit,
		MonthlyPointLimit: b.MonthlyPointLimit,
		ClearUpperLimit:   b.ClearUpperLimit,
		ClearLowerLimit:   b.ClearLowerLimit,
		ClearMonthlyLimit: b.ClearMonthlyLimit,
	}
}

// SponsorGetOrg returns the caller's organization with its point settings and
// the calendar-month awarded and deducted totals.
func SponsorGetOrg(orgService organizations.Service, ledgerService ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := orgService.Get(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now()
		awarded, err := ledgerService.AwardedThisMonth(r.Context(), orgID, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deducted, err := ledgerService.DeductedThisMonth(r.Context(), orgID, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"org":                 org,
			"awarded_this_month":  awarded,
			"deducted_this_month": deducted,
		})
	}
}

// SponsorUpdateOrgSettings changes the caller organization's point value and
// limits. A point value change reprices the whole catalog.
func SponsorUpdateOrgSettings(orgService organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrgSettingsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := orgService.UpdateSettings(r.Context(), orgID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

// AdminUpdateOrgSettings is the admin variant able to target any organization.
func AdminUpdateOrgSettings(orgService organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := parseUUIDParam(r, "orgID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrgSettingsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := orgService.UpdateSettings(r.Context(), orgID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

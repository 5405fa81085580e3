package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/awards"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type awardPointsBody struct {
	DriverUserIDs []uuid.UUID `json:"driver_user_ids" validate:"required,min=1,max=100"`
	Amount        int         `json:"amount" validate:"required"`
	Reason        string      `json:"reason" validate:"required,max=500"`
}

// SponsorAwardPoints applies the same award or deduction to each listed
// driver. Drivers are judged independently; the response reports a verdict
// per driver instead of failing the whole batch.
func SponsorAwardPoints(awardService awards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body awardPointsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := awardService.ApplyBatch(r.Context(), awards.BatchInput{
			OrgID:         orgID,
			ActorUserID:   actor,
			DriverUserIDs: body.DriverUserIDs,
			Amount:        body.Amount,
			Source:        enums.TransactionSourceManual,
			Reason:        body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type createRecurringBody struct {
	DriverUserID uuid.UUID  `json:"driver_user_id" validate:"required"`
	Amount       int        `json:"amount" validate:"required,min=1"`
	Reason       string     `json:"reason" validate:"required,max=500"`
	IntervalDays int        `json:"interval_days" validate:"required,min=1,max=365"`
	FirstRunAt   *time.Time `json:"first_run_at,omitempty"`
}

// SponsorCreateRecurringAward schedules a repeating grant for one driver.
func SponsorCreateRecurringAward(recurring awards.RecurringService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRecurringBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		award, err := recurring.Create(r.Context(), awards.CreateRecurringInput{
			OrgID:        orgID,
			DriverUserID: body.DriverUserID,
			ActorUserID:  actor,
			Amount:       body.Amount,
			Reason:       body.Reason,
			IntervalDays: body.IntervalDays,
			FirstRunAt:   body.FirstRunAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, award)
	}
}

// SponsorListRecurringAwards lists the org's recurring award schedules.
func SponsorListRecurringAwards(recurring awards.RecurringService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := recurring.ListByOrg(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, results)
	}
}

type setRecurringActiveBody struct {
	Active *bool `json:"active" validate:"required"`
}

// SponsorSetRecurringAwardActive pauses or resumes a schedule.
func SponsorSetRecurringAwardActive(recurring awards.RecurringService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		awardID, err := parseUUIDParam(r, "awardID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setRecurringActiveBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		award, err := recurring.SetActive(r.Context(), orgID, awardID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, award)
	}
}

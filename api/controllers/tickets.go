package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/middleware"
	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/tickets"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type openTicketBody struct {
	Subject string   `json:"subject" validate:"required,max=200"`
	Body    string   `json:"body" validate:"required,max=5000"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=32"`
}

// TicketOpen files a support request on behalf of the caller.
func TicketOpen(ticketService tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body openTicketBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var orgID *uuid.UUID
		if raw := middleware.OrgIDFromContext(r.Context()); raw != "" {
			if parsed, parseErr := uuid.Parse(raw); parseErr == nil {
				orgID = &parsed
			}
		}

		ticket, err := ticketService.Open(r.Context(), tickets.OpenInput{
			OpenedByUserID: userID,
			OrgID:          orgID,
			Subject:        validators.SanitizeString(body.Subject, 200),
			Body:           body.Body,
			Tags:           body.Tags,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

func statusFilter(r *http.Request) (*enums.TicketStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseTicketStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ticket status")
	}
	return &status, nil
}

// TicketsList scopes the listing by the caller's role: drivers see their own
// tickets, sponsors their organization's, admins everything.
func TicketsList(ticketService tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := statusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch middleware.RoleFromContext(r.Context()) {
		case string(enums.UserRoleAdmin):
			results, err := ticketService.ListAll(r.Context(), status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, results)
		case string(enums.UserRoleSponsor):
			orgID, err := actorOrgID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			results, err := ticketService.ListForOrg(r.Context(), orgID, status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, results)
		default:
			userID, err := actorID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			results, err := ticketService.ListForUser(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, results)
		}
	}
}

type updateTicketStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateTicketStatus moves a ticket through its workflow. Closed tickets
// stay closed.
func AdminUpdateTicketStatus(ticketService tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := parseUUIDParam(r, "ticketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateTicketStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseTicketStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown ticket status"))
			return
		}

		ticket, err := ticketService.UpdateStatus(r.Context(), ticketID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/responses"
	"github.com/haulpoints/haulpoints-backend/api/validators"
	"github.com/haulpoints/haulpoints-backend/internal/users"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/types"
)

type createUserBody struct {
	Email     string     `json:"email" validate:"required,email"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	Role      string     `json:"role" validate:"required"`
	OrgID     *uuid.UUID `json:"org_id,omitempty"`
}

// AdminCreateUser provisions an account with a generated temporary password.
// The password is returned once and never stored in the clear.
func AdminCreateUser(userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createUserBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseUserRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown role"))
			return
		}

		user, tempPassword, err := userService.Create(r.Context(), users.CreateInput{
			Email:     body.Email,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Role:      role,
			OrgID:     body.OrgID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"user":               user,
			"temporary_password": tempPassword,
		})
	}
}

// AdminListUsers lists accounts, optionally filtered by org and role.
func AdminListUsers(userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := users.ListUsersParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("org_id")); raw != "" {
			orgID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid org_id"))
				return
			}
			params.OrgID = &orgID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			role, err := enums.ParseUserRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown role"))
				return
			}
			params.Role = &role
		}

		results, err := userService.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, results)
	}
}

// AdminGetUser returns one account by id.
func AdminGetUser(userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := userService.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

type updateUserOrgBody struct {
	OrgID types.NullableUUID `json:"org_id"`
}

// AdminUpdateUserOrg reassigns a driver or sponsor to another organization.
// An explicit null clears the assignment.
func AdminUpdateUserOrg(userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateUserOrgBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := userService.UpdateOrg(r.Context(), userID, body.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

// AdminDeactivateUser disables an account's access without deleting its
// ledger history.
func AdminDeactivateUser(userService users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := userService.Deactivate(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

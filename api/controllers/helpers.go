package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/api/middleware"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// actorID returns the authenticated user's id from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return id, nil
}

// actorOrgID returns the authenticated user's organization id. Admin tokens
// carry no organization, so callers on admin routes must not rely on it.
func actorOrgID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.OrgIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization membership required")
	}
	return id, nil
}

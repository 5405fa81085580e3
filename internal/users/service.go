package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/config"
	"github.com/haulpoints/haulpoints-backend/pkg/db"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/security"
	"github.com/haulpoints/haulpoints-backend/pkg/types"
)

// Store abstracts the persistence operations the service needs, so tests can
// run without a database.
type Store interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, orgID *uuid.UUID, role *enums.UserRole) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateOrg(ctx context.Context, id uuid.UUID, orgID types.NullableUUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service manages the admin-facing user lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*UserDTO, string, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, params ListUsersParams) ([]UserDTO, error)
	UpdateOrg(ctx context.Context, id uuid.UUID, orgID types.NullableUUID) (*UserDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// CreateInput describes an admin-created account. The service generates a
// temporary password and returns it alongside the user.
type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      enums.UserRole
	OrgID     *uuid.UUID
}

// ListUsersParams filters the admin user listing.
type ListUsersParams struct {
	OrgID *uuid.UUID
	Role  *enums.UserRole
}

const tempPasswordLength = 16

type service struct {
	store       Store
	passwordCfg config.PasswordConfig
}

// NewService wires the users service with its dependencies.
func NewService(store Store, passwordCfg config.PasswordConfig) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users store is required")
	}
	return &service{store: store, passwordCfg: passwordCfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*UserDTO, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if !input.Role.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if input.Role != enums.UserRoleAdmin && input.OrgID == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "org id is required for drivers and sponsors")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.store.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		OrgID:        input.OrgID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return FromModel(user), tempPassword, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, params ListUsersParams) ([]UserDTO, error) {
	results, err := s.store.List(ctx, params.OrgID, params.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(results))
	for i := range results {
		dtos = append(dtos, *FromModel(&results[i]))
	}
	return dtos, nil
}

func (s *service) UpdateOrg(ctx context.Context, id uuid.UUID, orgID types.NullableUUID) (*UserDTO, error) {
	if !orgID.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org_id must be present, null clears the assignment")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins do not belong to an organization")
	}
	if err := s.store.UpdateOrg(ctx, id, orgID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user org")
	}
	user.OrgID = orgID.Value
	return FromModel(user), nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

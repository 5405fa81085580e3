package tickets

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

// Service exposes the support ticket workflow.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Ticket, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	ListForOrg(ctx context.Context, orgID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error)
	ListAll(ctx context.Context, status *enums.TicketStatus) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID uuid.UUID, status enums.TicketStatus) (*models.Ticket, error)
}

// OpenInput describes a new support request.
type OpenInput struct {
	OpenedByUserID uuid.UUID
	OrgID          *uuid.UUID
	Subject        string
	Body           string
	Tags           []string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the tickets service with its dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tickets repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Ticket, error) {
	if input.OpenedByUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opener id is required")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and body are required")
	}

	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}

	ticket := &models.Ticket{
		OpenedByUserID: input.OpenedByUserID,
		OrgID:          input.OrgID,
		Subject:        subject,
		Body:           body,
		Status:         enums.TicketStatusOpen,
		Tags:           pq.StringArray(tags),
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ticket")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"ticket_id": ticket.ID})
	s.logg.Info(ctx, "ticket opened")
	return ticket, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.list(ctx, ListFilter{OpenedByUserID: &userID})
}

func (s *service) ListForOrg(ctx context.Context, orgID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	return s.list(ctx, ListFilter{OrgID: &orgID, Status: status})
}

func (s *service) ListAll(ctx context.Context, status *enums.TicketStatus) ([]models.Ticket, error) {
	return s.list(ctx, ListFilter{Status: status})
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket status")
	}
	results, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tickets")
	}
	return results, nil
}

func (s *service) UpdateStatus(ctx context.Context, ticketID uuid.UUID, status enums.TicketStatus) (*models.Ticket, error) {
	if ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket status")
	}

	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ticket")
	}
	// Closed tickets stay closed; a new request gets a new ticket.
	if ticket.Status == enums.TicketStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ticket is closed")
	}

	ticket.Status = status
	if err := s.repo.Save(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save ticket")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"ticket_id": ticket.ID,
		"status":    ticket.Status,
	})
	s.logg.Info(ctx, "ticket status updated")
	return ticket, nil
}

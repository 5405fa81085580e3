package tickets

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type memTicketsRepo struct {
	tickets map[uuid.UUID]*models.Ticket
}

func newMemTicketsRepo() *memTicketsRepo {
	return &memTicketsRepo{tickets: map[uuid.UUID]*models.Ticket{}}
}

func (m *memTicketsRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memTicketsRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	ticket.ID = uuid.New()
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

func (m *memTicketsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *ticket
	return &clone, nil
}

func (m *memTicketsRepo) List(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	var results []models.Ticket
	for _, ticket := range m.tickets {
		if filter.OpenedByUserID != nil && ticket.OpenedByUserID != *filter.OpenedByUserID {
			continue
		}
		if filter.OrgID != nil && (ticket.OrgID == nil || *ticket.OrgID != *filter.OrgID) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		results = append(results, *ticket)
	}
	return results, nil
}

func (m *memTicketsRepo) Save(ctx context.Context, ticket *models.Ticket) error {
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

func newTicketsTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "tickets-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestOpenTrimsAndDefaults(t *testing.T) {
	svc := newTicketsTestService(t, newMemTicketsRepo())
	orgID := uuid.New()

	ticket, err := svc.Open(context.Background(), OpenInput{
		OpenedByUserID: uuid.New(),
		OrgID:          &orgID,
		Subject:        "  Missing points  ",
		Body:           " My award never landed. ",
		Tags:           []string{" points ", "", "awards"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ticket.Subject != "Missing points" {
		t.Fatalf("subject not trimmed: %q", ticket.Subject)
	}
	if ticket.Status != enums.TicketStatusOpen {
		t.Fatalf("expected open status, got %s", ticket.Status)
	}
	if len(ticket.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", ticket.Tags)
	}
}

func TestOpenValidation(t *testing.T) {
	svc := newTicketsTestService(t, newMemTicketsRepo())

	cases := []struct {
		name  string
		input OpenInput
	}{
		{name: "missing opener", input: OpenInput{Subject: "s", Body: "b"}},
		{name: "blank subject", input: OpenInput{OpenedByUserID: uuid.New(), Subject: "  ", Body: "b"}},
		{name: "blank body", input: OpenInput{OpenedByUserID: uuid.New(), Subject: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Open(context.Background(), tc.input)
			if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
				t.Fatalf("expected %s, got %s", pkgerrors.CodeValidation, code)
			}
		})
	}
}

func TestListScoping(t *testing.T) {
	repo := newMemTicketsRepo()
	svc := newTicketsTestService(t, repo)
	userID, orgID := uuid.New(), uuid.New()

	mustOpen := func(opener uuid.UUID, org *uuid.UUID) *models.Ticket {
		ticket, err := svc.Open(context.Background(), OpenInput{
			OpenedByUserID: opener,
			OrgID:          org,
			Subject:        "subject",
			Body:           "body",
		})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return ticket
	}
	mine := mustOpen(userID, &orgID)
	mustOpen(uuid.New(), &orgID)
	mustOpen(uuid.New(), nil)

	byUser, err := svc.ListForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != mine.ID {
		t.Fatalf("unexpected user tickets: %+v", byUser)
	}

	byOrg, err := svc.ListForOrg(context.Background(), orgID, nil)
	if err != nil {
		t.Fatalf("ListForOrg: %v", err)
	}
	if len(byOrg) != 2 {
		t.Fatalf("expected 2 org tickets, got %d", len(byOrg))
	}

	all, err := svc.ListAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(all))
	}

	open := enums.TicketStatusOpen
	filtered, err := svc.ListAll(context.Background(), &open)
	if err != nil {
		t.Fatalf("ListAll filtered: %v", err)
	}
	if len(filtered) != 3 {
		t.Fatalf("expected 3 open tickets, got %d", len(filtered))
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newMemTicketsRepo()
	svc := newTicketsTestService(t, repo)

	ticket, err := svc.Open(context.Background(), OpenInput{
		OpenedByUserID: uuid.New(),
		Subject:        "subject",
		Body:           "body",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), ticket.ID, enums.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.TicketStatusInProgress {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, enums.TicketStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = svc.UpdateStatus(context.Background(), ticket.ID, enums.TicketStatusOpen)
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeConflict {
		t.Fatalf("reopen closed: expected %s, got %s", pkgerrors.CodeConflict, code)
	}

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), enums.TicketStatusClosed)
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeNotFound, code)
	}

	_, err = svc.UpdateStatus(context.Background(), ticket.ID, enums.TicketStatus("resolved"))
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeValidation, code)
	}
}

package awards

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

type memRecurringRepo struct {
	rows map[uuid.UUID]*models.RecurringAward
}

func newMemRecurringRepo() *memRecurringRepo {
	return &memRecurringRepo{rows: map[uuid.UUID]*models.RecurringAward{}}
}

func (m *memRecurringRepo) WithTx(tx *gorm.DB) RecurringRepository { return m }

func (m *memRecurringRepo) Create(ctx context.Context, award *models.RecurringAward) error {
	if award.ID == uuid.Nil {
		award.ID = uuid.New()
	}
	copied := *award
	m.rows[award.ID] = &copied
	return nil
}

func (m *memRecurringRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringAward, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memRecurringRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.RecurringAward, error) {
	var results []models.RecurringAward
	for _, row := range m.rows {
		if row.OrgID == orgID {
			results = append(results, *row)
		}
	}
	return results, nil
}

func (m *memRecurringRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.RecurringAward, error) {
	var results []models.RecurringAward
	for _, row := range m.rows {
		if row.Active && !row.NextRunAt.After(now) {
			results = append(results, *row)
		}
	}
	return results, nil
}

func (m *memRecurringRepo) Save(ctx context.Context, award *models.RecurringAward) error {
	copied := *award
	m.rows[award.ID] = &copied
	return nil
}

func newRecurringTestService(t *testing.T, repo RecurringRepository) RecurringService {
	t.Helper()
	svc, err := NewRecurringService(repo, logger.New(logger.Options{ServiceName: "awards-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewRecurringService: %v", err)
	}
	return svc
}

func TestCreateRecurringDefaultsFirstRun(t *testing.T) {
	repo := newMemRecurringRepo()
	svc := newRecurringTestService(t, repo)

	before := time.Now().UTC()
	award, err := svc.Create(context.Background(), CreateRecurringInput{
		OrgID:        uuid.New(),
		DriverUserID: uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       100,
		Reason:       "  weekly safety bonus  ",
		IntervalDays: 7,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if award.Reason != "weekly safety bonus" {
		t.Fatalf("expected trimmed reason, got %q", award.Reason)
	}
	if !award.Active {
		t.Fatal("expected new schedule to be active")
	}
	if award.NextRunAt.Before(before) || award.NextRunAt.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("expected first run near now, got %s", award.NextRunAt)
	}
	if _, ok := repo.rows[award.ID]; !ok {
		t.Fatal("expected row persisted")
	}
}

func TestCreateRecurringHonorsFirstRunAt(t *testing.T) {
	repo := newMemRecurringRepo()
	svc := newRecurringTestService(t, repo)

	firstRun := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	award, err := svc.Create(context.Background(), CreateRecurringInput{
		OrgID:        uuid.New(),
		DriverUserID: uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       250,
		Reason:       "monthly fuel bonus",
		IntervalDays: 30,
		FirstRunAt:   &firstRun,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !award.NextRunAt.Equal(firstRun) {
		t.Fatalf("expected first run %s, got %s", firstRun, award.NextRunAt)
	}
}

func TestCreateRecurringValidation(t *testing.T) {
	repo := newMemRecurringRepo()
	svc := newRecurringTestService(t, repo)

	valid := CreateRecurringInput{
		OrgID:        uuid.New(),
		DriverUserID: uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       100,
		Reason:       "weekly safety bonus",
		IntervalDays: 7,
	}

	cases := []struct {
		name   string
		mutate func(in *CreateRecurringInput)
	}{
		{"missing org", func(in *CreateRecurringInput) { in.OrgID = uuid.Nil }},
		{"missing driver", func(in *CreateRecurringInput) { in.DriverUserID = uuid.Nil }},
		{"missing actor", func(in *CreateRecurringInput) { in.ActorUserID = uuid.Nil }},
		{"zero amount", func(in *CreateRecurringInput) { in.Amount = 0 }},
		{"negative amount", func(in *CreateRecurringInput) { in.Amount = -50 }},
		{"blank reason", func(in *CreateRecurringInput) { in.Reason = "   " }},
		{"zero interval", func(in *CreateRecurringInput) { in.IntervalDays = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSetRecurringActiveScopesToOrg(t *testing.T) {
	repo := newMemRecurringRepo()
	svc := newRecurringTestService(t, repo)

	orgID := uuid.New()
	award, err := svc.Create(context.Background(), CreateRecurringInput{
		OrgID:        orgID,
		DriverUserID: uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       100,
		Reason:       "weekly safety bonus",
		IntervalDays: 7,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.SetActive(context.Background(), orgID, award.ID, false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if updated.Active {
		t.Fatal("expected schedule deactivated")
	}
	if repo.rows[award.ID].Active {
		t.Fatal("expected deactivation persisted")
	}

	if _, err := svc.SetActive(context.Background(), uuid.New(), award.ID, true); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign org, got %v", err)
	}
	if _, err := svc.SetActive(context.Background(), orgID, uuid.New(), true); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

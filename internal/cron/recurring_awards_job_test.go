package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/internal/awards"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

func TestRecurringAwardsJobGrantsDueRows(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	due := seedRecurringAward(now.Add(-time.Hour), 7, 100)
	schedule := &fakeAwardSchedule{due: []models.RecurringAward{due}}
	awarder := &fakeAwardApplier{}
	job := newRecurringAwardsJob(t, schedule, awarder)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(awarder.applied) != 1 {
		t.Fatalf("expected one grant, got %d", len(awarder.applied))
	}
	got := awarder.applied[0]
	if got.DriverUserID != due.DriverUserID || got.Amount != 100 {
		t.Fatalf("unexpected apply input: %+v", got)
	}
	if got.Source != "recurring" {
		t.Fatalf("expected recurring source, got %s", got.Source)
	}
	if len(schedule.saved) != 1 {
		t.Fatalf("expected one saved row, got %d", len(schedule.saved))
	}
	wantNext := due.NextRunAt.Add(7 * 24 * time.Hour)
	if !schedule.saved[0].NextRunAt.Equal(wantNext) {
		t.Fatalf("expected next run %s, got %s", wantNext, schedule.saved[0].NextRunAt)
	}
}

func TestRecurringAwardsJobAdvancesPastMissedCycles(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	stale := seedRecurringAward(now.Add(-20*24*time.Hour), 7, 50)
	schedule := &fakeAwardSchedule{due: []models.RecurringAward{stale}}
	awarder := &fakeAwardApplier{}
	job := newRecurringAwardsJob(t, schedule, awarder)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(awarder.applied) != 1 {
		t.Fatalf("expected a single grant for the stale row, got %d", len(awarder.applied))
	}
	next := schedule.saved[0].NextRunAt
	if !next.After(now) {
		t.Fatalf("expected next run after %s, got %s", now, next)
	}
	if next.Sub(now) > 7*24*time.Hour {
		t.Fatalf("expected next run within one interval of now, got %s", next)
	}
}

func TestRecurringAwardsJobSkipsLimitRejections(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	capped := seedRecurringAward(now.Add(-time.Hour), 30, 500)
	schedule := &fakeAwardSchedule{due: []models.RecurringAward{capped}}
	awarder := &fakeAwardApplier{err: pkgerrors.New(pkgerrors.CodeLimitExceeded, "monthly point limit exceeded")}
	job := newRecurringAwardsJob(t, schedule, awarder)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected limit rejection to be swallowed, got %v", err)
	}

	if len(schedule.saved) != 1 {
		t.Fatal("expected the rejected row to still advance")
	}
	wantNext := capped.NextRunAt.Add(30 * 24 * time.Hour)
	if !schedule.saved[0].NextRunAt.Equal(wantNext) {
		t.Fatalf("expected next run %s, got %s", wantNext, schedule.saved[0].NextRunAt)
	}
}

func TestRecurringAwardsJobAggregatesHardFailures(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	first := seedRecurringAward(now.Add(-time.Hour), 7, 100)
	second := seedRecurringAward(now.Add(-2*time.Hour), 7, 200)
	schedule := &fakeAwardSchedule{due: []models.RecurringAward{first, second}}
	awarder := &fakeAwardApplier{errFor: map[uuid.UUID]error{
		first.DriverUserID: errors.New("db down"),
	}}
	job := newRecurringAwardsJob(t, schedule, awarder)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}

	if len(schedule.saved) != 1 {
		t.Fatalf("expected only the healthy row to advance, got %d saves", len(schedule.saved))
	}
	if schedule.saved[0].DriverUserID != second.DriverUserID {
		t.Fatal("expected the healthy row to be the one saved")
	}
}

func TestRecurringAwardsJobPropagatesListErrors(t *testing.T) {
	schedule := &fakeAwardSchedule{listErr: errors.New("boom")}
	job := newRecurringAwardsJob(t, schedule, &fakeAwardApplier{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newRecurringAwardsJob(t *testing.T, schedule *fakeAwardSchedule, awarder *fakeAwardApplier) *recurringAwardsJob {
	t.Helper()
	jobIface, err := NewRecurringAwardsJob(RecurringAwardsJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Schedule: schedule,
		Awarder:  awarder,
	})
	if err != nil {
		t.Fatalf("NewRecurringAwardsJob: %v", err)
	}
	job, ok := jobIface.(*recurringAwardsJob)
	if !ok {
		t.Fatalf("expected recurringAwardsJob, got %T", jobIface)
	}
	return job
}

func seedRecurringAward(nextRun time.Time, intervalDays, amount int) models.RecurringAward {
	return models.RecurringAward{
		ID:           uuid.New(),
		OrgID:        uuid.New(),
		DriverUserID: uuid.New(),
		ActorUserID:  uuid.New(),
		Amount:       amount,
		Reason:       "weekly safety bonus",
		IntervalDays: intervalDays,
		NextRunAt:    nextRun,
		Active:       true,
	}
}

type fakeAwardSchedule struct {
	due     []models.RecurringAward
	saved   []models.RecurringAward
	listErr error
	saveErr error
}

func (f *fakeAwardSchedule) ListDue(ctx context.Context, now time.Time, limit int) ([]models.RecurringAward, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.due, nil
}

func (f *fakeAwardSchedule) Save(ctx context.Context, award *models.RecurringAward) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *award)
	return nil
}

type fakeAwardApplier struct {
	applied []awards.ApplyInput
	err     error
	errFor  map[uuid.UUID]error
}

func (f *fakeAwardApplier) Apply(ctx context.Context, input awards.ApplyInput) (*awards.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err, ok := f.errFor[input.DriverUserID]; ok {
		return nil, err
	}
	f.applied = append(f.applied, input)
	return &awards.Outcome{NewBalance: int64(input.Amount)}, nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/haulpoints/haulpoints-backend/internal/awards"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
)

const defaultRecurringAwardsBatch = 200

// RecurringAwardsJobParams configure the recurring awards scheduler.
type RecurringAwardsJobParams struct {
	Logger   *logger.Logger
	Schedule dueAwardSource
	Awarder  awardApplier
	Batch    int
}

type dueAwardSource interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.RecurringAward, error)
	Save(ctx context.Context, award *models.RecurringAward) error
}

type awardApplier interface {
	Apply(ctx context.Context, input awards.ApplyInput) (*awards.Outcome, error)
}

// NewRecurringAwardsJob builds the cron job that grants due recurring awards.
func NewRecurringAwardsJob(params RecurringAwardsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Schedule == nil {
		return nil, fmt.Errorf("recurring award schedule required")
	}
	if params.Awarder == nil {
		return nil, fmt.Errorf("award applier required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultRecurringAwardsBatch
	}
	return &recurringAwardsJob{
		logg:     params.Logger,
		schedule: params.Schedule,
		awarder:  params.Awarder,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type recurringAwardsJob struct {
	logg     *logger.Logger
	schedule dueAwardSource
	awarder  awardApplier
	batch    int
	now      func() time.Time
}

func (j *recurringAwardsJob) Name() string { return "recurring-awards" }

func (j *recurringAwardsJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.schedule.ListDue(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("query due recurring awards: %w", err)
	}

	granted := 0
	skipped := 0
	var errs []error
	for i := range due {
		award := &due[i]
		applied, err := j.grant(ctx, award, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if applied {
			granted++
		} else {
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"granted": granted,
		"skipped": skipped,
		"failed":  len(errs),
	})
	j.logg.Info(logCtx, "recurring awards cycle complete")
	return multierr.Combine(errs...)
}

// grant applies one due row through the same service manual awards use, so
// monthly limits hold for scheduled grants too. A limit rejection is not a
// job failure: the row still advances to its next cycle instead of hammering
// a capped org every tick.
func (j *recurringAwardsJob) grant(ctx context.Context, award *models.RecurringAward, now time.Time) (bool, error) {
	_, err := j.awarder.Apply(ctx, awards.ApplyInput{
		OrgID:        award.OrgID,
		DriverUserID: award.DriverUserID,
		ActorUserID:  award.ActorUserID,
		Amount:       award.Amount,
		Source:       enums.TransactionSourceRecurring,
		Reason:       award.Reason,
	})
	applied := err == nil
	if err != nil {
		if pkgerrors.As(err).Code() != pkgerrors.CodeLimitExceeded {
			return false, fmt.Errorf("apply recurring award %s: %w", award.ID, err)
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"recurring_award_id": award.ID,
			"org_id":             award.OrgID,
			"driver_id":          award.DriverUserID,
		})
		j.logg.Warn(logCtx, "recurring award skipped, org limit exceeded")
	}

	award.NextRunAt = nextRunAfter(award.NextRunAt, award.IntervalDays, now)
	if err := j.schedule.Save(ctx, award); err != nil {
		return applied, fmt.Errorf("advance recurring award %s: %w", award.ID, err)
	}
	return applied, nil
}

// nextRunAfter steps the schedule forward by whole intervals until it lands
// in the future, so a row that sat due through downtime fires once, not once
// per missed cycle.
func nextRunAfter(last time.Time, intervalDays int, now time.Time) time.Time {
	interval := time.Duration(intervalDays) * 24 * time.Hour
	next := last.Add(interval)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}

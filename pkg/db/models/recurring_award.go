package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurringAward schedules a repeating point grant for one driver. The worker
// funnels due rows through the award service so org limits apply identically.
type RecurringAward struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID        uuid.UUID `gorm:"column:org_id;type:uuid;not null;index"`
	DriverUserID uuid.UUID `gorm:"column:driver_user_id;type:uuid;not null"`
	ActorUserID  uuid.UUID `gorm:"column:actor_user_id;type:uuid;not null"`
	Amount       int       `gorm:"column:amount;not null"`
	Reason       string    `gorm:"column:reason;type:text;not null"`
	IntervalDays int       `gorm:"column:interval_days;not null"`
	NextRunAt    time.Time `gorm:"column:next_run_at;not null;index"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// Ticket is a support request raised by a driver or sponsor and worked by admins.
type Ticket struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OpenedByUserID uuid.UUID          `gorm:"column:opened_by_user_id;type:uuid;not null;index"`
	OrgID          *uuid.UUID         `gorm:"column:org_id;type:uuid"`
	Subject        string             `gorm:"column:subject;type:text;not null"`
	Body           string             `gorm:"column:body;type:text;not null"`
	Status         enums.TicketStatus `gorm:"column:status;type:ticket_status;not null;default:'open'"`
	Tags           pq.StringArray     `gorm:"column:tags;type:text[]"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

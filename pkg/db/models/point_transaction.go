package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haulpoints/haulpoints-backend/pkg/enums"
)

// PointTransaction is one immutable entry in the append-only points ledger.
// A driver's balance is always the sum of their transactions; nothing in the
// schema stores a running counter. Rows are never updated or deleted.
type PointTransaction struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverUserID uuid.UUID               `gorm:"column:driver_user_id;type:uuid;not null;index"`
	OrgID        uuid.UUID               `gorm:"column:org_id;type:uuid;not null;index"`
	ActorUserID  uuid.UUID               `gorm:"column:actor_user_id;type:uuid;not null"`
	Amount       int                     `gorm:"column:amount;not null"`
	Source       enums.TransactionSource `gorm:"column:source;type:transaction_source;not null"`
	Reason       string                  `gorm:"column:reason;type:text;not null;default:''"`
	OrderID      *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
}

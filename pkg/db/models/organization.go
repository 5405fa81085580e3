package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Organization is a sponsor company that awards points and curates a catalog.
// PointValue is the USD value of one point; catalog point prices derive from it.
// Nil limit columns mean the corresponding bound is not enforced.
type Organization struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;type:text;not null;uniqueIndex"`
	PointValue        decimal.Decimal `gorm:"column:point_value;type:numeric(12,4);not null;default:0.01"`
	PointUpperLimit   *int            `gorm:"column:point_upper_limit"`
	PointLowerLimit   *int            `gorm:"column:point_lower_limit"`
	MonthlyPointLimit *int            `gorm:"column:monthly_point_limit"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

// Repository manages persistence for the append-only points ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PointTransaction) error
	SumByDriver(ctx context.Context, driverUserID uuid.UUID) (int64, error)
	SumAwardedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error)
	SumDeductedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error)
	List(ctx context.Context, params listTransactionsParams) ([]models.PointTransaction, *pagination.Cursor, error)
	LockDriver(ctx context.Context, driverUserID uuid.UUID) error
}

type listTransactionsParams struct {
	DriverUserID uuid.UUID
	Limit        int
	Cursor       *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// SumByDriver computes the driver's balance directly from the ledger.
// No cached counter exists anywhere else.
func (r *repository) SumByDriver(ctx context.Context, driverUserID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("driver_user_id = ?", driverUserID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SumAwardedByOrgSince totals positive amounts an org has granted since the
// given instant. Deductions and redemptions do not refund monthly headroom.
func (r *repository) SumAwardedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("org_id = ? AND amount > 0 AND created_at >= ?", orgID, since).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SumDeductedByOrgSince totals the magnitude of negative amounts recorded for
// an org since the given instant.
func (r *repository) SumDeductedByOrgSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("org_id = ? AND amount < 0 AND created_at >= ?", orgID, since).
		Select("COALESCE(-SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) List(ctx context.Context, params listTransactionsParams) ([]models.PointTransaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("driver_user_id = ?", params.DriverUserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var txns []models.PointTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, nil, err
	}

	if len(txns) > normalized {
		txns = txns[:normalized]
		last := txns[len(txns)-1]
		return txns, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return txns, nil, nil
}

// LockDriver takes a row lock on the driver's user row so concurrent balance
// mutations for the same driver serialize. Must run inside a transaction.
func (r *repository) LockDriver(ctx context.Context, driverUserID uuid.UUID) error {
	var user models.User
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", driverUserID).
		First(&user).Error
}

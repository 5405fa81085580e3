package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS point_transactions (
  id TEXT PRIMARY KEY,
  driver_user_id TEXT NOT NULL,
  org_id TEXT NOT NULL,
  actor_user_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  source TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  order_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func seedTransaction(t *testing.T, db *gorm.DB, driverID, orgID uuid.UUID, amount int, createdAt time.Time) models.PointTransaction {
	t.Helper()
	txn := models.PointTransaction{
		ID:           uuid.New(),
		DriverUserID: driverID,
		OrgID:        orgID,
		ActorUserID:  uuid.New(),
		Amount:       amount,
		Source:       enums.TransactionSourceManual,
		Reason:       "seed",
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

func TestRepositorySumByDriver(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	driverID := uuid.New()
	orgID := uuid.New()
	now := time.Now().UTC()

	seedTransaction(t, db, driverID, orgID, 100, now.Add(-2*time.Hour))
	seedTransaction(t, db, driverID, orgID, -30, now.Add(-time.Hour))
	seedTransaction(t, db, uuid.New(), orgID, 500, now)

	total, err := repo.SumByDriver(ctx, driverID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), total)
}

func TestRepositorySumByDriverEmptyLedger(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	total, err := repo.SumByDriver(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRepositorySumAwardedByOrgSince(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	driverID := uuid.New()
	now := time.Now().UTC()
	monthStart := now.Add(-72 * time.Hour)

	seedTransaction(t, db, driverID, orgID, 200, now.Add(-time.Hour))
	seedTransaction(t, db, driverID, orgID, 50, now.Add(-2*time.Hour))
	// deductions never refund monthly headroom
	seedTransaction(t, db, driverID, orgID, -75, now.Add(-time.Hour))
	// before the window
	seedTransaction(t, db, driverID, orgID, 900, monthStart.Add(-time.Hour))
	// different org
	seedTransaction(t, db, driverID, uuid.New(), 400, now)

	total, err := repo.SumAwardedByOrgSince(ctx, orgID, monthStart)
	require.NoError(t, err)
	assert.Equal(t, int64(250), total)
}

func TestRepositorySumDeductedByOrgSince(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	driverID := uuid.New()
	now := time.Now().UTC()
	monthStart := now.Add(-72 * time.Hour)

	seedTransaction(t, db, driverID, orgID, -75, now.Add(-time.Hour))
	seedTransaction(t, db, driverID, orgID, -25, now.Add(-2*time.Hour))
	// awards stay out of the deducted sub-sum
	seedTransaction(t, db, driverID, orgID, 200, now.Add(-time.Hour))
	// before the window
	seedTransaction(t, db, driverID, orgID, -900, monthStart.Add(-time.Hour))
	// different org
	seedTransaction(t, db, driverID, uuid.New(), -40, now)

	total, err := repo.SumDeductedByOrgSince(ctx, orgID, monthStart)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
}

func TestRepositoryListPaginates(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	driverID := uuid.New()
	orgID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var seeded []models.PointTransaction
	for i := 0; i < 5; i++ {
		seeded = append(seeded, seedTransaction(t, db, driverID, orgID, 10+i, base.Add(time.Duration(i)*time.Minute)))
	}

	first, cursor, err := repo.List(ctx, listTransactionsParams{DriverUserID: driverID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	// newest first
	assert.Equal(t, seeded[4].ID, first[0].ID)
	assert.Equal(t, seeded[2].ID, first[2].ID)

	second, next, err := repo.List(ctx, listTransactionsParams{DriverUserID: driverID, Limit: 3, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Nil(t, next)
	assert.Equal(t, seeded[1].ID, second[0].ID)
	assert.Equal(t, seeded[0].ID, second[1].ID)
}

func TestRepositoryListScopedToDriver(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	driverID := uuid.New()
	orgID := uuid.New()
	now := time.Now().UTC()
	seedTransaction(t, db, driverID, orgID, 10, now)
	seedTransaction(t, db, uuid.New(), orgID, 20, now)

	txns, cursor, err := repo.List(ctx, listTransactionsParams{DriverUserID: driverID, Limit: pagination.NormalizeLimit(10)})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, driverID, txns[0].DriverUserID)
}

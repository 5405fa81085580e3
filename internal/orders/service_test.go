package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haulpoints/haulpoints-backend/internal/ledger"
	"github.com/haulpoints/haulpoints-backend/pkg/db/models"
	"github.com/haulpoints/haulpoints-backend/pkg/enums"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	"github.com/haulpoints/haulpoints-backend/pkg/pagination"
)

type memOrdersRepo struct {
	orders    map[uuid.UUID]*models.Order
	updateErr error
}

func newMemOrdersRepo() *memOrdersRepo {
	return &memOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (m *memOrdersRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *memOrdersRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *memOrdersRepo) List(ctx context.Context, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	var results []models.Order
	for _, order := range m.orders {
		if params.DriverUserID != nil && order.DriverUserID != *params.DriverUserID {
			continue
		}
		if params.OrgID != nil && order.OrgID != *params.OrgID {
			continue
		}
		results = append(results, *order)
	}
	return results, nil, nil
}

func (m *memOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return ErrNotPlaced
	}
	order.Status = to
	return nil
}

type memLedgerRepo struct {
	ledger.Repository
	created   []*models.PointTransaction
	locks     int
	createErr error
}

func (m *memLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return m }

func (m *memLedgerRepo) LockDriver(ctx context.Context, driverUserID uuid.UUID) error {
	m.locks++
	return nil
}

func (m *memLedgerRepo) Create(ctx context.Context, txn *models.PointTransaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	txn.ID = uuid.New()
	m.created = append(m.created, txn)
	return nil
}

// rollbackTx discards ledger rows appended by a callback that errors out,
// matching what a real transaction commit/rollback does.
type rollbackTx struct {
	ledgers *memLedgerRepo
}

func (r rollbackTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	mark := len(r.ledgers.created)
	if err := fn(nil); err != nil {
		r.ledgers.created = r.ledgers.created[:mark]
		return err
	}
	return nil
}

func newOrdersTestService(t *testing.T, repo Repository, ledgers *memLedgerRepo) Service {
	t.Helper()
	svc, err := NewService(rollbackTx{ledgers: ledgers}, repo, ledgers, logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedOrder(repo *memOrdersRepo, driverID, orgID uuid.UUID, totalPoints int) *models.Order {
	order := &models.Order{
		ID:           uuid.New(),
		DriverUserID: driverID,
		OrgID:        orgID,
		CartID:       uuid.New(),
		Status:       enums.OrderStatusPlaced,
		TotalPoints:  totalPoints,
		CreatedAt:    time.Now().UTC(),
	}
	repo.orders[order.ID] = order
	return order
}

func TestGetForDriverScopesOwnership(t *testing.T) {
	repo := newMemOrdersRepo()
	svc := newOrdersTestService(t, repo, &memLedgerRepo{})
	driverID := uuid.New()
	order := seedOrder(repo, driverID, uuid.New(), 300)

	got, err := svc.GetForDriver(context.Background(), driverID, order.ID)
	if err != nil {
		t.Fatalf("GetForDriver: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("expected order %s, got %s", order.ID, got.ID)
	}

	_, err = svc.GetForDriver(context.Background(), uuid.New(), order.ID)
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("foreign driver: expected %s, got %s", pkgerrors.CodeNotFound, code)
	}
}

func TestListScoping(t *testing.T) {
	repo := newMemOrdersRepo()
	svc := newOrdersTestService(t, repo, &memLedgerRepo{})
	driverID, orgID := uuid.New(), uuid.New()
	seedOrder(repo, driverID, orgID, 100)
	seedOrder(repo, uuid.New(), orgID, 200)
	seedOrder(repo, uuid.New(), uuid.New(), 300)

	byDriver, err := svc.ListForDriver(context.Background(), driverID, PageParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListForDriver: %v", err)
	}
	if len(byDriver.Orders) != 1 {
		t.Fatalf("expected 1 driver order, got %d", len(byDriver.Orders))
	}

	byOrg, err := svc.ListForOrg(context.Background(), orgID, PageParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListForOrg: %v", err)
	}
	if len(byOrg.Orders) != 2 {
		t.Fatalf("expected 2 org orders, got %d", len(byOrg.Orders))
	}

	all, err := svc.ListAll(context.Background(), PageParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all.Orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all.Orders))
	}
}

func TestUpdateStatusFulfill(t *testing.T) {
	repo := newMemOrdersRepo()
	ledgers := &memLedgerRepo{}
	svc := newOrdersTestService(t, repo, ledgers)
	order := seedOrder(repo, uuid.New(), uuid.New(), 150)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		Status:      enums.OrderStatusFulfilled,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.OrderStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", updated.Status)
	}
	if len(ledgers.created) != 0 {
		t.Fatalf("fulfillment must not touch the ledger, recorded %d entries", len(ledgers.created))
	}
}

func TestUpdateStatusCancelRefundsPoints(t *testing.T) {
	repo := newMemOrdersRepo()
	ledgers := &memLedgerRepo{}
	svc := newOrdersTestService(t, repo, ledgers)
	driverID, orgID := uuid.New(), uuid.New()
	order := seedOrder(repo, driverID, orgID, 450)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		Status:      enums.OrderStatusCanceled,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", updated.Status)
	}
	if ledgers.locks == 0 {
		t.Fatal("cancel must lock the driver ledger row before refunding")
	}
	if len(ledgers.created) != 1 {
		t.Fatalf("expected 1 refund entry, got %d", len(ledgers.created))
	}
	refund := ledgers.created[0]
	if refund.Amount != 450 || refund.Source != enums.TransactionSourceOrder {
		t.Fatalf("unexpected refund entry: %+v", refund)
	}
	if refund.OrderID == nil || *refund.OrderID != order.ID {
		t.Fatalf("refund must reference the canceled order")
	}
}

func TestUpdateStatusCancelRollsBackRefundOnFailedWrite(t *testing.T) {
	repo := newMemOrdersRepo()
	repo.updateErr = errors.New("write failed")
	ledgers := &memLedgerRepo{}
	svc := newOrdersTestService(t, repo, ledgers)
	order := seedOrder(repo, uuid.New(), uuid.New(), 150)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		Status:      enums.OrderStatusCanceled,
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeInternal {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeInternal, code)
	}
	if len(ledgers.created) != 0 {
		t.Fatalf("refund survived a failed status write: %d ledger entries", len(ledgers.created))
	}
	if repo.orders[order.ID].Status != enums.OrderStatusPlaced {
		t.Fatalf("order left status %s", repo.orders[order.ID].Status)
	}
}

func TestUpdateStatusCancelLostRaceLeavesNoRefund(t *testing.T) {
	repo := newMemOrdersRepo()
	repo.updateErr = ErrNotPlaced
	ledgers := &memLedgerRepo{}
	svc := newOrdersTestService(t, repo, ledgers)
	order := seedOrder(repo, uuid.New(), uuid.New(), 220)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		Status:      enums.OrderStatusCanceled,
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeConflict {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeConflict, code)
	}
	if len(ledgers.created) != 0 {
		t.Fatalf("losing cancel still appended %d refund entries", len(ledgers.created))
	}
}

func TestUpdateStatusTerminalOrder(t *testing.T) {
	repo := newMemOrdersRepo()
	svc := newOrdersTestService(t, repo, &memLedgerRepo{})
	order := seedOrder(repo, uuid.New(), uuid.New(), 100)
	order.Status = enums.OrderStatusFulfilled

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		Status:      enums.OrderStatusCanceled,
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeConflict {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeConflict, code)
	}
}

func TestUpdateStatusOrgScope(t *testing.T) {
	repo := newMemOrdersRepo()
	svc := newOrdersTestService(t, repo, &memLedgerRepo{})
	order := seedOrder(repo, uuid.New(), uuid.New(), 100)
	otherOrg := uuid.New()

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		OrgID:       &otherOrg,
		Status:      enums.OrderStatusFulfilled,
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeNotFound, code)
	}
}

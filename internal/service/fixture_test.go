package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"kidphoto/internal/model"
	"kidphoto/internal/testutil"
	"kidphoto/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu     sync.Mutex
	events []Event
}

func (b *recordingBus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) count(t EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ctx     context.Context
	store   *testutil.Store
	locker  *testutil.Locker
	cache   *testutil.CredentialCache
	gateway *testutil.Gateway
	bus     *recordingBus
	clock   *fakeClock

	orders   *OrderService
	payments *PaymentService
	workflow *WorkflowService
	history  *HistoryService
	archive  *ArchiveService
	catalog  *CatalogService

	photographer *model.Photographer
	idPhoto      *model.Activity
	portrait     *model.Activity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	f := &fixture{
		ctx:     ctx,
		store:   testutil.NewStore(),
		locker:  testutil.NewLocker(),
		cache:   testutil.NewCredentialCache(),
		gateway: &testutil.Gateway{},
		bus:     &recordingBus{},
		clock:   &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)},
	}

	events := NewEventDispatcher(f.bus, nil, log)
	orderRepo := f.store.Orders()
	f.orders = NewOrderService(orderRepo, f.store.Activities(), f.store.Photographers(), f.locker, events, log, 30*time.Minute)
	f.payments = NewPaymentService(f.orders, orderRepo, f.gateway, f.cache, events, log)
	f.history = NewHistoryService(f.store.Histories(), orderRepo, log)
	f.archive = NewArchiveService(f.store.Students(), orderRepo, events, log)
	f.workflow = NewWorkflowService(f.orders, orderRepo, f.history, f.archive, events, log)
	f.catalog = NewCatalogService(f.store.Activities(), log)

	f.orders.now = f.clock.Now
	f.payments.now = f.clock.Now
	f.archive.now = f.clock.Now
	f.workflow.now = f.clock.Now
	f.catalog.now = f.clock.Now

	f.photographer = &model.Photographer{Name: "王摄影", Phone: "13800000000", IsActive: true}
	f.store.Photographers().Put(f.photographer)

	f.idPhoto = &model.Activity{
		Name:     "新生入学证件照",
		Category: model.CategoryIdentityPhoto,
		Price:    decimal.RequireFromString("20.00"),
		IsActive: true,
	}
	require.NoError(t, f.catalog.CreateActivity(ctx, f.idPhoto))

	f.portrait = &model.Activity{
		Name:     "春日写真",
		Category: "portrait",
		Price:    decimal.RequireFromString("199.90"),
		IsActive: true,
	}
	require.NoError(t, f.catalog.CreateActivity(ctx, f.portrait))
	return f
}

func (f *fixture) createOrder(t *testing.T, ownerID uint64, activity *model.Activity, child string) *model.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{
		OwnerID:        ownerID,
		ActivityID:     activity.ID,
		PhotographerID: f.photographer.ID,
		Form: OrderForm{
			ChildName:     child,
			GuardianName:  "李女士",
			GuardianPhone: "13900000000",
		},
		LifePhotos: []string{"life/a.jpg", "life/b.jpg"},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) paidOrder(t *testing.T, ownerID uint64, activity *model.Activity, child string) *model.Order {
	t.Helper()
	order := f.createOrder(t, ownerID, activity, child)
	applied, err := f.payments.ConfirmPayment(f.ctx, order.OrderNo, "tx-"+order.OrderNo)
	require.NoError(t, err)
	require.True(t, applied)
	return f.reload(t, order.ID)
}

// pendingConfirmOrder 已支付、已提交并审核通过
func (f *fixture) pendingConfirmOrder(t *testing.T, ownerID uint64, activity *model.Activity, child string) *model.Order {
	t.Helper()
	order := f.paidOrder(t, ownerID, activity, child)
	_, err := f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"final/cert.jpg", "final/2.jpg"}, "")
	require.NoError(t, err)
	_, err = f.workflow.AdminReview(f.ctx, order.ID, true, "")
	require.NoError(t, err)
	return f.reload(t, order.ID)
}

func (f *fixture) reload(t *testing.T, id uint64) *model.Order {
	t.Helper()
	order, err := f.store.Orders().GetByID(f.ctx, id)
	require.NoError(t, err)
	return order
}

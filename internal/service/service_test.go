package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/virtmarket/internal/model"
	"github.com/mmeshcher/virtmarket/internal/notify"
	"github.com/mmeshcher/virtmarket/internal/repository"
)

// memRepo хранит данные в памяти и повторяет семантику PostgresRepository.
type memRepo struct {
	mu     sync.Mutex
	orders map[string]model.Order
	bans   map[int64]model.BannedUser

	insertErr  error
	banLookErr error
	statusSets int
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders: make(map[string]model.Order),
		bans:   make(map[int64]model.BannedUser),
	}
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) InsertOrder(ctx context.Context, o model.Order) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if _, ok := m.orders[o.ID]; ok {
		return nil, repository.ErrDuplicateOrder
	}
	m.orders[o.ID] = o
	return &o, nil
}

func (m *memRepo) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memRepo) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Order
	for _, o := range m.orders {
		if f.OrderType != "" && o.OrderType != f.OrderType {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.Project != "" && o.Project != f.Project {
			continue
		}
		if f.Source != "" && o.Source != f.Source {
			continue
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *memRepo) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	m.orders[id] = o
	m.statusSets++
	return nil
}

func (m *memRepo) UpdateOrderFields(ctx context.Context, id string, patch model.OrderPatch, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if patch.Amount != nil {
		o.Amount = *patch.Amount
	}
	if patch.Price != nil {
		o.Price = *patch.Price
	}
	if patch.Contact != nil {
		o.Contact = *patch.Contact
	}
	o.UpdatedAt = at
	m.orders[id] = o
	return nil
}

func (m *memRepo) DeleteOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return &o, nil
}

func (m *memRepo) AggregateByServer(ctx context.Context, orderType model.OrderType, status model.OrderStatus, project string) ([]model.ServerStats, error) {
	orders, _ := m.ListOrders(ctx, model.OrderFilter{OrderType: orderType, Status: status, Project: project})

	type key struct {
		name string
		id   int
	}
	users := make(map[key]map[int64]struct{})
	totals := make(map[key]int64)
	for _, o := range orders {
		k := key{o.ServerName, o.ServerID}
		if users[k] == nil {
			users[k] = make(map[int64]struct{})
		}
		users[k][o.UserID] = struct{}{}
		totals[k] += o.Amount
	}

	var res []model.ServerStats
	for k, u := range users {
		res = append(res, model.ServerStats{ServerName: k.name, ServerID: k.id, Users: int64(len(u)), TotalAmount: totals[k]})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ServerID < res[j].ServerID })
	return res, nil
}

func (m *memRepo) activeBan(userID int64, now time.Time) (model.BannedUser, bool) {
	b, ok := m.bans[userID]
	if !ok || (b.BannedUntil != nil && !b.BannedUntil.After(now)) {
		return model.BannedUser{}, false
	}
	return b, true
}

func (m *memRepo) IsBanned(ctx context.Context, userID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.banLookErr != nil {
		return false, m.banLookErr
	}
	_, ok := m.activeBan(userID, now)
	return ok, nil
}

func (m *memRepo) GetBan(ctx context.Context, userID int64, now time.Time) (*model.BannedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.banLookErr != nil {
		return nil, m.banLookErr
	}
	b, ok := m.activeBan(userID, now)
	if !ok {
		return nil, repository.ErrBanNotFound
	}
	return &b, nil
}

func (m *memRepo) UpsertBan(ctx context.Context, ban model.BannedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bans[ban.UserID] = ban
	return nil
}

func (m *memRepo) DeleteBan(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bans[userID]; !ok {
		return repository.ErrBanNotFound
	}
	delete(m.bans, userID)
	return nil
}

func (m *memRepo) ListBans(ctx context.Context, now time.Time) ([]model.BannedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.BannedUser
	for id := range m.bans {
		if b, ok := m.activeBan(id, now); ok {
			res = append(res, b)
		}
	}
	return res, nil
}

func (m *memRepo) PurgeExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, b := range m.bans {
		if b.BannedUntil != nil && !b.BannedUntil.After(now) {
			delete(m.bans, id)
			removed++
		}
	}
	return removed, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(e notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) kinds() []notify.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]notify.EventKind, 0, len(p.events))
	for _, e := range p.events {
		res = append(res, e.Kind)
	}
	return res
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memRepo, *recordingPublisher) {
	t.Helper()

	repo := newMemRepo()
	pub := &recordingPublisher{}
	svc := NewService(repo, pub, zap.NewNop(), Options{AdminUsername: "@Moderator"})

	clock := testNow
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ids := 0
	svc.newID = func() string {
		ids++
		return "order-" + string(rune('a'+ids-1))
	}

	return svc, repo, pub
}

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }

func sellOrder(userID int64, serverID int, amount int64) model.NewOrder {
	return model.NewOrder{
		OrderType: model.OrderTypeSell,
		ServerID:  serverID,
		UserID:    userID,
		Username:  "seller",
		Amount:    int64Ptr(amount),
		Price:     690,
	}
}

func TestCreateOrder_SellStartsPending(t *testing.T) {
	svc, _, pub := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	assert.Equal(t, "order-a", order.ID)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "Downtown", order.ServerName)
	assert.Equal(t, model.DefaultProject, order.Project)
	assert.Equal(t, model.DefaultSource, order.Source)
	assert.Equal(t, "seller", order.Contact)
	assert.True(t, order.RefundEnabled)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	assert.Equal(t, []notify.EventKind{notify.EventOrderCreated}, pub.kinds())
}

func TestCreateOrder_BuyIsApprovedImmediately(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := sellOrder(7, 3, 500_000)
	in.OrderType = ""
	in.RefundEnabled = boolPtr(false)
	in.Contact = `<b>"@buyer"</b>`

	order, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, model.OrderTypeBuy, order.OrderType)
	assert.Equal(t, model.OrderStatusApproved, order.Status)
	assert.False(t, order.RefundEnabled)
	assert.Equal(t, "b@buyer/b", order.Contact)
}

func TestCreateOrder_KeepsExplicitServerName(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := sellOrder(7, 0, 500_000)
	in.ServerName = "Custom"

	order, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Custom", order.ServerName)
	assert.Equal(t, 0, order.ServerID)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *model.NewOrder)
		wantErr error
	}{
		{
			name:    "no user",
			mutate:  func(o *model.NewOrder) { o.UserID = 0 },
			wantErr: ErrNoUser,
		},
		{
			name:    "no server",
			mutate:  func(o *model.NewOrder) { o.ServerID = 0; o.ServerName = "  " },
			wantErr: ErrNoServer,
		},
		{
			name:    "no amount",
			mutate:  func(o *model.NewOrder) { o.Amount = nil },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "amount below minimum",
			mutate:  func(o *model.NewOrder) { o.Amount = int64Ptr(99_999) },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(o *model.NewOrder) { o.Amount = int64Ptr(-1) },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			mutate:  func(o *model.NewOrder) { o.OrderType = "swap" },
			wantErr: ErrInvalidOrderType,
		},
		{
			name: "user check happens before server check",
			mutate: func(o *model.NewOrder) {
				o.UserID = 0
				o.ServerID = 0
				o.Amount = nil
			},
			wantErr: ErrNoUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub := newTestService(t)

			in := sellOrder(42, 1, 2_000_000)
			tt.mutate(&in)

			_, err := svc.CreateOrder(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.orders)
			assert.Empty(t, pub.kinds())
		})
	}
}

func TestCreateOrder_MinimumAmountAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), sellOrder(42, 1, model.MinOrderAmount))
	require.NoError(t, err)
	assert.Equal(t, model.MinOrderAmount, order.Amount)
}

func TestCreateOrder_LargeAmountAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), sellOrder(42, 1, 150_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(150_000_000), order.Amount)
}

func TestCreateOrder_BannedUser(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.BanUser(ctx, BanRequest{UserID: 42, Reason: "scam"})
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	assert.ErrorIs(t, err, ErrUserBanned)
	assert.Empty(t, repo.orders)
	assert.Empty(t, pub.kinds())

	require.NoError(t, svc.UnbanUser(ctx, 42))
	_, err = svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	assert.NoError(t, err)
}

func TestCreateOrder_ExpiredBanIsIgnored(t *testing.T) {
	svc, repo, _ := newTestService(t)

	past := testNow.Add(-time.Hour)
	repo.bans[42] = model.BannedUser{UserID: 42, BannedBy: DefaultBannedBy, BannedAt: past.Add(-time.Hour), BannedUntil: &past}

	_, err := svc.CreateOrder(context.Background(), sellOrder(42, 1, 2_000_000))
	assert.NoError(t, err)
}

func TestCreateOrder_StorageErrors(t *testing.T) {
	svc, repo, pub := newTestService(t)

	repo.banLookErr = errors.New("db down")
	_, err := svc.CreateOrder(context.Background(), sellOrder(42, 1, 2_000_000))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserBanned)

	repo.banLookErr = nil
	repo.insertErr = errors.New("disk full")
	_, err = svc.CreateOrder(context.Background(), sellOrder(42, 1, 2_000_000))
	assert.ErrorIs(t, err, repo.insertErr)
	assert.Empty(t, pub.kinds())
}

func TestApproveAndReject(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusApproved, approved.Status)
	assert.True(t, approved.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, approved.CreatedAt)

	rejected, err := svc.Reject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, rejected.Status)

	assert.Equal(t, []notify.EventKind{
		notify.EventOrderCreated,
		notify.EventOrderApproved,
		notify.EventOrderRejected,
	}, pub.kinds())
	assert.Equal(t, model.OrderStatusRejected, pub.events[2].Order.Status)
}

func TestApprove_Idempotent(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	first, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	second, err := svc.Approve(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusApproved, first.Status)
	assert.Equal(t, model.OrderStatusApproved, second.Status)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, created.CreatedAt, second.CreatedAt)
	assert.Equal(t, []notify.EventKind{
		notify.EventOrderCreated,
		notify.EventOrderApproved,
		notify.EventOrderApproved,
	}, pub.kinds())
}

func TestCreateOrder_ListRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := model.NewOrder{
		OrderType: model.OrderTypeBuy,
		ServerID:  4,
		UserID:    77,
		Username:  "buyer",
		Amount:    int64Ptr(3_000_000),
		Price:     1002,
	}

	created, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, sellOrder(77, 4, 500_000))
	require.NoError(t, err)

	list, err := svc.ListOrders(ctx, model.OrderFilter{OrderType: model.OrderTypeBuy, UserID: 77})
	require.NoError(t, err)
	require.Len(t, list, 1)

	want := model.Order{
		ID:            created.ID,
		OrderType:     model.OrderTypeBuy,
		Project:       model.DefaultProject,
		ServerName:    "BlackBerry",
		ServerID:      4,
		UserID:        77,
		Username:      "buyer",
		Amount:        3_000_000,
		Price:         1002,
		Contact:       "buyer",
		RefundEnabled: true,
		Status:        model.OrderStatusApproved,
		Source:        model.DefaultSource,
		CreatedAt:     testNow.Add(time.Second),
		UpdatedAt:     testNow.Add(time.Second),
	}
	assert.Equal(t, want, list[0])
	assert.Equal(t, want, *created)
}

func TestApprove_NotFound(t *testing.T) {
	svc, _, pub := newTestService(t)

	_, err := svc.Approve(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = svc.Reject(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Empty(t, pub.kinds())
}

func TestUpdateOrder(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	price := 1500.5
	contact := "<@new>"
	status := model.OrderStatusCompleted
	updated, err := svc.UpdateOrder(ctx, created.ID, model.OrderPatch{
		Price:   &price,
		Contact: &contact,
		Status:  &status,
	})
	require.NoError(t, err)

	assert.Equal(t, created.Amount, updated.Amount)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, "@new", updated.Contact)
	assert.Equal(t, model.OrderStatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, 1, repo.statusSets)
	assert.Equal(t, []notify.EventKind{notify.EventOrderCreated}, pub.kinds())
}

func TestUpdateOrder_SameStatusIsNotRewritten(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	status := model.OrderStatusPending
	_, err = svc.UpdateOrder(ctx, created.ID, model.OrderPatch{Status: &status})
	require.NoError(t, err)
	assert.Zero(t, repo.statusSets)
}

func TestUpdateOrder_AmountBelowMinimumIsAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(ctx, created.ID, model.OrderPatch{Amount: int64Ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(10), updated.Amount)
}

func TestUpdateOrder_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bad := model.OrderStatus("archived")
	_, err := svc.UpdateOrder(ctx, "any", model.OrderPatch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateOrder(ctx, "missing", model.OrderPatch{Amount: int64Ptr(500_000)})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestDeleteOrder(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, sellOrder(42, 1, 2_000_000))
	require.NoError(t, err)

	deleted, err := svc.DeleteOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = repo.GetOrder(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = svc.DeleteOrder(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestListOrders_NewestFirstAndNeverNil(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first, err := svc.CreateOrder(ctx, sellOrder(1, 1, 1_000_000))
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, sellOrder(2, 1, 1_000_000))
	require.NoError(t, err)

	list, err := svc.ListOrders(ctx, model.OrderFilter{OrderType: model.OrderTypeSell})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = svc.ListOrders(ctx, model.OrderFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestServerStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateOrder(ctx, sellOrder(1, 1, 1_000_000))
	require.NoError(t, err)
	b, err := svc.CreateOrder(ctx, sellOrder(1, 1, 500_000))
	require.NoError(t, err)
	c, err := svc.CreateOrder(ctx, sellOrder(2, 1, 200_000))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, sellOrder(3, 2, 300_000))
	require.NoError(t, err)

	for _, id := range []string{a.ID, b.ID, c.ID} {
		_, err := svc.Approve(ctx, id)
		require.NoError(t, err)
	}

	sellers, err := svc.ServerStats(ctx, model.DefaultProject, model.StatsRoleSeller)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, model.ServerStats{ServerName: "Downtown", ServerID: 1, Users: 2, TotalAmount: 1_700_000}, sellers[0])

	buyers, err := svc.ServerStats(ctx, "", model.StatsRoleBuyer)
	require.NoError(t, err)
	assert.NotNil(t, buyers)
	assert.Empty(t, buyers)

	_, err = svc.ServerStats(ctx, "", "trader")
	assert.ErrorIs(t, err, ErrInvalidStatsRole)
}

func TestBanUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	days := 3
	ban, err := svc.BanUser(ctx, BanRequest{UserID: 5, Username: "spammer", Days: &days})
	require.NoError(t, err)
	require.NotNil(t, ban.BannedUntil)
	assert.Equal(t, ban.BannedAt.AddDate(0, 0, 3), *ban.BannedUntil)
	assert.Equal(t, DefaultBannedBy, ban.BannedBy)

	got, ok := svc.CheckBan(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "spammer", got.Username)

	permanent, err := svc.BanUser(ctx, BanRequest{UserID: 5, BannedBy: "moderator"})
	require.NoError(t, err)
	assert.Nil(t, permanent.BannedUntil)

	bans, err := svc.ListBans(ctx)
	require.NoError(t, err)
	require.Len(t, bans, 1)
	assert.Equal(t, "moderator", bans[0].BannedBy)

	_, err = svc.BanUser(ctx, BanRequest{})
	assert.ErrorIs(t, err, ErrNoUser)

	negative := -1
	_, err = svc.BanUser(ctx, BanRequest{UserID: 5, Days: &negative})
	assert.ErrorIs(t, err, ErrInvalidBanDuration)
}

func TestUnbanUser_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.ErrorIs(t, svc.UnbanUser(context.Background(), 77), repository.ErrBanNotFound)
}

func TestCheckBan_StorageErrorMeansNotBanned(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.banLookErr = errors.New("db down")

	ban, ok := svc.CheckBan(context.Background(), 5)
	assert.False(t, ok)
	assert.Nil(t, ban)
}

func TestPurgeExpiredBans(t *testing.T) {
	svc, repo, _ := newTestService(t)

	past := testNow.Add(-time.Minute)
	repo.bans[1] = model.BannedUser{UserID: 1, BannedUntil: &past}
	repo.bans[2] = model.BannedUser{UserID: 2}

	removed, err := svc.PurgeExpiredBans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Contains(t, repo.bans, int64(2))
}

func TestStartBanPurge(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.StartBanPurge(context.Background(), "not a schedule")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.StartBanPurge(ctx, "@every 1h"))
}

func TestIsAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.True(t, svc.IsAdmin("moderator"))
	assert.True(t, svc.IsAdmin("@Moderator"))
	assert.False(t, svc.IsAdmin("someone"))
	assert.False(t, svc.IsAdmin(""))

	empty := NewService(newMemRepo(), nil, nil, Options{})
	assert.False(t, empty.IsAdmin(""))
}

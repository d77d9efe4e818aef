package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/pkg/database"
	"kidphoto/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

var (
	dbOnce    sync.Once
	sharedDB  *sqlx.DB
	dbErr     error
	container *tcmysql.MySQLContainer
)

func TestMain(m *testing.M) {
	code := m.Run()
	if sharedDB != nil {
		sharedDB.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupMySQL 启动一个共享的 MySQL 容器并建表，每个测试前清空数据
func setupMySQL(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MySQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	dbOnce.Do(func() {
		ctx := context.Background()
		container, dbErr = tcmysql.Run(ctx, "mysql:8.0.36",
			tcmysql.WithDatabase("kidphoto"),
			tcmysql.WithUsername("kid"),
			tcmysql.WithPassword("kid"),
		)
		if dbErr != nil {
			return
		}
		var dsn string
		dsn, dbErr = container.ConnectionString(ctx, "charset=utf8mb4", "parseTime=true", "loc=Local", "clientFoundRows=true")
		if dbErr != nil {
			return
		}
		sharedDB, dbErr = database.Open(dsn)
		if dbErr != nil {
			return
		}
		dbErr = database.Migrate(ctx, sharedDB, logger.NewNop())
	})
	require.NoError(t, dbErr)

	for _, table := range []string{"orders", "order_histories", "students", "student_sequences", "activities", "photographers", "users"} {
		_, err := sharedDB.Exec("TRUNCATE TABLE " + table)
		require.NoError(t, err)
	}
	return sharedDB
}

func newOrder(ownerID uint64, orderNo string) *model.Order {
	now := time.Now().Truncate(time.Millisecond)
	return &model.Order{
		OrderNo:        orderNo,
		OwnerID:        ownerID,
		PhotographerID: 1,
		ActivityID:     1,
		ActivityName:   "新生入学证件照",
		Category:       model.CategoryIdentityPhoto,
		IdentityPhoto:  true,
		ChildName:      "小明",
		GuardianName:   "李女士",
		GuardianPhone:  "13900000000",
		LockedPrice:    decimal.RequireFromString("20.00"),
		PaymentStatus:  model.PaymentUnpaid,
		Status:         model.StatusPendingPayment,
		Photos:         model.StringList{},
		LifePhotos:     model.StringList{"life/a.jpg"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := newOrder(1, "KP0001")
	order.IdempotencyKey = sql.NullString{String: "tap-1", Valid: true}
	require.NoError(t, repo.Create(ctx, order))
	assert.NotZero(t, order.ID)

	got, err := repo.GetByOrderNo(ctx, "KP0001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, got.LockedPrice.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, model.StringList{"life/a.jpg"}, got.LifePhotos)
	assert.Equal(t, model.StringList{}, got.Photos)
	assert.False(t, got.StudentID.Valid)

	byKey, err := repo.GetByIdempotencyKey(ctx, 1, "tap-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byKey.ID)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	dup := newOrder(2, "KP0001")
	err = repo.Create(ctx, dup)
	assert.True(t, repository.IsDuplicateKey(err, repository.KeyOrderNo), "got %v", err)

	sameKey := newOrder(1, "KP0002")
	sameKey.IdempotencyKey = sql.NullString{String: "tap-1", Valid: true}
	err = repo.Create(ctx, sameKey)
	assert.True(t, repository.IsDuplicateKey(err, repository.KeyOrderIdempotency), "got %v", err)

	// 没有幂等键的订单互不冲突
	require.NoError(t, repo.Create(ctx, newOrder(1, "KP0003")))
	require.NoError(t, repo.Create(ctx, newOrder(1, "KP0004")))
}

func TestOrderRepository_TransitionIsConditional(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := newOrder(1, "KP0100")
	require.NoError(t, repo.Create(ctx, order))

	paid := model.PaymentPaid
	now := time.Now().Truncate(time.Millisecond)
	guard := model.OrderGuard{Status: model.StatusPendingPayment, PaymentStatus: model.PaymentUnpaid}
	update := model.OrderUpdate{Status: model.StatusInProgress, PaymentStatus: &paid, PaidAt: &now, UpdatedAt: now}

	const n = 8
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.Transition(ctx, order.ID, guard, update)
			assert.NoError(t, err)
			results <- applied
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for applied := range results {
		if applied {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.PaidAt.Valid)

	// reject_count 守卫
	zero, one := 0, 1
	applied, err := repo.Transition(ctx, order.ID,
		model.OrderGuard{Status: model.StatusInProgress, RejectCount: &one},
		model.OrderUpdate{Status: model.StatusPendingReview, UpdatedAt: now})
	require.NoError(t, err)
	assert.False(t, applied)

	photos := model.StringList{"final/1.jpg"}
	applied, err = repo.Transition(ctx, order.ID,
		model.OrderGuard{Status: model.StatusInProgress, RejectCount: &zero},
		model.OrderUpdate{Status: model.StatusPendingReview, Photos: &photos, SubmittedAt: &now, UpdatedAt: now})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err = repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, photos, got.Photos)
}

func TestOrderRepository_RejectCountCheckConstraint(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := newOrder(1, "KP0150")
	order.Status = model.StatusPendingConfirm
	require.NoError(t, repo.Create(ctx, order))

	four := 4
	_, err := repo.Transition(ctx, order.ID,
		model.OrderGuard{Status: model.StatusPendingConfirm},
		model.OrderUpdate{Status: model.StatusInProgress, RejectCount: &four, UpdatedAt: time.Now()})
	assert.Error(t, err)
}

func TestOrderRepository_ListAndExpired(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		o := newOrder(uint64(i%2+1), fmt.Sprintf("KP02%02d", i))
		o.CreatedAt = base.Add(time.Duration(i) * 10 * time.Minute)
		o.UpdatedAt = o.CreatedAt
		if i == 4 {
			o.Status = model.StatusInProgress
			o.PaymentStatus = model.PaymentPaid
		}
		require.NoError(t, repo.Create(ctx, o))
	}

	orders, total, err := repo.List(ctx, model.OrderFilter{OwnerID: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "KP0204", orders[0].OrderNo)

	orders, total, err = repo.List(ctx, model.OrderFilter{Status: model.StatusPendingPayment, Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, orders, 1)

	expired, err := repo.ListExpiredPending(ctx, base.Add(25*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, expired, 3)
	assert.Equal(t, "KP0200", expired[0].OrderNo)

	expired, err = repo.ListExpiredPending(ctx, base.Add(25*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, expired, 1)
}

func TestOrderRepository_StudentBackLink(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewOrderRepository(db)
	ctx := context.Background()

	a := newOrder(1, "KP0300")
	b := newOrder(2, "KP0301")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	max, err := repo.MaxStudentSeq(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	require.NoError(t, repo.SetStudentID(ctx, a.ID, "20250003"))
	require.NoError(t, repo.SetStudentID(ctx, b.ID, "20240009"))

	max, err = repo.MaxStudentSeq(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, max)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "20250003", got.StudentID.String)
}

func TestHistoryRepository(t *testing.T) {
	db := setupMySQL(t)
	repo := repository.NewHistoryRepository(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	records := []*model.HistoryRecord{
		{OrderID: 1, Photos: model.StringList{"v1.jpg"}, RejectType: model.RejectAdmin, RejectReason: "曝光不足", SubmittedAt: now, RejectedAt: now, CreatedAt: now},
		{OrderID: 1, Photos: model.StringList{"v2.jpg"}, RejectType: model.RejectUser, RejectReason: "背景颜色不对", SubmittedAt: now, RejectedAt: now.Add(time.Minute), CreatedAt: now},
		{OrderID: 2, Photos: model.StringList{"x.jpg"}, RejectType: model.RejectUser, RejectReason: "其他订单", SubmittedAt: now, RejectedAt: now, CreatedAt: now},
	}
	for _, r := range records {
		require.NoError(t, repo.Append(ctx, r))
	}

	all, err := repo.ListByOrder(ctx, 1, model.RejectNone)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.StringList{"v2.jpg"}, all[0].Photos)

	user, err := repo.ListByOrder(ctx, 1, model.RejectUser)
	require.NoError(t, err)
	require.Len(t, user, 1)
	assert.Equal(t, "背景颜色不对", user[0].RejectReason)

	none, err := repo.ListByOrder(ctx, 42, model.RejectNone)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStudentRepository(t *testing.T) {
	db := setupMySQL(t)
	students := repository.NewStudentRepository(db)
	orders := repository.NewOrderRepository(db)
	ctx := context.Background()

	order := newOrder(1, "KP0400")
	order.Status = model.StatusCompleted
	order.Photos = model.StringList{"final/cert.jpg", "final/2.jpg"}
	require.NoError(t, orders.Create(ctx, order))

	now := time.Now().Truncate(time.Millisecond)
	student := &model.Student{
		StudentID:        model.FormatStudentID(2025, 1),
		Year:             2025,
		Seq:              1,
		OwnerID:          1,
		Name:             "小明",
		GuardianContact:  "13900000000",
		CertificatePhoto: "final/cert.jpg",
		LifePhotos:       model.StringList{"life/a.jpg", "final/cert.jpg"},
		SourceOrderID:    order.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, students.Create(ctx, student))

	sameID := *student
	sameID.OwnerID = 2
	err := students.Create(ctx, &sameID)
	assert.True(t, repository.IsDuplicateKey(err, repository.KeyStudentID), "got %v", err)

	sameName := *student
	sameName.StudentID = model.FormatStudentID(2025, 2)
	sameName.Seq = 2
	err = students.Create(ctx, &sameName)
	assert.True(t, repository.IsDuplicateKey(err, repository.KeyStudentOwnerName), "got %v", err)

	sibling := *student
	sibling.StudentID = model.FormatStudentID(2025, 2)
	sibling.Seq = 2
	sibling.Name = "小红"
	require.NoError(t, students.Create(ctx, &sibling))

	max, err := students.MaxSeq(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	list, err := students.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	byName, err := students.GetByOwnerAndName(ctx, 1, "小红")
	require.NoError(t, err)
	assert.Equal(t, "20250002", byName.StudentID)

	err = students.UpdateProfile(ctx, "20250002", "小明", "", now)
	assert.True(t, repository.IsDuplicateKey(err, repository.KeyStudentOwnerName), "got %v", err)
	assert.ErrorIs(t, students.UpdateProfile(ctx, "20259999", "x", "", now), repository.ErrNotFound)
	require.NoError(t, students.UpdateProfile(ctx, "20250001", "小明", "13700000000", now))

	require.NoError(t, students.OverrideCertificate(ctx, "20250001", "fixed/cert.jpg", now))
	got, err := students.GetByStudentID(ctx, "20250001")
	require.NoError(t, err)
	assert.Equal(t, "fixed/cert.jpg", got.CertificatePhoto)
	assert.Equal(t, model.StringList{"life/a.jpg", "fixed/cert.jpg"}, got.LifePhotos)
	assert.Equal(t, "13700000000", got.GuardianContact)

	source, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"fixed/cert.jpg", "final/2.jpg"}, source.Photos)

	err = students.OverrideCertificate(ctx, "20259999", "x.jpg", now)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestStudentRepository_NextSeqIsAtomic(t *testing.T) {
	db := setupMySQL(t)
	students := repository.NewStudentRepository(db)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	seqs := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := students.NextSeq(ctx, 2025, 0)
			assert.NoError(t, err)
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := map[int]bool{}
	for seq := range seqs {
		assert.False(t, seen[seq], "duplicate seq %d", seq)
		seen[seq] = true
	}
	for seq := 1; seq <= n; seq++ {
		assert.True(t, seen[seq])
	}

	// floor 高于计数器时从 floor 之后继续
	seq, err := students.NextSeq(ctx, 2025, 100)
	require.NoError(t, err)
	assert.Equal(t, 101, seq)
	seq, err = students.NextSeq(ctx, 2025, 0)
	require.NoError(t, err)
	assert.Equal(t, 102, seq)

	// 年份之间互不影响
	seq, err = students.NextSeq(ctx, 2026, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestActivityAndUserRepositories(t *testing.T) {
	db := setupMySQL(t)
	activities := repository.NewActivityRepository(db)
	photographers := repository.NewPhotographerRepository(db)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	active := &model.Activity{Name: "证件照", Category: model.CategoryIdentityPhoto, IdentityPhoto: true,
		Price: decimal.RequireFromString("20.00"), IsActive: true, CreatedAt: now, UpdatedAt: now}
	inactive := &model.Activity{Name: "旧活动", Category: "portrait",
		Price: decimal.RequireFromString("99.00"), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, activities.Create(ctx, active))
	require.NoError(t, activities.Create(ctx, inactive))

	list, err := activities.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IdentityPhoto)

	list, err = activities.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, activities.UpdatePrice(ctx, active.ID, decimal.RequireFromString("35.50")))
	got, err := activities.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("35.5")))
	assert.ErrorIs(t, activities.UpdatePrice(ctx, 9999, decimal.NewFromInt(1)), repository.ErrNotFound)

	res, err := db.ExecContext(ctx, `INSERT INTO photographers (name, phone, is_active) VALUES (?, ?, 1)`, "王摄影", "138")
	require.NoError(t, err)
	pid, err := res.LastInsertId()
	require.NoError(t, err)
	p, err := photographers.GetByID(ctx, uint64(pid))
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	_, err = photographers.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	user := &model.User{Nickname: "摄影师", Role: model.RolePhotographer, PhotographerID: uint64(pid), Token: "tok-1"}
	require.NoError(t, users.Create(ctx, user))
	byToken, err := users.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)
	assert.Equal(t, model.RolePhotographer, byToken.Role)
	_, err = users.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReplaceCertificate(t *testing.T) {
	assert.Equal(t, model.StringList{"a", "new"}, repository.ReplaceCertificate(model.StringList{"a", "old"}, "old", "new"))
	assert.Equal(t, model.StringList{"a", "b", "new"}, repository.ReplaceCertificate(model.StringList{"a", "b"}, "old", "new"))
	assert.Equal(t, model.StringList{"new"}, repository.ReplaceCertificate(nil, "old", "new"))
}

package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kidphoto/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitWork(t *testing.T) {
	f := newFixture(t)
	unpaid := f.createOrder(t, 1, f.idPhoto, "小明")

	_, err := f.workflow.SubmitWork(f.ctx, unpaid.ID, f.photographer.ID, []string{"p1.jpg"}, "")
	assert.True(t, errors.Is(err, ErrInvalidState))

	order := f.paidOrder(t, 1, f.idPhoto, "小红")

	_, err = f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID+100, []string{"p1.jpg"}, "")
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{" ", ""}, "")
	assert.True(t, errors.Is(err, ErrValidation))

	got, err := f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"p1.jpg", "p2.jpg"}, "已精修")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReview, got.Status)
	assert.Equal(t, model.StringList{"p1.jpg", "p2.jpg"}, got.Photos)
	assert.Equal(t, "已精修", got.PhotographerNote)
	assert.True(t, got.SubmittedAt.Valid)

	// 待审核期间可以重新提交
	got, err = f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"p3.jpg"}, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReview, got.Status)
	assert.Equal(t, model.StringList{"p3.jpg"}, f.reload(t, order.ID).Photos)
	assert.Equal(t, 2, f.bus.count(EventOrderSubmitted))
}

func TestAdminReject_KeepsPhotosAndHidesHistoryFromParent(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t, 1, f.idPhoto, "小明")
	_, err := f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"p1.jpg", "p2.jpg"}, "")
	require.NoError(t, err)

	_, err = f.workflow.AdminReview(f.ctx, order.ID, false, "太暗")
	assert.True(t, errors.Is(err, ErrValidation))

	got, err := f.workflow.AdminReview(f.ctx, order.ID, false, "背景不是纯色请重拍")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, model.StringList{"p1.jpg", "p2.jpg"}, got.Photos)
	assert.Equal(t, model.RejectAdmin, got.RejectType)
	assert.Equal(t, "背景不是纯色请重拍", got.RejectReason)
	assert.Equal(t, 0, got.RejectCount)
	assert.True(t, got.RejectedAt.Valid)

	adminView, err := f.history.AdminView(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	assert.Equal(t, model.RejectAdmin, adminView[0].RejectType)
	assert.Equal(t, model.StringList{"p1.jpg", "p2.jpg"}, adminView[0].Photos)

	parentView, err := f.history.ParentView(f.ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, parentView)

	_, err = f.history.ParentView(f.ctx, order.ID, 2)
	assert.True(t, errors.Is(err, ErrForbidden))

	// 重新提交清除驳回原因
	got, err = f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"p4.jpg"}, "")
	require.NoError(t, err)
	assert.Empty(t, got.RejectReason)
	assert.Equal(t, model.RejectNone, got.RejectType)
}

func TestAdminReview_OnlyFromPendingReview(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t, 1, f.idPhoto, "小明")

	_, err := f.workflow.AdminReview(f.ctx, order.ID, true, "")
	assert.True(t, errors.Is(err, ErrInvalidState))
	_, err = f.workflow.AdminReview(f.ctx, order.ID, false, "背景不是纯色请重拍")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestUserReject_ApproveThenReject(t *testing.T) {
	f := newFixture(t)
	order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小明")
	assert.Equal(t, model.StatusPendingConfirm, order.Status)
	assert.True(t, order.ReviewedAt.Valid)

	res, err := f.workflow.UserReject(f.ctx, order.ID, 1, "孩子眼睛闭上了")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.NewStatus)
	assert.Equal(t, 2, res.RemainingAttempts)
	assert.Equal(t, 1, res.Order.RejectCount)
	assert.Equal(t, model.RejectUser, res.Order.RejectType)
	assert.Equal(t, model.StringList{"final/cert.jpg", "final/2.jpg"}, res.Order.Photos)

	parentView, err := f.history.ParentView(f.ctx, order.ID, 1)
	require.NoError(t, err)
	require.Len(t, parentView, 1)
	assert.Equal(t, model.RejectUser, parentView[0].RejectType)
	assert.Equal(t, "孩子眼睛闭上了", parentView[0].RejectReason)
}

func TestUserReject_Validation(t *testing.T) {
	f := newFixture(t)
	paid := f.paidOrder(t, 1, f.idPhoto, "小明")

	_, err := f.workflow.UserReject(f.ctx, paid.ID, 1, "孩子眼睛闭上了")
	assert.True(t, errors.Is(err, ErrInvalidState))

	order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小红")
	_, err = f.workflow.UserReject(f.ctx, order.ID, 2, "孩子眼睛闭上了")
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.workflow.UserReject(f.ctx, order.ID, 1, "不好看")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, f.reload(t, order.ID).RejectCount)
}

func TestUserReject_LimitThenConfirm(t *testing.T) {
	f := newFixture(t)
	order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小明")

	for i := 1; i <= model.MaxRejectCount; i++ {
		res, err := f.workflow.UserReject(f.ctx, order.ID, 1, "请再修一下肤色")
		require.NoError(t, err)
		assert.Equal(t, i, res.Order.RejectCount)
		assert.Equal(t, model.MaxRejectCount-i, res.RemainingAttempts)

		_, err = f.workflow.SubmitWork(f.ctx, order.ID, f.photographer.ID, []string{"final/cert.jpg"}, "")
		require.NoError(t, err)
		_, err = f.workflow.AdminReview(f.ctx, order.ID, true, "")
		require.NoError(t, err)
		assert.Equal(t, i, f.reload(t, order.ID).RejectCount)
	}

	// 第4次驳回：即使原因过短也先报次数上限
	_, err := f.workflow.UserReject(f.ctx, order.ID, 1, "不行")
	assert.True(t, errors.Is(err, ErrRejectLimitExceeded))
	_, err = f.workflow.UserReject(f.ctx, order.ID, 1, "请再修一下肤色")
	assert.True(t, errors.Is(err, ErrRejectLimitExceeded))

	got := f.reload(t, order.ID)
	assert.Equal(t, model.StatusPendingConfirm, got.Status)
	assert.Equal(t, model.MaxRejectCount, got.RejectCount)

	res, err := f.workflow.UserConfirm(f.ctx, order.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.ArchiveCreated)
	assert.Equal(t, model.StatusCompleted, res.Order.Status)

	records, err := f.history.ParentView(f.ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Len(t, records, model.MaxRejectCount)
}

func TestUserReject_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小明")

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.UserReject(f.ctx, order.ID, 1, "请再修一下肤色")
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, f.reload(t, order.ID).RejectCount)
	records, err := f.history.AdminView(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUserConfirm(t *testing.T) {
	f := newFixture(t)

	t.Run("identity photo creates archive", func(t *testing.T) {
		order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小明")
		res, err := f.workflow.UserConfirm(f.ctx, order.ID, 1)
		require.NoError(t, err)
		assert.True(t, res.ArchiveCreated)
		assert.Equal(t, "20250001", res.StudentID)
		assert.Empty(t, res.ArchiveWarning)
		assert.True(t, res.Order.ConfirmedAt.Valid)
		assert.Equal(t, "20250001", f.reload(t, order.ID).StudentID.String)
		assert.Equal(t, 1, f.bus.count(EventStudentArchived))

		_, err = f.workflow.UserConfirm(f.ctx, order.ID, 1)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("portrait has no archive", func(t *testing.T) {
		order := f.pendingConfirmOrder(t, 1, f.portrait, "小红")
		res, err := f.workflow.UserConfirm(f.ctx, order.ID, 1)
		require.NoError(t, err)
		assert.True(t, res.Completed)
		assert.False(t, res.ArchiveCreated)
		assert.Empty(t, res.StudentID)
	})

	t.Run("other parent", func(t *testing.T) {
		order := f.pendingConfirmOrder(t, 1, f.idPhoto, "小刚")
		_, err := f.workflow.UserConfirm(f.ctx, order.ID, 2)
		assert.True(t, errors.Is(err, ErrForbidden))
	})
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	_, err := f.workflow.CancelOrder(f.ctx, order.ID, 2)
	assert.True(t, errors.Is(err, ErrForbidden))

	got, err := f.workflow.CancelOrder(f.ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.workflow.CancelOrder(f.ctx, order.ID, 1)
	assert.True(t, errors.Is(err, ErrInvalidState))

	paid := f.paidOrder(t, 1, f.idPhoto, "小红")
	_, err = f.workflow.CancelOrder(f.ctx, paid.ID, 1)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestAfterSale(t *testing.T) {
	f := newFixture(t)
	order := f.pendingConfirmOrder(t, 1, f.portrait, "小明")
	_, err := f.workflow.UserConfirm(f.ctx, order.ID, 1)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	escalatedAt := f.clock.Now()
	got, err := f.workflow.Escalate(f.ctx, order.ID, "家长反馈照片冲印有色差")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAfterSale, got.Status)
	assert.Equal(t, escalatedAt, got.EscalatedAt.Time)
	assert.Equal(t, escalatedAt, got.UpdatedAt)

	f.clock.Advance(time.Minute)
	resumedAt := f.clock.Now()
	got, err = f.workflow.Resume(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, resumedAt, got.ResumedAt.Time)

	f.clock.Advance(time.Minute)
	refundedAt := f.clock.Now()
	got, err = f.workflow.Refund(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)
	assert.Equal(t, refundedAt, got.RefundedAt.Time)

	stored := f.reload(t, order.ID)
	assert.True(t, stored.EscalatedAt.Valid)
	assert.Equal(t, resumedAt, stored.ResumedAt.Time)
	assert.Equal(t, refundedAt, stored.RefundedAt.Time)
	assert.Equal(t, refundedAt, stored.UpdatedAt)

	_, err = f.workflow.Escalate(f.ctx, order.ID, "")
	assert.True(t, errors.Is(err, ErrInvalidState))

	unpaid := f.createOrder(t, 1, f.portrait, "小红")
	_, err = f.workflow.Refund(f.ctx, unpaid.ID)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

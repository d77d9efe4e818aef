package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kidphoto/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	applied, err := f.payments.ConfirmPayment(f.ctx, order.OrderNo, "tx-1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = f.payments.ConfirmPayment(f.ctx, order.OrderNo, "tx-1")
	require.NoError(t, err)
	assert.False(t, applied)

	got := f.reload(t, order.ID)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "tx-1", got.TradeNo.String)
	assert.True(t, got.PaidAt.Valid)
	assert.Equal(t, 1, f.bus.count(EventOrderPaid))
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, err := f.payments.ConfirmPayment(f.ctx, order.OrderNo, fmt.Sprintf("tx-%d", i))
			assert.NoError(t, err)
			if applied {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, f.bus.count(EventOrderPaid))
	assert.Equal(t, model.PaymentPaid, f.reload(t, order.ID).PaymentStatus)
}

func TestConfirmPayment_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.ConfirmPayment(f.ctx, "KP-missing", "tx")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConfirmPayment_LateButStillPending(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	// 超过支付时限但还没有任何读取或扫描把它取消
	f.clock.Advance(40 * time.Minute)
	applied, err := f.payments.ConfirmPayment(f.ctx, order.OrderNo, "tx-late")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.StatusInProgress, f.reload(t, order.ID).Status)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	_, err := f.payments.CreatePaymentIntent(f.ctx, order.OrderNo, 2, 2000)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.payments.CreatePaymentIntent(f.ctx, "KP-missing", 1, 2000)
	assert.True(t, errors.Is(err, ErrNotFound))

	first, err := f.payments.CreatePaymentIntent(f.ctx, order.OrderNo, 1, 2000)
	require.NoError(t, err)
	second, err := f.payments.CreatePaymentIntent(f.ctx, order.OrderNo, 1, 2000)
	require.NoError(t, err)
	assert.Equal(t, first.Package, second.Package)
	assert.Equal(t, 1, f.gateway.PrepayCount())

	_, err = f.payments.ConfirmPayment(f.ctx, order.OrderNo, "tx")
	require.NoError(t, err)
	_, err = f.payments.CreatePaymentIntent(f.ctx, order.OrderNo, 1, 2000)
	assert.True(t, errors.Is(err, ErrAlreadyPaid))
}

func TestCreatePaymentIntent_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")
	f.gateway.Err = errors.New("connection refused")

	_, err := f.payments.CreatePaymentIntent(f.ctx, order.OrderNo, 1, 2000)
	require.Error(t, err)
	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, model.PaymentUnpaid, f.reload(t, order.ID).PaymentStatus)
}

func notifyBody(orderNo string, total int64, state string) []byte {
	return []byte(fmt.Sprintf(`{"out_trade_no":%q,"transaction_id":"wx-%s","trade_state":%q,"amount":{"total":%d}}`,
		orderNo, orderNo, state, total))
}

func TestHandleNotify(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, 1, f.idPhoto, "小明")

	t.Run("non success is ignored", func(t *testing.T) {
		require.NoError(t, f.payments.HandleNotify(f.ctx, notifyBody(order.OrderNo, 2000, "NOTPAY"), "1", "n", "sig"))
		assert.Equal(t, model.PaymentUnpaid, f.reload(t, order.ID).PaymentStatus)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		err := f.payments.HandleNotify(f.ctx, notifyBody(order.OrderNo, 1, "SUCCESS"), "1", "n", "sig")
		assert.True(t, errors.Is(err, ErrAmountMismatch))
		assert.Equal(t, model.PaymentUnpaid, f.reload(t, order.ID).PaymentStatus)
	})

	t.Run("bad signature", func(t *testing.T) {
		f.gateway.VerifyErr = errors.New("bad sig")
		defer func() { f.gateway.VerifyErr = nil }()
		err := f.payments.HandleNotify(f.ctx, notifyBody(order.OrderNo, 2000, "SUCCESS"), "1", "n", "sig")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("malformed body keeps parser message", func(t *testing.T) {
		err := f.payments.HandleNotify(f.ctx, []byte(`{"out_trade_no":%}`), "1", "n", "sig")
		assert.Equal(t, KindValidation, KindOf(err))
		assert.Contains(t, err.Error(), "'%'")
		assert.NotContains(t, err.Error(), "%!")
	})

	t.Run("success marks paid", func(t *testing.T) {
		require.NoError(t, f.payments.HandleNotify(f.ctx, notifyBody(order.OrderNo, 2000, "SUCCESS"), "1", "n", "sig"))
		got := f.reload(t, order.ID)
		assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
		assert.Equal(t, "wx-"+order.OrderNo, got.TradeNo.String)

		// 通道重复回调
		require.NoError(t, f.payments.HandleNotify(f.ctx, notifyBody(order.OrderNo, 2000, "SUCCESS"), "1", "n", "sig"))
		assert.Equal(t, 1, f.bus.count(EventOrderPaid))
	})
}

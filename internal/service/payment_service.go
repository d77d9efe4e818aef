package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/pkg/logger"
	"kidphoto/pkg/payment"
)

// credentialTTL 支付参数缓存时间，小于支付通道 prepay_id 的两小时有效期
const credentialTTL = 110 * time.Minute

// PaymentService 支付服务：生成支付参数、确认支付、处理回调
type PaymentService struct {
	orders  *OrderService
	repo    OrderRepository
	gateway PaymentGateway
	cache   CredentialCache
	events  *EventDispatcher
	logger  *logger.Logger
	now     func() time.Time
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	orders *OrderService,
	repo OrderRepository,
	gateway PaymentGateway,
	cache CredentialCache,
	events *EventDispatcher,
	logger *logger.Logger,
) *PaymentService {
	return &PaymentService{
		orders:  orders,
		repo:    repo,
		gateway: gateway,
		cache:   cache,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// CreatePaymentIntent 校验金额后返回前端支付参数，不会修改订单支付状态。
// ownerID 为0时不校验归属。
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, orderNo string, ownerID uint64, claimedFen int64) (*payment.Credentials, error) {
	order, err := s.orders.GetOrderByNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if ownerID != 0 && order.OwnerID != ownerID {
		return nil, newError(KindForbidden, constants.ErrNotOrderOwner)
	}
	if order.PaymentStatus == model.PaymentPaid {
		return nil, newError(KindAlreadyPaid, constants.ErrOrderAlreadyPaid)
	}
	if order.Status != model.StatusPendingPayment {
		return nil, invalidState(order.Status, model.EventPay)
	}

	expected := order.AmountFen()
	if claimedFen != expected {
		s.logger.Warn("支付金额不一致", "order_no", orderNo, "expected", expected, "claimed", claimedFen)
		return nil, newError(KindAmountMismatch, constants.ErrAmountMismatch)
	}

	if s.cache != nil {
		creds, err := s.cache.Get(ctx, orderNo)
		if err != nil {
			s.logger.Warn("读取支付参数缓存失败", "order_no", orderNo, "error", err)
		} else if creds != nil {
			return creds, nil
		}
	}

	creds, err := s.gateway.Prepay(ctx, payment.PrepayRequest{
		OrderNo:     order.OrderNo,
		Description: order.ActivityName,
		AmountFen:   expected,
	})
	if err != nil {
		s.logger.Error("支付下单失败", "order_no", orderNo, "error", err)
		return nil, fmt.Errorf("%s: %w", constants.ErrPaymentUnavailable, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orderNo, creds, credentialTTL); err != nil {
			s.logger.Warn("缓存支付参数失败", "order_no", orderNo, "error", err)
		}
	}
	return creds, nil
}

// ConfirmPayment 确认支付，可重复调用。applied 表示本次调用是否完成了状态迁移。
// 待支付订单即使已过支付时限也接受付款；已取消的订单返回状态错误并记录，需人工退款。
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderNo, tradeNo string) (bool, error) {
	order, err := s.repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return false, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	if order.PaymentStatus == model.PaymentPaid {
		return false, nil
	}
	if order.Status != model.StatusPendingPayment {
		s.logger.Error("订单非待支付状态收到付款，需人工退款", "order_no", orderNo, "status", order.Status, "trade_no", tradeNo)
		return false, invalidState(order.Status, model.EventPay)
	}

	now := s.now()
	paid := model.PaymentPaid
	applied, err := transition(ctx, s.repo, order, model.EventPay,
		model.OrderGuard{PaymentStatus: model.PaymentUnpaid},
		model.OrderUpdate{PaymentStatus: &paid, TradeNo: &tradeNo, PaidAt: &now, UpdatedAt: now})
	if err != nil {
		return false, err
	}

	if !applied {
		latest, err := s.repo.GetByOrderNo(ctx, orderNo)
		if err != nil {
			return false, fmt.Errorf("获取订单失败: %w", err)
		}
		if latest.PaymentStatus == model.PaymentPaid {
			return false, nil
		}
		s.logger.Error("订单在确认支付时已被取消，需人工退款", "order_no", orderNo, "status", latest.Status, "trade_no", tradeNo)
		return false, invalidState(latest.Status, model.EventPay)
	}

	s.logger.Info("订单支付成功", "order_no", orderNo, "trade_no", tradeNo, "amount", order.LockedPrice.StringFixed(2))
	s.events.Dispatch(newOrderEvent(EventOrderPaid, order, now))
	return true, nil
}

// HandleNotify 处理支付通道回调
func (s *PaymentService) HandleNotify(ctx context.Context, body []byte, timestamp, nonce, signature string) error {
	if err := s.gateway.VerifyNotify(body, timestamp, nonce, signature); err != nil {
		s.logger.Warn("支付回调签名校验失败", "error", err)
		return newError(KindValidation, constants.ErrInvalidNotify)
	}

	notify, err := payment.ParseNotify(body)
	if err != nil {
		return newError(KindValidation, err.Error())
	}
	if notify.TradeState != payment.TradeStateSuccess {
		s.logger.Info("忽略非成功支付回调", "order_no", notify.OutTradeNo, "trade_state", notify.TradeState)
		return nil
	}

	order, err := s.repo.GetByOrderNo(ctx, notify.OutTradeNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("支付回调订单不存在", "order_no", notify.OutTradeNo, "trade_no", notify.TransactionID)
		}
		return notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	if notify.Amount.Total != order.AmountFen() {
		s.logger.Error("支付回调金额不一致", "order_no", order.OrderNo, "expected", order.AmountFen(), "actual", notify.Amount.Total)
		return newError(KindAmountMismatch, constants.ErrAmountMismatch)
	}

	_, err = s.ConfirmPayment(ctx, notify.OutTradeNo, notify.TransactionID)
	return err
}

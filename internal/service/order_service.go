package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/pkg/logger"

	"k8s.io/apimachinery/pkg/util/rand"
)

const creationLockTTL = 30 * time.Second

// OrderForm 下单表单
type OrderForm struct {
	ChildName     string
	GuardianName  string
	GuardianPhone string
	Remark        string
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	OwnerID        uint64
	ActivityID     uint64
	PhotographerID uint64
	Form           OrderForm
	LifePhotos     []string
	IdempotencyKey string
}

// OrderService 订单服务：下单锁价、查询与超时取消
type OrderService struct {
	orders         OrderRepository
	activities     ActivityRepository
	photographers  PhotographerRepository
	locker         CreationLocker
	events         *EventDispatcher
	logger         *logger.Logger
	paymentTimeout time.Duration
	now            func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(
	orders OrderRepository,
	activities ActivityRepository,
	photographers PhotographerRepository,
	locker CreationLocker,
	events *EventDispatcher,
	logger *logger.Logger,
	paymentTimeout time.Duration,
) *OrderService {
	return &OrderService{
		orders:         orders,
		activities:     activities,
		photographers:  photographers,
		locker:         locker,
		events:         events,
		logger:         logger,
		paymentTimeout: paymentTimeout,
		now:            time.Now,
	}
}

// CreateOrder 创建订单并锁定价格
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	form := OrderForm{
		ChildName:     strings.TrimSpace(in.Form.ChildName),
		GuardianName:  strings.TrimSpace(in.Form.GuardianName),
		GuardianPhone: strings.TrimSpace(in.Form.GuardianPhone),
		Remark:        strings.TrimSpace(in.Form.Remark),
	}
	switch {
	case form.ChildName == "":
		return nil, newError(KindValidation, constants.ErrChildNameEmpty)
	case form.GuardianName == "":
		return nil, newError(KindValidation, constants.ErrGuardianNameEmpty)
	case form.GuardianPhone == "":
		return nil, newError(KindValidation, constants.ErrGuardianPhoneEmpty)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if existing, err := s.findByIdempotencyKey(ctx, in.OwnerID, key); err != nil || existing != nil {
			return existing, err
		}

		lockKey := fmt.Sprintf("order:create:%d:%s", in.OwnerID, key)
		acquired, err := s.locker.Acquire(ctx, lockKey, creationLockTTL)
		if err != nil {
			// 锁不可用时仍由唯一索引兜底
			s.logger.Warn("获取下单锁失败", "key", lockKey, "error", err)
		} else {
			if !acquired {
				return nil, newError(KindConflict, constants.ErrOrderCreating)
			}
			defer func() {
				if err := s.locker.Release(context.Background(), lockKey); err != nil {
					s.logger.Warn("释放下单锁失败", "key", lockKey, "error", err)
				}
			}()
			// 持锁后再查一次，上一个持锁请求可能刚刚完成
			if existing, err := s.findByIdempotencyKey(ctx, in.OwnerID, key); err != nil || existing != nil {
				return existing, err
			}
		}
	}

	photographer, err := s.photographers.GetByID(ctx, in.PhotographerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("获取摄影师失败: %w", err)
	}
	if photographer == nil || !photographer.IsActive {
		return nil, newError(KindNotFound, constants.ErrPhotographerNotFound)
	}

	activity, err := s.activities.GetByID(ctx, in.ActivityID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("获取活动失败: %w", err)
	}
	if activity == nil || !activity.IsActive {
		return nil, newError(KindNotFound, constants.ErrActivityNotFound)
	}

	now := s.now()
	order := &model.Order{
		OrderNo:        generateOrderNo(now),
		OwnerID:        in.OwnerID,
		PhotographerID: photographer.ID,
		ActivityID:     activity.ID,
		ActivityName:   activity.Name,
		Category:       activity.Category,
		IdentityPhoto:  activity.IdentityPhoto,
		ChildName:      form.ChildName,
		GuardianName:   form.GuardianName,
		GuardianPhone:  form.GuardianPhone,
		Remark:         form.Remark,
		LockedPrice:    activity.Price,
		PaymentStatus:  model.PaymentUnpaid,
		Status:         model.StatusPendingPayment,
		Photos:         model.StringList{},
		LifePhotos:     cleanPhotos(in.LifePhotos),
		IdempotencyKey: sql.NullString{String: key, Valid: key != ""},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		switch {
		case repository.IsDuplicateKey(err, repository.KeyOrderIdempotency):
			return s.findByIdempotencyKey(ctx, in.OwnerID, key)
		case repository.IsDuplicateKey(err, repository.KeyOrderNo):
			return nil, newError(KindConflict, constants.ErrOrderNoConflict)
		}
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}

	s.logger.Info("订单创建成功",
		"order_no", order.OrderNo,
		"owner_id", order.OwnerID,
		"activity_id", order.ActivityID,
		"locked_price", order.LockedPrice.StringFixed(2))
	return order, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, ownerID uint64, key string) (*model.Order, error) {
	order, err := s.orders.GetByIdempotencyKey(ctx, ownerID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询幂等订单失败: %w", err)
	}
	return s.expireIfOverdue(ctx, order)
}

// GetOrder 获取订单，待支付订单超时会在读取时取消
func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	return s.expireIfOverdue(ctx, order)
}

// GetOrderByNo 根据订单号获取订单
func (s *OrderService) GetOrderByNo(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	return s.expireIfOverdue(ctx, order)
}

// GetOwnedOrder 获取家长本人的订单
func (s *OrderService) GetOwnedOrder(ctx context.Context, id, ownerID uint64) (*model.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, newError(KindForbidden, constants.ErrNotOrderOwner)
	}
	return order, nil
}

// ListOrders 分页查询订单
func (s *OrderService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("查询订单列表失败: %w", err)
	}
	for i := range orders {
		o, err := s.expireIfOverdue(ctx, &orders[i])
		if err != nil {
			return nil, 0, err
		}
		orders[i] = *o
	}
	return orders, total, nil
}

// ExpireOverdue 批量取消超时未支付的订单，返回本次取消的数量
func (s *OrderService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	cutoff := s.now().Add(-s.paymentTimeout)
	orders, err := s.orders.ListExpiredPending(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("查询超时订单失败: %w", err)
	}

	expired := 0
	for i := range orders {
		applied, err := s.expire(ctx, &orders[i])
		if err != nil {
			return expired, err
		}
		if applied {
			expired++
		}
	}
	return expired, nil
}

// expireIfOverdue 超时的待支付订单转为已取消，返回最新的订单
func (s *OrderService) expireIfOverdue(ctx context.Context, order *model.Order) (*model.Order, error) {
	if !order.PaymentExpired(s.now(), s.paymentTimeout) {
		return order, nil
	}
	applied, err := s.expire(ctx, order)
	if err != nil {
		return nil, err
	}
	if applied {
		return order, nil
	}
	// 被并发请求抢先（支付或取消），以库中状态为准
	latest, err := s.orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	return latest, nil
}

func (s *OrderService) expire(ctx context.Context, order *model.Order) (bool, error) {
	now := s.now()
	applied, err := transition(ctx, s.orders, order, model.EventExpire,
		model.OrderGuard{PaymentStatus: model.PaymentUnpaid},
		model.OrderUpdate{CancelledAt: &now, UpdatedAt: now})
	if err != nil {
		return false, err
	}
	if applied {
		s.logger.Info("订单支付超时已取消", "order_no", order.OrderNo, "created_at", order.CreatedAt)
		s.events.Dispatch(newOrderEvent(EventOrderCancelled, order, now))
	}
	return applied, nil
}

// transition 按迁移表对订单做一次条件更新，成功时把更新写回 order
func transition(ctx context.Context, repo OrderRepository, order *model.Order, event model.OrderEvent, guard model.OrderGuard, update model.OrderUpdate) (bool, error) {
	to, ok := model.Next(order.Status, event)
	if !ok {
		return false, invalidState(order.Status, event)
	}
	guard.Status = order.Status
	update.Status = to

	applied, err := repo.Transition(ctx, order.ID, guard, update)
	if err != nil {
		return false, fmt.Errorf("更新订单状态失败: %w", err)
	}
	if applied {
		update.Apply(order)
	}
	return applied, nil
}

func invalidState(from model.OrderStatus, event model.OrderEvent) error {
	return newError(KindInvalidState, (&model.TransitionError{From: from, Event: event}).Error())
}

func notFoundOr(err error, msg, action string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, msg)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// generateOrderNo 订单号：KP + 秒级时间 + 3位毫秒 + 6位随机串
func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("KP%s%03d%s", now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond), rand.String(6))
}

func cleanPhotos(photos []string) model.StringList {
	out := model.StringList{}
	for _, p := range photos {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

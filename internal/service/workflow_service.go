package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/pkg/logger"
)

// minRejectReasonLen 驳回原因最少字数
const minRejectReasonLen = 5

// ConfirmResult 家长确认结果
type ConfirmResult struct {
	Order          *model.Order `json:"order"`
	Completed      bool         `json:"completed"`
	ArchiveCreated bool         `json:"archive_created"`
	StudentID      string       `json:"student_id,omitempty"`
	ArchiveWarning string       `json:"archive_warning,omitempty"`
}

// RejectResult 家长驳回结果
type RejectResult struct {
	Order             *model.Order      `json:"order"`
	NewStatus         model.OrderStatus `json:"new_status"`
	RemainingAttempts int               `json:"remaining_attempts"`
}

// WorkflowService 拍摄交付流程：提交、审核、确认、驳回、取消与售后
type WorkflowService struct {
	orders  *OrderService
	repo    OrderRepository
	history *HistoryService
	archive *ArchiveService
	events  *EventDispatcher
	logger  *logger.Logger
	now     func() time.Time
}

// NewWorkflowService 创建流程服务
func NewWorkflowService(
	orders *OrderService,
	repo OrderRepository,
	history *HistoryService,
	archive *ArchiveService,
	events *EventDispatcher,
	logger *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		orders:  orders,
		repo:    repo,
		history: history,
		archive: archive,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// SubmitWork 摄影师提交（或重新提交）照片，覆盖当前照片并清除驳回原因，驳回次数保留
func (s *WorkflowService) SubmitWork(ctx context.Context, orderID, photographerID uint64, photos []string, note string) (*model.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PhotographerID != photographerID {
		return nil, newError(KindForbidden, constants.ErrNotAssigned)
	}
	if _, ok := model.Next(order.Status, model.EventSubmit); !ok {
		return nil, invalidState(order.Status, model.EventSubmit)
	}
	cleaned := cleanPhotos(photos)
	if len(cleaned) == 0 {
		return nil, newError(KindValidation, constants.ErrPhotosEmpty)
	}

	now := s.now()
	note = strings.TrimSpace(note)
	empty := ""
	none := model.RejectNone
	applied, err := transition(ctx, s.repo, order, model.EventSubmit, model.OrderGuard{}, model.OrderUpdate{
		Photos:           &cleaned,
		PhotographerNote: &note,
		RejectReason:     &empty,
		RejectType:       &none,
		SubmittedAt:      &now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}

	s.logger.Info("摄影师提交照片", "order_no", order.OrderNo, "photographer_id", photographerID, "photos", len(cleaned))
	s.events.Dispatch(newOrderEvent(EventOrderSubmitted, order, now))
	return order, nil
}

// AdminReview 管理员审核：通过进入待确认，驳回退回摄影师。
// 管理员驳回不计入家长驳回次数，且历史记录只对管理员可见。
func (s *WorkflowService) AdminReview(ctx context.Context, orderID uint64, approve bool, reason string) (*model.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if approve {
		applied, err := transition(ctx, s.repo, order, model.EventApprove, model.OrderGuard{},
			model.OrderUpdate{ReviewedAt: &now, UpdatedAt: now})
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
		}
		s.logger.Info("审核通过", "order_no", order.OrderNo)
		s.events.Dispatch(newOrderEvent(EventOrderReviewed, order, now))
		return order, nil
	}

	if _, ok := model.Next(order.Status, model.EventAdminReject); !ok {
		return nil, invalidState(order.Status, model.EventAdminReject)
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minRejectReasonLen {
		return nil, newError(KindValidation, constants.ErrRejectReasonTooShort)
	}

	snapshot := s.snapshot(order, model.RejectAdmin, reason, now)
	rejectType := model.RejectAdmin
	applied, err := transition(ctx, s.repo, order, model.EventAdminReject, model.OrderGuard{}, model.OrderUpdate{
		RejectReason: &reason,
		RejectType:   &rejectType,
		RejectedAt:   &now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}

	s.appendHistory(ctx, order, snapshot)
	s.logger.Info("审核驳回", "order_no", order.OrderNo, "reason", reason)
	s.events.Dispatch(newOrderEvent(EventOrderRejected, order, now))
	return order, nil
}

// UserConfirm 家长确认验收；证件照订单在确认成功后生成学生档案。
// 档案生成失败不影响订单完成，结果中携带提示。
func (s *WorkflowService) UserConfirm(ctx context.Context, orderID, ownerID uint64) (*ConfirmResult, error) {
	order, err := s.orders.GetOwnedOrder(ctx, orderID, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	applied, err := transition(ctx, s.repo, order, model.EventUserConfirm, model.OrderGuard{},
		model.OrderUpdate{ConfirmedAt: &now, UpdatedAt: now})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}

	s.logger.Info("家长确认订单", "order_no", order.OrderNo, "owner_id", ownerID)
	s.events.Dispatch(newOrderEvent(EventOrderCompleted, order, now))

	result := &ConfirmResult{Order: order, Completed: true}
	if !order.IdentityPhoto {
		return result, nil
	}

	student, created, err := s.archive.Generate(ctx, order)
	if err != nil {
		s.logger.Error("生成学生档案失败", "order_no", order.OrderNo, "error", err)
		result.ArchiveWarning = "订单已完成，学生档案生成失败，请联系管理员处理"
		return result, nil
	}
	if student != nil {
		result.StudentID = student.StudentID
	}
	result.ArchiveCreated = created
	return result, nil
}

// UserReject 家长驳回，最多3次
func (s *WorkflowService) UserReject(ctx context.Context, orderID, ownerID uint64, reason string) (*RejectResult, error) {
	order, err := s.orders.GetOwnedOrder(ctx, orderID, ownerID)
	if err != nil {
		return nil, err
	}
	if _, ok := model.Next(order.Status, model.EventUserReject); !ok {
		return nil, invalidState(order.Status, model.EventUserReject)
	}
	if order.RejectCount >= model.MaxRejectCount {
		return nil, newError(KindRejectLimitExceeded, constants.ErrRejectLimitExceeded)
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minRejectReasonLen {
		return nil, newError(KindValidation, constants.ErrRejectReasonTooShort)
	}

	now := s.now()
	snapshot := s.snapshot(order, model.RejectUser, reason, now)
	expected := order.RejectCount
	count := order.RejectCount + 1
	rejectType := model.RejectUser
	applied, err := transition(ctx, s.repo, order, model.EventUserReject, model.OrderGuard{RejectCount: &expected}, model.OrderUpdate{
		RejectReason: &reason,
		RejectType:   &rejectType,
		RejectCount:  &count,
		RejectedAt:   &now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}

	s.appendHistory(ctx, order, snapshot)
	s.logger.Info("家长驳回", "order_no", order.OrderNo, "reject_count", order.RejectCount)
	s.events.Dispatch(newOrderEvent(EventOrderRejected, order, now))

	return &RejectResult{
		Order:             order,
		NewStatus:         order.Status,
		RemainingAttempts: order.RemainingRejects(),
	}, nil
}

// CancelOrder 家长取消待支付订单
func (s *WorkflowService) CancelOrder(ctx context.Context, orderID, ownerID uint64) (*model.Order, error) {
	order, err := s.orders.GetOwnedOrder(ctx, orderID, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	applied, err := transition(ctx, s.repo, order, model.EventCancel,
		model.OrderGuard{PaymentStatus: model.PaymentUnpaid},
		model.OrderUpdate{CancelledAt: &now, UpdatedAt: now})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}

	s.logger.Info("订单已取消", "order_no", order.OrderNo, "owner_id", ownerID)
	s.events.Dispatch(newOrderEvent(EventOrderCancelled, order, now))
	return order, nil
}

// Escalate 转入售后处理
func (s *WorkflowService) Escalate(ctx context.Context, orderID uint64, note string) (*model.Order, error) {
	order, err := s.adminTransition(ctx, orderID, model.EventEscalate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("订单转入售后", "order_no", order.OrderNo, "note", strings.TrimSpace(note))
	s.events.Dispatch(newOrderEvent(EventOrderAfterSale, order, order.UpdatedAt))
	return order, nil
}

// Resume 售后处理完毕，回到拍摄流程
func (s *WorkflowService) Resume(ctx context.Context, orderID uint64) (*model.Order, error) {
	order, err := s.adminTransition(ctx, orderID, model.EventResume)
	if err != nil {
		return nil, err
	}
	s.logger.Info("售后订单恢复处理", "order_no", order.OrderNo)
	return order, nil
}

// Refund 标记订单已退款，退款资金由财务线下处理
func (s *WorkflowService) Refund(ctx context.Context, orderID uint64) (*model.Order, error) {
	order, err := s.adminTransition(ctx, orderID, model.EventRefund)
	if err != nil {
		return nil, err
	}
	s.logger.Info("订单已退款", "order_no", order.OrderNo, "amount", order.LockedPrice.StringFixed(2))
	s.events.Dispatch(newOrderEvent(EventOrderRefunded, order, order.UpdatedAt))
	return order, nil
}

func (s *WorkflowService) adminTransition(ctx context.Context, orderID uint64, event model.OrderEvent) (*model.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	update := model.OrderUpdate{UpdatedAt: now}
	switch event {
	case model.EventEscalate:
		update.EscalatedAt = &now
	case model.EventResume:
		update.ResumedAt = &now
	case model.EventRefund:
		update.RefundedAt = &now
	}
	applied, err := transition(ctx, s.repo, order, event, model.OrderGuard{}, update)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindInvalidState, constants.ErrOrderStatusChanged)
	}
	return order, nil
}

// snapshot 在迁移前截取被驳回的提交内容
func (s *WorkflowService) snapshot(order *model.Order, rejectType model.RejectType, reason string, now time.Time) *model.HistoryRecord {
	submittedAt := now
	if order.SubmittedAt.Valid {
		submittedAt = order.SubmittedAt.Time
	}
	return &model.HistoryRecord{
		OrderID:      order.ID,
		Photos:       order.Photos.Clone(),
		RejectType:   rejectType,
		RejectReason: reason,
		SubmittedAt:  submittedAt,
		RejectedAt:   now,
		CreatedAt:    now,
	}
}

// appendHistory 状态已迁移，历史写入失败只记录日志，日志中保留完整快照便于补录
func (s *WorkflowService) appendHistory(ctx context.Context, order *model.Order, record *model.HistoryRecord) {
	if err := s.history.Append(ctx, record); err != nil {
		s.logger.Error("写入驳回历史失败",
			"order_no", order.OrderNo,
			"reject_type", record.RejectType,
			"reason", record.RejectReason,
			"photos", []string(record.Photos),
			"error", err)
	}
}

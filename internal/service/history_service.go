package service

import (
	"context"
	"fmt"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/pkg/logger"
)

// HistoryService 提交-驳回历史
type HistoryService struct {
	history HistoryRepository
	orders  OrderRepository
	logger  *logger.Logger
}

// NewHistoryService 创建历史服务
func NewHistoryService(history HistoryRepository, orders OrderRepository, logger *logger.Logger) *HistoryService {
	return &HistoryService{history: history, orders: orders, logger: logger}
}

// Append 追加历史记录，仅由驳回流程调用
func (s *HistoryService) Append(ctx context.Context, record *model.HistoryRecord) error {
	if err := s.history.Append(ctx, record); err != nil {
		return fmt.Errorf("写入历史记录失败: %w", err)
	}
	return nil
}

// AdminView 管理员查看全部历史
func (s *HistoryService) AdminView(ctx context.Context, orderID uint64) ([]model.HistoryRecord, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	records, err := s.history.ListByOrder(ctx, orderID, model.RejectNone)
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	return records, nil
}

// ParentView 家长只能看到自己驳回的记录
func (s *HistoryService) ParentView(ctx context.Context, orderID, ownerID uint64) ([]model.HistoryRecord, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, constants.ErrOrderNotFound, "获取订单失败")
	}
	if order.OwnerID != ownerID {
		return nil, newError(KindForbidden, constants.ErrNotOrderOwner)
	}
	records, err := s.history.ListByOrder(ctx, orderID, model.RejectUser)
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	return records, nil
}

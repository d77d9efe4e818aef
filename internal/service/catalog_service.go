package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/pkg/logger"

	"github.com/shopspring/decimal"
)

// CatalogService 拍摄活动目录
type CatalogService struct {
	activities ActivityRepository
	logger     *logger.Logger
	now        func() time.Time
}

// NewCatalogService 创建活动目录服务
func NewCatalogService(activities ActivityRepository, logger *logger.Logger) *CatalogService {
	return &CatalogService{activities: activities, logger: logger, now: time.Now}
}

// ListActivities 获取活动列表
func (s *CatalogService) ListActivities(ctx context.Context, activeOnly bool) ([]model.Activity, error) {
	activities, err := s.activities.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("获取活动列表失败: %w", err)
	}
	return activities, nil
}

// CreateActivity 创建活动
func (s *CatalogService) CreateActivity(ctx context.Context, activity *model.Activity) error {
	activity.Name = strings.TrimSpace(activity.Name)
	if activity.Name == "" || !activity.Price.IsPositive() {
		return newError(KindValidation, constants.ErrInvalidParams)
	}
	activity.IdentityPhoto = activity.Category == model.CategoryIdentityPhoto
	activity.Price = activity.Price.Round(2)
	now := s.now()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	if err := s.activities.Create(ctx, activity); err != nil {
		return fmt.Errorf("创建活动失败: %w", err)
	}
	s.logger.Info("活动创建成功", "activity_id", activity.ID, "price", activity.Price.StringFixed(2))
	return nil
}

// UpdatePrice 调整活动价格，只影响之后创建的订单
func (s *CatalogService) UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	if !price.IsPositive() {
		return newError(KindValidation, constants.ErrInvalidParams)
	}
	if err := s.activities.UpdatePrice(ctx, id, price.Round(2)); err != nil {
		return notFoundOr(err, constants.ErrActivityNotFound, "更新活动价格失败")
	}
	s.logger.Info("活动价格已调整", "activity_id", id, "price", price.StringFixed(2))
	return nil
}

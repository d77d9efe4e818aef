package scheduler

import (
	"context"
	"sync"
	"time"

	"kidphoto/pkg/logger"
)

// 每轮最多处理的超时订单数
const sweepBatchSize = 200

// OrderExpirer 批量取消超时未支付的订单
type OrderExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// PaymentScheduler 支付超时扫描调度器
type PaymentScheduler struct {
	orders   OrderExpirer
	interval time.Duration
	logger   *logger.Logger
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPaymentScheduler 创建支付超时扫描调度器实例
func NewPaymentScheduler(orders OrderExpirer, interval time.Duration, logger *logger.Logger) *PaymentScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PaymentScheduler{
		orders:   orders,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动调度器
func (s *PaymentScheduler) Start() {
	go s.run()
	s.logger.Info("支付超时调度器启动", "interval", s.interval.String())
}

// Stop 停止调度器并等待当前一轮扫描结束
func (s *PaymentScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.logger.Info("支付超时调度器停止")
	})
}

func (s *PaymentScheduler) run() {
	defer close(s.done)

	// 立即运行一次，处理停机期间积压的订单
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.quit:
			return
		}
	}
}

// sweep 取消超时订单，一批处理满时继续下一批
func (s *PaymentScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	total := 0
	for {
		n, err := s.orders.ExpireOverdue(ctx, sweepBatchSize)
		if err != nil {
			s.logger.Error("超时订单扫描失败", "error", err)
			return
		}
		total += n
		if n < sweepBatchSize {
			break
		}
		select {
		case <-s.quit:
			return
		default:
		}
	}
	if total > 0 {
		s.logger.Info("超时订单扫描完成", "cancelled", total)
	}
}

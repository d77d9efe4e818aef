package service

import (
	"context"
	"time"

	"kidphoto/internal/model"
	"kidphoto/pkg/async"
	"kidphoto/pkg/logger"
)

// EventType 订单事件类型
type EventType string

const (
	EventOrderPaid       EventType = "order.paid"
	EventOrderSubmitted  EventType = "order.submitted"
	EventOrderReviewed   EventType = "order.reviewed"
	EventOrderRejected   EventType = "order.rejected"
	EventOrderCompleted  EventType = "order.completed"
	EventOrderCancelled  EventType = "order.cancelled"
	EventOrderAfterSale  EventType = "order.after_sale"
	EventOrderRefunded   EventType = "order.refunded"
	EventStudentArchived EventType = "student.archived"
)

// Event 订单事件
type Event struct {
	Type       EventType         `json:"type"`
	OrderID    uint64            `json:"order_id"`
	OrderNo    string            `json:"order_no"`
	OwnerID    uint64            `json:"owner_id"`
	Status     model.OrderStatus `json:"status"`
	RejectType model.RejectType  `json:"reject_type,omitempty"`
	StudentID  string            `json:"student_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func newOrderEvent(t EventType, o *model.Order, at time.Time) Event {
	return Event{
		Type:       t,
		OrderID:    o.ID,
		OrderNo:    o.OrderNo,
		OwnerID:    o.OwnerID,
		Status:     o.Status,
		RejectType: o.RejectType,
		OccurredAt: at,
	}
}

// EventDispatcher 通过异步工作器投递事件，投递失败不影响主流程
type EventDispatcher struct {
	bus    EventBus
	worker *async.Worker
	logger *logger.Logger
}

// NewEventDispatcher 创建事件分发器，worker 为 nil 时同步投递
func NewEventDispatcher(bus EventBus, worker *async.Worker, logger *logger.Logger) *EventDispatcher {
	return &EventDispatcher{bus: bus, worker: worker, logger: logger}
}

// Dispatch 投递事件
func (d *EventDispatcher) Dispatch(event Event) {
	if d == nil || d.bus == nil {
		return
	}

	publish := func(ctx context.Context) error {
		return d.bus.Publish(ctx, event)
	}

	if d.worker == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := publish(ctx); err != nil {
			d.logger.Error("投递订单事件失败", "type", event.Type, "order_no", event.OrderNo, "error", err)
		}
		return
	}

	if _, err := d.worker.Submit(async.Task{
		Name:     string(event.Type),
		Handler:  publish,
		Timeout:  5 * time.Second,
		RetryMax: 3,
	}); err != nil {
		d.logger.Warn("提交事件投递任务失败", "type", event.Type, "order_no", event.OrderNo, "error", err)
	}
}

package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"kidphoto/internal/service"

	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 的最小子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventProducer 订单事件写入 Kafka，同一订单的事件使用相同 key 以保证分区内有序
type OrderEventProducer struct {
	writer messageWriter
}

// NewOrderEventProducer 创建订单事件生产者
func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	return &OrderEventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish 投递事件
func (p *OrderEventProducer) Publish(ctx context.Context, event service.Event) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, msg)
}

func eventMessage(event service.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(event.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// Close 关闭生产者
func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}

package adapter

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/mq"
	"storefront/internal/service/checkout/domain"
)

// OrderNotifierKafkaAdapter 是 port.OrderNotifier 的 Kafka 实现。
// 事件以订单 hash 作为分区 Key，同一订单的事件保持有序。
type OrderNotifierKafkaAdapter struct {
	writer *kafka.Writer
}

func NewOrderNotifierKafkaAdapter(writer *kafka.Writer) *OrderNotifierKafkaAdapter {
	return &OrderNotifierKafkaAdapter{writer: writer}
}

func (a *OrderNotifierKafkaAdapter) OrderPlaced(ctx context.Context, event *domain.OrderPlaced) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderHash), eventBytes)
}

package notify

import (
	"context"

	"OIScanner/internal/domain/models"
	"OIScanner/pkg/kafka"
	applogger "OIScanner/pkg/logger"
)

// Kafka publishes accepted signals to a topic for downstream consumers.
// Messages are keyed by base asset so one asset's signals land on one
// partition in order.
type Kafka struct {
	producer *kafka.Producer
	topic    string
	logger   *applogger.Logger
}

func NewKafka(producer *kafka.Producer, topic string, logger *applogger.Logger) *Kafka {
	return &Kafka{
		producer: producer,
		topic:    topic,
		logger:   logger.With("kafka-notifier"),
	}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Deliver(ctx context.Context, s *models.Signal) bool {
	if err := k.producer.Publish(ctx, k.topic, []byte(s.Base), s); err != nil {
		k.logger.Error("signal publish failed",
			applogger.String("base", s.Base), applogger.Error(err))
		return false
	}
	return true
}

func (k *Kafka) Close() error { return k.producer.Close() }

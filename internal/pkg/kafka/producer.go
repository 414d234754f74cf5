package kafka

import (
	"Postpilot/internal/api/config"
	"Postpilot/internal/model"
	"Postpilot/internal/pkg/logger"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// PostEventMessage lifecycle event of a scheduled post as written to the event topic
type PostEventMessage struct {
	EventID         uint64              `json:"eventId"`
	ScheduledPostID uint64              `json:"scheduledPostId"`
	UserID          uint64              `json:"userId"`
	Status          model.PostStatus    `json:"status"`
	Type            model.PostEventType `json:"type"`
	Message         string              `json:"message"`
	Data            model.JSONMap       `json:"data,omitempty"`
	TraceID         string              `json:"traceId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// EventProducer forwards committed post events. Delivery is best effort.
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewEventProducer returns nil when no broker is configured
func NewEventProducer(cfg config.KafkaConfig) (*EventProducer, error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("Kafka brokers not configured, post events stay in the database only")
		return nil, nil
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewEventProducerWith(producer, cfg.EventTopic), nil
}

func NewEventProducerWith(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

// Notify publishes event keyed by its post so one post's events stay ordered
func (p *EventProducer) Notify(ctx context.Context, post *model.ScheduledPost, event *model.PostEvent) {
	if p == nil || post == nil || event == nil {
		return
	}
	payload, err := json.Marshal(PostEventMessage{
		EventID:         event.ID,
		ScheduledPostID: post.ID,
		UserID:          post.UserID,
		Status:          post.Status,
		Type:            event.Type,
		Message:         event.Message,
		Data:            event.Data,
		TraceID:         logger.TraceID(ctx),
		CreatedAt:       event.CreatedAt,
	})
	if err != nil {
		log.ErrorContext(ctx, "post event marshal failed", "err", err)
		return
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(post.ID, 10)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		log.WarnContext(ctx, "post event publish failed", "post_id", post.ID, "type", event.Type, "err", err)
	}
}

func (p *EventProducer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}

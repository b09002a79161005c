package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"research-assistant/internal/logger"
)

// Config holds the connection settings for the summary job queue
type Config struct {
	BootstrapServers string
	Topic            string
}

// Service wraps a Kafka writer for publishing summary jobs
type Service struct {
	config Config
	writer *kafka.Writer
}

// NewService creates a Kafka service with a shared async writer
func NewService(cfg Config) *Service {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.BootstrapServers, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Service{config: cfg, writer: writer}
}

// PublishSummaryJob serializes the message and writes it to the topic.
func (s *Service) PublishSummaryJob(message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"topic":     s.config.Topic,
			"operation": "kafka_publish",
		})
		return err
	}

	logger.Log.WithField("topic", s.config.Topic).Debug("Published summary job")
	return nil
}

// CreateConsumer returns a reader joined to the given consumer group.
func (s *Service) CreateConsumer(groupID string) (*kafka.Reader, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(s.config.BootstrapServers, ","),
		Topic:    s.config.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return reader, nil
}

// Close flushes and closes the writer.
func (s *Service) Close() error {
	return s.writer.Close()
}

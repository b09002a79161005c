package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"research-assistant/internal/config"
	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
	"research-assistant/internal/queue"
	"research-assistant/internal/services"
)

// SummaryWorker consumes summary jobs and refreshes conversation
// titles and summaries in the background.
type SummaryWorker struct {
	kafkaService *queue.Service
	processor    *services.SummaryJobProcessor
}

func NewSummaryWorker(kafkaService *queue.Service, processor *services.SummaryJobProcessor) *SummaryWorker {
	return &SummaryWorker{
		kafkaService: kafkaService,
		processor:    processor,
	}
}

func (w *SummaryWorker) processJob(ctx context.Context, message services.SummaryJobMessage) (retErr error) {
	// Setup panic recovery for this job
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": string(buf[:n]),
			}).Error("Worker panic in job processing")

			retErr = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	logger.Log.WithField("conversation_id", message.ConversationID).Info("Worker picked up summary job")
	return w.processor.Process(ctx, message)
}

func (w *SummaryWorker) Run(ctx context.Context) error {
	logger.Log.Info("Starting summary worker")

	consumer, err := w.kafkaService.CreateConsumer("summary-workers")
	if err != nil {
		return err
	}
	defer consumer.Close()

	logger.Log.Info("Worker ready to process summary jobs")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Context cancelled, stopping worker")
			return ctx.Err()
		default:
			message, err := consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.LogErrorWithStack(err, map[string]interface{}{
					"operation": "kafka_read_message",
				})
				continue
			}

			var jobMessage services.SummaryJobMessage
			if err := json.Unmarshal(message.Value, &jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"message_value": string(message.Value),
					"operation":     "parse_job_message",
				})
				continue
			}

			if err := w.processJob(ctx, jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"conversation_id": jobMessage.ConversationID,
					"operation":       "process_summary_job",
				})
			}
		}
	}
}

func main() {
	logger.Log.Info("Starting Research Assistant Summary Worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_connect",
		})
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	kafkaService := queue.NewService(queue.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicSummary,
	})
	defer kafkaService.Close()

	provider, err := llm.NewSecondaryProvider(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize model provider")
	}

	processor := services.NewSummaryJobProcessor(db, provider)
	worker := NewSummaryWorker(kafkaService, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Log.WithError(err).Fatal("Worker stopped with error")
	}

	logger.Log.Info("Worker stopped")
}

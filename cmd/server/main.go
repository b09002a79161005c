package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"research-assistant/internal/agents"
	"research-assistant/internal/clients"
	"research-assistant/internal/config"
	"research-assistant/internal/handlers"
	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
	"research-assistant/internal/middleware"
	"research-assistant/internal/models"
	"research-assistant/internal/queue"
	"research-assistant/internal/services"
)

func main() {
	// Setup panic recovery
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Application panicked")
		}
	}()

	logger.Log.Info("Starting Research Assistant Server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Configuration loaded successfully")

	// Connect to database
	logger.Log.WithField("database_url", maskDatabaseURL(cfg.DatabaseURL)).Info("Connecting to database")
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation":    "database_connect",
			"database_url": maskDatabaseURL(cfg.DatabaseURL),
		})
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to get database SQL instance")
	}
	if err := sqlDB.Ping(); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_ping",
		})
		logger.Log.WithError(err).Fatal("Failed to ping database")
	}
	logger.Log.Info("Database connected and pingable")

	// Auto-migrate database schema
	if err := models.AutoMigrate(db); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_migrate",
		})
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}
	logger.Log.Info("Database migrations completed")

	// Initialize Kafka service
	logger.Log.WithField("kafka_servers", cfg.KafkaBootstrapServers).Info("Initializing Kafka service")
	kafkaService := queue.NewService(queue.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicSummary,
	})
	defer func() {
		if err := kafkaService.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka service")
		}
	}()
	logger.Log.WithField("topic", cfg.KafkaTopicSummary).Info("Kafka service initialized")

	// Initialize LLM providers
	primary, err := llm.NewProvider(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize primary model provider")
	}
	secondary, err := llm.NewSecondaryProvider(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize secondary model provider")
	}
	logger.Log.WithFields(map[string]interface{}{
		"primary_model":   primary.Model(),
		"secondary_model": secondary.Model(),
	}).Info("Model providers initialized")

	// Initialize retrieval clients and the agent pipeline
	arxivClient := clients.NewArxivClient(cfg)
	tavilyClient := clients.NewTavilyClient(cfg)

	recommender := agents.NewRecommender(secondary, cfg.RecommendationLimit)
	orchestrator := services.NewOrchestrator(
		agents.NewIntentClassifier(secondary),
		agents.NewTaskDecomposer(primary),
		agents.NewAcademicAgent(secondary, arxivClient, cfg.MaxSearchResults),
		agents.NewWebSearchAgent(secondary, tavilyClient, cfg.MaxSearchResults),
		agents.NewAnalysisAgent(primary),
		agents.NewSynthesisAgent(primary, cfg.MaxDocsPerCategory),
		recommender,
		agents.NewConversationAgent(secondary, recommender, cfg.AssistantName),
		agents.NewIdentityAgent(cfg.AssistantName),
		cfg.FallbackMinResults,
	)
	logger.Log.Info("Agent pipeline initialized")

	// Initialize services and handlers
	chatService := services.NewChatService(db, cfg, kafkaService)
	chatHandler := handlers.NewChatHandler(chatService, orchestrator)
	conversationHandler := handlers.NewConversationHandler(chatService)

	router := setupRouter(cfg, chatHandler, conversationHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"port":       cfg.ServerPort,
			"health_url": "http://localhost:" + cfg.ServerPort + "/health",
		}).Info("Starting research assistant server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "server_listen",
				"port":      cfg.ServerPort,
			})
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Log.Info("Shutdown signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Log.Info("Server gracefully stopped")
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(dbURL string) string {
	if len(dbURL) > 20 {
		return dbURL[:10] + "***masked***" + dbURL[len(dbURL)-10:]
	}
	return "***masked***"
}

func setupRouter(cfg *config.Config, chatHandler *handlers.ChatHandler, conversationHandler *handlers.ConversationHandler) *gin.Engine {
	if cfg.LogLevel == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "research-assistant",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)

		conversations := api.Group("/conversations")
		{
			conversations.GET("/", conversationHandler.ListConversations)
			conversations.GET("/:conversation_id/messages", conversationHandler.GetMessages)
			conversations.GET("/:conversation_id/recommendations", conversationHandler.GetRecommendations)
		}
	}

	return router
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mahirjain10/image-optimizer/config"
	"github.com/mahirjain10/image-optimizer/internal/app"
	"github.com/mahirjain10/image-optimizer/internal/queue"
	"github.com/mahirjain10/image-optimizer/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

type App struct {
	config          *config.Config
	rabbitMqConn    *amqp.Connection
	rabbitMqService *queue.RabbitMqService
}

// NewApp creates and initializes a new App instance with all dependencies
func NewApp(ctx context.Context) (*App, error) {
	// Load environment configuration
	envConfig, err := config.InitializeEnvs()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize environment config: %w", err)
	}
	logger.Init(envConfig.LogLevel, envConfig.LogFormat)

	if envConfig.RabbitMqURL == "" {
		return nil, errors.New("RABBITMQ_URL is required for the worker")
	}

	opt, err := app.NewOptimizer(ctx, envConfig)
	if err != nil {
		return nil, err
	}

	// Connect to RabbitMQ
	conn, err := queue.NewRabbitMQClient(envConfig.RabbitMqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return &App{
		config:          envConfig,
		rabbitMqConn:    conn,
		rabbitMqService: queue.NewRabbitMqService(opt, conn, envConfig),
	}, nil
}

// Close gracefully shuts down the application
func (a *App) Close() {
	a.rabbitMqService.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application
	application, err := NewApp(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	app.ServeMetrics(ctx, application.config.MetricsAddr)
	log.Info().
		Str("bucket", application.config.Optimizer.Bucket).
		Str("prefix", application.config.Optimizer.Prefix).
		Msg("Application initialized successfully")

	// Start consuming triggers
	if err := application.rabbitMqService.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
}

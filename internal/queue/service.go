package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mahirjain10/image-optimizer/config"
	"github.com/mahirjain10/image-optimizer/internal/optimizer"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/mahirjain10/image-optimizer/internal/utils"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const statusRoutingKey = "status"

// Sweeper runs one activation.
type Sweeper interface {
	Sweep(ctx context.Context) (*types.BatchSummary, error)
}

// Publisher delivers the activation summary.
type Publisher interface {
	Publish(ctx context.Context, message *types.StatusMessage) error
}

// ChannelPublisher publishes status messages on an exchange.
type ChannelPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewChannelPublisher(ch *amqp.Channel, exchange string) *ChannelPublisher {
	return &ChannelPublisher{channel: ch, exchange: exchange}
}

func (p *ChannelPublisher) Publish(ctx context.Context, message *types.StatusMessage) error {
	if p.channel == nil || p.channel.IsClosed() {
		return fmt.Errorf("status channel is not initialized: %w", amqp.ErrClosed)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	serializedMessage, err := utils.SerializeJSON(message)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		statusRoutingKey,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        serializedMessage,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

type RabbitMqService struct {
	sweeper      Sweeper
	config       *config.Config
	rabbitMqConn *amqp.Connection
	statusCh     *amqp.Channel
	publisher    Publisher
	// openPublisher replaces the status publisher after a fatal publish
	// error. Defaults to openStatusPublisher.
	openPublisher func() (Publisher, error)
}

func NewRabbitMqService(sweeper Sweeper, rabbitMqConn *amqp.Connection, config *config.Config) *RabbitMqService {
	return &RabbitMqService{
		sweeper:      sweeper,
		rabbitMqConn: rabbitMqConn,
		config:       config,
	}
}

// ProcessTrigger runs one sweep for a trigger message and publishes its
// summary exactly once. The message body is not interpreted.
func (s *RabbitMqService) ProcessTrigger(ctx context.Context, body []byte) (*types.BatchSummary, error) {
	log.Info().Int("payloadBytes", len(body)).Msg("received optimize trigger")

	summary, sweepErr := s.sweeper.Sweep(ctx)
	if summary == nil {
		return nil, sweepErr
	}

	if s.publisher != nil {
		message := &types.StatusMessage{Pattern: statusRoutingKey, Data: *summary}
		if err := s.publish(ctx, message); err != nil {
			return summary, fmt.Errorf("fatal: cannot publish sweep status: %w", errors.Join(err, sweepErr))
		}
	}
	return summary, sweepErr
}

// publish sends message. After a fatal error the status channel is
// reopened and the message is sent again; only a fatal error is returned.
func (s *RabbitMqService) publish(ctx context.Context, message *types.StatusMessage) error {
	err := s.publisher.Publish(ctx, message)
	if err == nil {
		return nil
	}
	if !IsFatalError(err) {
		log.Warn().Err(err).Str("activationId", message.Data.ActivationID).Msg("failed to publish sweep status")
		return nil
	}

	log.Warn().Err(err).Msg("status channel unusable, reopening")
	open := s.openPublisher
	if open == nil {
		open = s.openStatusPublisher
	}
	publisher, openErr := open()
	if openErr != nil {
		return errors.Join(err, openErr)
	}
	s.publisher = publisher
	if err := s.publisher.Publish(ctx, message); err != nil {
		if IsFatalError(err) {
			return err
		}
		log.Warn().Err(err).Str("activationId", message.Data.ActivationID).Msg("failed to publish sweep status")
	}
	return nil
}

// openStatusPublisher opens a fresh status channel, reconnecting first if
// the connection is gone.
func (s *RabbitMqService) openStatusPublisher() (Publisher, error) {
	if s.rabbitMqConn == nil || s.rabbitMqConn.IsClosed() {
		conn, err := NewRabbitMQClient(s.config.RabbitMqURL)
		if err != nil {
			return nil, err
		}
		s.rabbitMqConn = conn
	}

	statusCh, err := NewChannel(s.rabbitMqConn)
	if err != nil {
		return nil, err
	}
	if err := DeclareStatusExchange(statusCh, s.config.RabbitMqExchange, s.config.RabbitMqStatusQueue); err != nil {
		statusCh.Close()
		return nil, err
	}
	if s.statusCh != nil && !s.statusCh.IsClosed() {
		s.statusCh.Close()
	}
	s.statusCh = statusCh
	return NewChannelPublisher(statusCh, s.config.RabbitMqExchange), nil
}

func (s *RabbitMqService) handleDelivery(ctx context.Context, d amqp.Delivery) {
	_, err := s.ProcessTrigger(ctx, d.Body)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, optimizer.ErrListing):
		// No retry: the next trigger sweeps again.
		log.Error().Err(err).Msg("sweep failed")
		d.Nack(false, false)
	default:
		log.Error().Err(err).Msg("trigger handling failed")
		d.Nack(false, false)
	}
}

func (s *RabbitMqService) setup() (*amqp.Channel, error) {
	publisher, err := s.openStatusPublisher()
	if err != nil {
		return nil, err
	}
	s.publisher = publisher

	consumerCh, err := NewChannel(s.rabbitMqConn)
	if err != nil {
		return nil, err
	}
	if _, err := NewQueue(consumerCh, s.config.RabbitMqTriggerQueue); err != nil {
		consumerCh.Close()
		return nil, err
	}
	return consumerCh, nil
}

// Start consumes triggers until ctx is cancelled, recreating the connection
// and channels when the broker drops them.
func (s *RabbitMqService) Start(ctx context.Context) error {
	queueName := s.config.RabbitMqTriggerQueue
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", queueName).Msg("shutting down consumer")
			return nil
		default:
		}

		consumerCh, err := s.setup()
		if err != nil {
			log.Error().Err(err).Str("queue", queueName).Msg("failed to set up channels, retrying")
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		msgs, err := NewQueueConsumer(consumerCh, queueName)
		if err != nil {
			log.Error().Err(err).Str("queue", queueName).Msg("failed to start consumer")
			consumerCh.Close()
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}
		log.Info().Str("queue", queueName).Msg("worker started, waiting for triggers")

		if done := s.consume(ctx, msgs); done {
			consumerCh.Close()
			return nil
		}
		log.Warn().Str("queue", queueName).Msg("channel closed, will recreate")
		consumerCh.Close()
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

// consume returns true when ctx is done and false when the channel closed.
func (s *RabbitMqService) consume(ctx context.Context, msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case d, ok := <-msgs:
			if !ok {
				return false
			}
			s.handleDelivery(ctx, d)
		}
	}
}

func (s *RabbitMqService) Close() {
	if s.rabbitMqConn != nil && !s.rabbitMqConn.IsClosed() {
		if err := s.rabbitMqConn.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing RabbitMQ connection")
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

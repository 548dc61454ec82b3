// This file contains the implementation of AMQPService. This service is responsible for publishing account lifecycle
// events to an AMQP message broker, so that other parts of the platform (mailers, analytics, the recommendation workers)
// can react to users signing up, logging in and leaving.
//
// This service expects a rabbitMQ AMQP 0.9.1 broker to be running on the specified URL. The service connects to the broker
// and declares a durable 'account-events' queue. Events are published as persistent JSON messages.
// If the connection is lost, the next Publish makes one reconnect attempt bounded by its context; while the broker
// stays unreachable, publishing fails fast instead of holding up the request.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mflix/webserver/internal/log"
)

// AccountEventsQueue is the queue account events are published to.
const AccountEventsQueue = "account-events"

// Account event types.
const (
	EventUserRegistered         = "user.registered"
	EventUserLoggedIn           = "user.logged_in"
	EventUserLoggedOut          = "user.logged_out"
	EventUserDeleted            = "user.deleted"
	EventUserPreferencesUpdated = "user.preferences_updated"
)

// AccountEvent is the JSON payload of a published event.
type AccountEvent struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes account events.
type EventPublisher interface {
	Publish(ctx context.Context, event AccountEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AccountEvent) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

const (
	// startupRetryWindow bounds how long NewAMQPService keeps dialing a broker that is still starting.
	startupRetryWindow = 15 * time.Second
	// dialTimeout bounds a single dial and AMQP handshake.
	dialTimeout = 3 * time.Second
	// reconnectBackoff is how long Publish fails fast after a reconnect attempt failed.
	reconnectBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned by Publish while the service is backing off after a failed reconnect.
var ErrBrokerUnavailable = errors.New("AMQP broker unavailable")

type AMQPService struct {
	url        string
	connection *amqp.Connection
	channel    *amqp.Channel
	logger     *log.Logger
	// no reconnect is attempted before this time
	retryAt time.Time
	// guards connection, channel and retryAt; amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// NewAMQPService connects to the broker at url and declares the account events queue.
// The broker usually starts alongside the web server, so dialing is retried until ctx is done or
// startupRetryWindow has passed.
func NewAMQPService(ctx context.Context, url string, logger *log.Logger) (*AMQPService, error) {
	service := &AMQPService{
		url:    url,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(ctx, startupRetryWindow)
	defer cancel()

	var err error
	for {
		if err = service.connect(ctx); err == nil {
			return service, nil
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(time.Second):
		}
	}
}

// connect establishes a connection to the AMQP message broker, opens a channel and declares the queue.
// It makes a single attempt. A still open connection is reused and only the channel is reopened.
func (s *AMQPService) connect(ctx context.Context) error {
	if s.connection == nil || s.connection.IsClosed() {
		s.closeConnection()

		conn, err := amqp.DialConfig(s.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      dialContext(ctx, dialTimeout),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		s.connection = conn
	}

	channel, err := s.connection.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = channel.QueueDeclare(AccountEventsQueue, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		return fmt.Errorf("failed to declare queue %s: %w", AccountEventsQueue, err)
	}
	s.channel = channel

	s.logger.Infof("Connected to RabbitMQ, publishing to %s", AccountEventsQueue)
	return nil
}

// dialContext returns an amqp dialer that gives up when ctx is done or timeout has passed,
// whichever comes first. The deadline also covers the AMQP handshake and is cleared by amqp once it completes.
func dialContext(ctx context.Context, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		dialer := net.Dialer{Deadline: deadline}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (s *AMQPService) closeConnection() {
	if s.connection != nil && !s.connection.IsClosed() {
		if err := s.connection.Close(); err != nil {
			s.logger.Debugf("Closing stale RabbitMQ connection: %v", err)
		}
	}
	s.connection = nil
	s.channel = nil
}

// ensureConnection ensures that the AMQP connection and channel are open.
// A failed reconnect starts a back-off during which Publish returns ErrBrokerUnavailable without dialing.
func (s *AMQPService) ensureConnection(ctx context.Context) error {
	if s.connection != nil && !s.connection.IsClosed() && s.channel != nil && !s.channel.IsClosed() {
		return nil
	}
	if time.Now().Before(s.retryAt) {
		return ErrBrokerUnavailable
	}

	s.logger.Info("Reconnecting to RabbitMQ...")
	if err := s.connect(ctx); err != nil {
		s.retryAt = time.Now().Add(reconnectBackoff)
		return err
	}
	s.retryAt = time.Time{}
	return nil
}

// Publish sends event to the account events queue.
func (s *AMQPService) Publish(ctx context.Context, event AccountEvent) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnection(ctx); err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, "", AccountEventsQueue, false, false, msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	s.logger.Debugf("Published %s event for %s", event.Type, event.Email)
	return nil
}

// Close shuts down the AMQP connection.
func (s *AMQPService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Shutting down AMQP service...")
	if s.connection == nil || s.connection.IsClosed() {
		return nil
	}
	return s.connection.Close()
}

func encodeEvent(event AccountEvent) (amqp.Publishing, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Type:         event.Type,
		Body:         body,
	}, nil
}

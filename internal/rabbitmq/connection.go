package rabbitmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/errors"
)

const reconnectDelay = 2 * time.Second

// NewRabbitMqConnection dials the broker, retrying while it is not reachable
// yet. The broker usually starts together with the evaluator.
func NewRabbitMqConnection(cfg config.RabbitMQConfig) (*amqp.Connection, error) {
	logger := logger.NewNamedLogger("rabbitmq")

	var lastErr error
	for attempt := 1; attempt <= constants.RabbitMQReconnectTries; attempt++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			logger.Infof("Connected to RabbitMQ after %d attempt(s)", attempt)
			return conn, nil
		}

		lastErr = err
		logger.Warnf("Failed to connect to RabbitMQ (attempt %d/%d): %s",
			attempt, constants.RabbitMQReconnectTries, err)
		time.Sleep(reconnectDelay * time.Duration(attempt))
	}

	return nil, fmt.Errorf("%w: %w", errors.ErrRabbitMQConnectRetries, lastErr)
}

func NewRabbitMQChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	return ch, nil
}

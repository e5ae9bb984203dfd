package consumer

import (
	"encoding/json"
	e "errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/channel"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/responder"
	"github.com/mini-maxit/evaluator/internal/scheduler"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/messages"
)

type Consumer interface {
	// Listen blocks until the delivery channel is closed.
	Listen()
}

type consumer struct {
	channel         channel.Channel
	workerQueueName string
	scheduler       scheduler.Scheduler
	responder       responder.Responder
	logger          *zap.SugaredLogger
}

func NewConsumer(
	ch channel.Channel,
	workerQueueName string,
	scheduler scheduler.Scheduler,
	responder responder.Responder,
) Consumer {
	return &consumer{
		channel:         ch,
		workerQueueName: workerQueueName,
		scheduler:       scheduler,
		responder:       responder,
		logger:          logger.NewNamedLogger("consumer"),
	}
}

func (c *consumer) Listen() {
	c.logger.Infof("Declaring queue %s", c.workerQueueName)

	args := make(amqp.Table)
	args["x-max-priority"] = constants.RabbitMQMaxPriority
	_, err := c.channel.QueueDeclare(c.workerQueueName, true, false, false, false, args)
	if err != nil {
		c.logger.Panicf("Failed to declare queue %s: %s", c.workerQueueName, err)
	}

	c.logger.Infof("Listening for messages on queue %s", c.workerQueueName)

	msgs, err := c.channel.Consume(c.workerQueueName, "", true, false, false, false, nil)
	if err != nil {
		c.logger.Panicf("Failed to consume messages from queue %s: %s", c.workerQueueName, err)
	}

	for msg := range msgs {
		c.processMessage(msg)
	}

	c.logger.Info("Delivery channel closed, consumer stopped")
}

func (c *consumer) processMessage(msg amqp.Delivery) {
	var queueMessage messages.QueueMessage
	if err := json.Unmarshal(msg.Body, &queueMessage); err != nil {
		c.logger.Errorf("Failed to unmarshal message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, msg.ReplyTo, err)
		return
	}

	switch queueMessage.Type {
	case constants.QueueMessageTypeEvaluate:
		c.logger.Infof("Received evaluate message: %s", queueMessage.MessageID)
		c.handleEvaluateMessage(queueMessage, msg.ReplyTo)
	case constants.QueueMessageTypeStatus:
		c.logger.Infof("Received status message: %s", queueMessage.MessageID)
		c.handleStatusMessage(queueMessage, msg.ReplyTo)
	case constants.QueueMessageTypeHandshake:
		c.logger.Infof("Received handshake message: %s", queueMessage.MessageID)
		c.handleHandshakeMessage(queueMessage, msg.ReplyTo)
	default:
		c.logger.Errorf("Unknown message type: %s", queueMessage.Type)
		c.responder.PublishErrorToResponseQueue(
			queueMessage.Type,
			queueMessage.MessageID,
			msg.ReplyTo,
			errors.ErrUnknownMessageType)
	}
}

// requeueWithPriority puts the message back on the worker queue ahead of
// fresh submissions.
func (c *consumer) requeueWithPriority(queueMessage messages.QueueMessage, replyTo string) error {
	queueMessageJSON, err := json.Marshal(queueMessage)
	if err != nil {
		return err
	}

	return c.responder.Publish(c.workerQueueName, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: queueMessage.MessageID,
		ReplyTo:       replyTo,
		Body:          queueMessageJSON,
		Priority:      uint8(constants.RabbitMQRequeuePriority),
	})
}

func (c *consumer) handleEvaluateMessage(queueMessage messages.QueueMessage, replyTo string) {
	var task *messages.EvaluateQueueMessage
	if err := json.Unmarshal(queueMessage.Payload, &task); err != nil || task == nil {
		if err == nil {
			err = e.New("empty evaluate payload")
		}
		c.logger.Errorf("Failed to unmarshal evaluate message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
		return
	}

	err := c.scheduler.ProcessTask(replyTo, queueMessage.MessageID, task)
	if err == nil {
		return
	}

	if e.Is(err, errors.ErrFailedToGetFreeWorker) {
		c.logger.Infof("No free worker, requeueing message %s", queueMessage.MessageID)
		if requeueErr := c.requeueWithPriority(queueMessage, replyTo); requeueErr != nil {
			c.logger.Errorf("Failed to requeue message with higher priority: %s", requeueErr)
			c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, requeueErr)
		}
		return
	}

	c.logger.Errorf("Failed to process evaluate message: %s", err)
	c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
}

func (c *consumer) handleStatusMessage(queueMessage messages.QueueMessage, replyTo string) {
	status := c.scheduler.GetWorkersStatus()

	err := c.responder.PublishSucessStatusRespond(queueMessage.Type, queueMessage.MessageID, replyTo, status)
	if err != nil {
		c.logger.Errorf("Failed to publish status message: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
	}
}

func (c *consumer) handleHandshakeMessage(queueMessage messages.QueueMessage, replyTo string) {
	languages := c.scheduler.GetSupportedLanguages()

	err := c.responder.PublishSucessHandshakeRespond(queueMessage.Type, queueMessage.MessageID, replyTo, languages)
	if err != nil {
		c.logger.Errorf("Failed to publish supported languages: %s", err)
		c.responder.PublishErrorToResponseQueue(queueMessage.Type, queueMessage.MessageID, replyTo, err)
	}
}

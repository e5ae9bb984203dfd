package responder

import (
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/channel"
	"github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/messages"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

type Responder interface {
	PublishErrorToResponseQueue(
		messageType, messageID, responseQueue string,
		err error,
	)
	PublishEvaluateErrorToResponseQueue(
		messageType, messageID, responseQueue string,
		failed *submission.Submission,
		err error,
	)
	PublishSucessHandshakeRespond(
		messageType, messageID, responseQueue string,
		languageSpecs []languages.LanguageSpec,
	) error
	PublishSucessStatusRespond(
		messageType, messageID, responseQueue string,
		status messages.ResponseWorkerStatusPayload,
	) error
	PublishPayloadEvaluateRespond(
		messageType, messageID, responseQueue string,
		evaluated *submission.Submission,
	)
	// Publish sends msg to queueName through the publisher goroutine and
	// waits for the broker call to return.
	Publish(queueName string, msg amqp.Publishing) error
	Close() error
}

type publishRequest struct {
	queueName string
	msg       amqp.Publishing
	result    chan error
}

type responder struct {
	logger               *zap.SugaredLogger
	channel              channel.Channel
	defaultResponseQueue string

	mu          sync.RWMutex
	closed      bool
	publishChan chan publishRequest
	done        chan struct{}
}

// NewResponder starts the publisher goroutine. Replies without a ReplyTo
// queue go to defaultResponseQueue.
func NewResponder(ch channel.Channel, publishChanSize int, defaultResponseQueue string) Responder {
	if publishChanSize < 1 {
		publishChanSize = 1
	}

	r := &responder{
		logger:               logger.NewNamedLogger("responder"),
		channel:              ch,
		defaultResponseQueue: defaultResponseQueue,
		publishChan:          make(chan publishRequest, publishChanSize),
		done:                 make(chan struct{}),
	}
	go r.publishLoop()

	return r
}

// amqp channels are not safe for concurrent publishing, so every publish
// goes through this loop.
func (r *responder) publishLoop() {
	defer close(r.done)
	for req := range r.publishChan {
		req.result <- r.channel.Publish("", req.queueName, false, false, req.msg)
	}
}

func (r *responder) Publish(queueName string, msg amqp.Publishing) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return errors.ErrResponderClosed
	}
	result := make(chan error, 1)
	r.publishChan <- publishRequest{queueName: queueName, msg: msg, result: result}
	r.mu.RUnlock()

	return <-result
}

func (r *responder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.publishChan)
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *responder) PublishErrorToResponseQueue(messageType, messageID, responseQueue string, err error) {
	payload, jsonErr := json.Marshal(map[string]string{"error": err.Error()})
	if jsonErr != nil {
		r.logger.Errorf("Failed to marshal error payload: %s", jsonErr)
		return
	}

	if pubErr := r.publishRespondMessage(messageType, messageID, responseQueue, false, payload); pubErr != nil {
		r.logger.Errorf("Failed to publish error message: %s", pubErr)
		return
	}

	r.logger.Infof("Published error message to response queue: %s", messageID)
}

func (r *responder) PublishEvaluateErrorToResponseQueue(
	messageType, messageID, responseQueue string,
	failed *submission.Submission,
	err error,
) {
	payload, jsonErr := json.Marshal(messages.ResponseEvaluatePayload{Submission: failed, Error: err.Error()})
	if jsonErr != nil {
		r.logger.Errorf("Failed to marshal evaluate error payload: %s", jsonErr)
		return
	}

	if pubErr := r.publishRespondMessage(messageType, messageID, responseQueue, false, payload); pubErr != nil {
		r.logger.Errorf("Failed to publish evaluate error message: %s", pubErr)
	}
}

func (r *responder) PublishPayloadEvaluateRespond(
	messageType, messageID, responseQueue string,
	evaluated *submission.Submission,
) {
	payload, err := json.Marshal(messages.ResponseEvaluatePayload{Submission: evaluated})
	if err != nil {
		r.PublishErrorToResponseQueue(messageType, messageID, responseQueue, err)
		return
	}

	if err := r.publishRespondMessage(messageType, messageID, responseQueue, true, payload); err != nil {
		r.logger.Errorf("Failed to publish evaluation result [MsgID: %s]: %s", messageID, err)
	}
}

func (r *responder) PublishSucessHandshakeRespond(
	messageType, messageID, responseQueue string,
	languageSpecs []languages.LanguageSpec,
) error {
	handshakePayload := struct {
		Languages []languages.LanguageSpec `json:"languages"`
	}{
		Languages: languageSpecs,
	}

	payload, err := json.Marshal(handshakePayload)
	if err != nil {
		return err
	}

	return r.publishRespondMessage(messageType, messageID, responseQueue, true, payload)
}

func (r *responder) PublishSucessStatusRespond(
	messageType, messageID, responseQueue string,
	status messages.ResponseWorkerStatusPayload,
) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return r.publishRespondMessage(messageType, messageID, responseQueue, true, payload)
}

func (r *responder) publishRespondMessage(
	messageType, messageID, responseQueue string,
	ok bool,
	payload []byte,
) error {
	if responseQueue == "" {
		responseQueue = r.defaultResponseQueue
	}
	if responseQueue == "" {
		return errors.ErrNoResponseQueue
	}

	responseJSON, err := json.Marshal(messages.ResponseQueueMessage{
		Type:      messageType,
		MessageID: messageID,
		Ok:        ok,
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	r.logger.Infof("Publishing response message to response queue: %s", responseQueue)
	return r.Publish(responseQueue, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: messageID,
		Body:          responseJSON,
	})
}

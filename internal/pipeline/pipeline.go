package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/responder"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/messages"
)

// Worker evaluates queued submissions one at a time and reports the outcome
// on the response queue.
type Worker interface {
	ProcessTask(messageID, responseQueue string, task *messages.EvaluateQueueMessage)
	GetState() WorkerState
	UpdateStatus(status constants.WorkerStatus)
	GetProcessingMessageID() string
	GetId() int
}

type WorkerState struct {
	Status              constants.WorkerStatus `json:"status"`
	ProcessingMessageID string                 `json:"processing_message_id"`
}

type worker struct {
	id        int
	mu        sync.RWMutex
	state     WorkerState
	manager   Manager
	responder responder.Responder
	logger    *zap.SugaredLogger
}

func NewWorker(id int, manager Manager, responder responder.Responder) Worker {
	return &worker{
		id:        id,
		state:     WorkerState{Status: constants.WorkerStatusIdle},
		manager:   manager,
		responder: responder,
		logger:    logger.NewNamedLogger(fmt.Sprintf("worker-%d", id)),
	}
}

func (ws *worker) GetId() int {
	return ws.id
}

func (ws *worker) GetState() WorkerState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *worker) UpdateStatus(status constants.WorkerStatus) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.state.Status = status
}

func (ws *worker) GetProcessingMessageID() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state.ProcessingMessageID
}

func (ws *worker) setProcessingMessageID(messageID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.state.ProcessingMessageID = messageID
}

func (ws *worker) ProcessTask(messageID, responseQueue string, task *messages.EvaluateQueueMessage) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("worker panicked: %v", r)
			}
			ws.logger.Errorf("Recovered from panic [MsgID: %s]: %s", messageID, err)
			ws.responder.PublishErrorToResponseQueue(
				constants.QueueMessageTypeEvaluate,
				messageID,
				responseQueue,
				err,
			)
		}
	}()

	ws.logger.Infof("Processing task [MsgID: %s]", messageID)
	ws.setProcessingMessageID(messageID)
	defer ws.setProcessingMessageID("")

	if task == nil {
		ws.responder.PublishErrorToResponseQueue(
			constants.QueueMessageTypeEvaluate,
			messageID,
			responseQueue,
			errors.New("empty evaluate payload"),
		)
		return
	}

	result, err := ws.manager.Evaluate(context.Background(), task.Input)
	if err != nil {
		ws.logger.Errorf("Evaluation failed [MsgID: %s]: %s", messageID, err)
		ws.responder.PublishEvaluateErrorToResponseQueue(
			constants.QueueMessageTypeEvaluate,
			messageID,
			responseQueue,
			result,
			err,
		)
		return
	}

	ws.responder.PublishPayloadEvaluateRespond(
		constants.QueueMessageTypeEvaluate,
		messageID,
		responseQueue,
		result,
	)
	ws.logger.Infof("Finished processing task [MsgID: %s]", messageID)
}

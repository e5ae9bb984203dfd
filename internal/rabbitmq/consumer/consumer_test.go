package consumer

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/mock/gomock"

	"github.com/mini-maxit/evaluator/pkg/constants"
	pkgerrors "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/messages"
	"github.com/mini-maxit/evaluator/pkg/submission"
	"github.com/mini-maxit/evaluator/tests/mocks"
)

const workerQueue = "worker_queue_test"

func evaluateDelivery(t *testing.T, messageID string) amqp.Delivery {
	t.Helper()
	task := messages.EvaluateQueueMessage{Input: submission.Input{
		UserID:     "u",
		QuestionID: "q",
		Code:       "print(1)",
		Language:   "python",
		TestCases:  []submission.TestCase{{ID: "1", Input: "", ExpectedOutput: "1"}},
	}}
	taskB, err := json.Marshal(&task)
	if err != nil {
		t.Fatalf("failed to marshal task: %v", err)
	}
	b, err := json.Marshal(messages.QueueMessage{
		Type:      constants.QueueMessageTypeEvaluate,
		MessageID: messageID,
		Payload:   taskB,
	})
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	return amqp.Delivery{Body: b, ReplyTo: "reply"}
}

func TestProcessMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockScheduler := mocks.NewMockScheduler(ctrl)
	mockResponder := mocks.NewMockResponder(ctrl)

	cIface := NewConsumer(nil, workerQueue, mockScheduler, mockResponder)
	c, ok := cIface.(*consumer)
	if !ok {
		t.Fatalf("NewConsumer returned unexpected type: %T", cIface)
	}

	t.Run("invalid json", func(t *testing.T) {
		mockResponder.EXPECT().PublishErrorToResponseQueue("", "", "reply", gomock.Any()).Times(1)

		c.processMessage(amqp.Delivery{Body: []byte("not json"), ReplyTo: "reply"})
	})

	t.Run("unknown type", func(t *testing.T) {
		b, _ := json.Marshal(messages.QueueMessage{Type: "foo", MessageID: "mid"})

		mockResponder.EXPECT().PublishErrorToResponseQueue("foo", "mid", "reply", pkgerrors.ErrUnknownMessageType).Times(1)

		c.processMessage(amqp.Delivery{Body: b, ReplyTo: "reply"})
	})

	t.Run("evaluate success", func(t *testing.T) {
		mockScheduler.EXPECT().ProcessTask(
			"reply", "eval-id-1", gomock.AssignableToTypeOf(&messages.EvaluateQueueMessage{}),
		).Do(func(_ string, _ string, task *messages.EvaluateQueueMessage) {
			if task.Code != "print(1)" || len(task.TestCases) != 1 {
				t.Fatalf("unexpected task payload: %+v", task)
			}
		}).Return(nil).Times(1)

		c.processMessage(evaluateDelivery(t, "eval-id-1"))
	})

	t.Run("evaluate with broken payload", func(t *testing.T) {
		b, _ := json.Marshal(messages.QueueMessage{
			Type:      constants.QueueMessageTypeEvaluate,
			MessageID: "eval-id-bad",
			Payload:   json.RawMessage(`"not an object"`),
		})

		mockResponder.EXPECT().PublishErrorToResponseQueue(
			constants.QueueMessageTypeEvaluate, "eval-id-bad", "reply", gomock.Any(),
		).Times(1)

		c.processMessage(amqp.Delivery{Body: b, ReplyTo: "reply"})
	})

	t.Run("evaluate requeue when no worker", func(t *testing.T) {
		mockScheduler.EXPECT().ProcessTask(
			"reply", "eval-id-2", gomock.AssignableToTypeOf(&messages.EvaluateQueueMessage{}),
		).Return(pkgerrors.ErrFailedToGetFreeWorker).Times(1)

		mockResponder.EXPECT().Publish(
			workerQueue, gomock.AssignableToTypeOf(amqp.Publishing{}),
		).Do(func(_ string, p amqp.Publishing) {
			if p.Priority != uint8(constants.RabbitMQRequeuePriority) {
				t.Fatalf("expected Priority to be %d got %d", constants.RabbitMQRequeuePriority, p.Priority)
			}
			if p.ReplyTo != "reply" {
				t.Fatalf("expected requeued message to keep ReplyTo, got %q", p.ReplyTo)
			}
		}).Return(nil).Times(1)

		c.processMessage(evaluateDelivery(t, "eval-id-2"))
	})

	t.Run("evaluate scheduler error", func(t *testing.T) {
		schedErr := errors.New("scheduler broken")
		mockScheduler.EXPECT().ProcessTask("reply", "eval-id-3", gomock.Any()).Return(schedErr).Times(1)
		mockResponder.EXPECT().PublishErrorToResponseQueue(
			constants.QueueMessageTypeEvaluate, "eval-id-3", "reply", schedErr,
		).Times(1)

		c.processMessage(evaluateDelivery(t, "eval-id-3"))
	})

	t.Run("status success", func(t *testing.T) {
		status := messages.ResponseWorkerStatusPayload{BusyWorkers: 0, TotalWorkers: 1}
		b, _ := json.Marshal(messages.QueueMessage{Type: constants.QueueMessageTypeStatus, MessageID: "status-id"})

		mockScheduler.EXPECT().GetWorkersStatus().Return(status).Times(1)
		mockResponder.EXPECT().PublishSucessStatusRespond(
			constants.QueueMessageTypeStatus, "status-id", "reply", status,
		).Return(nil).Times(1)

		c.processMessage(amqp.Delivery{Body: b, ReplyTo: "reply"})
	})

	t.Run("handshake success", func(t *testing.T) {
		b, _ := json.Marshal(messages.QueueMessage{Type: constants.QueueMessageTypeHandshake, MessageID: "hs-id"})

		mockScheduler.EXPECT().GetSupportedLanguages().Return(languages.GetSupportedLanguages()).Times(1)
		mockResponder.EXPECT().PublishSucessHandshakeRespond(
			constants.QueueMessageTypeHandshake, "hs-id", "reply", gomock.AssignableToTypeOf([]languages.LanguageSpec{}),
		).Do(func(_ string, _ string, _ string, langs []languages.LanguageSpec) {
			if len(langs) == 0 {
				t.Fatalf("expected at least one language in handshake payload")
			}
		}).Return(nil).Times(1)

		c.processMessage(amqp.Delivery{Body: b, ReplyTo: "reply"})
	})

	t.Run("handshake publish failure", func(t *testing.T) {
		b, _ := json.Marshal(messages.QueueMessage{Type: constants.QueueMessageTypeHandshake, MessageID: "hs-id-2"})
		pubErr := errors.New("channel closed")

		mockScheduler.EXPECT().GetSupportedLanguages().Return(languages.GetSupportedLanguages()).Times(1)
		mockResponder.EXPECT().PublishSucessHandshakeRespond(gomock.Any(), "hs-id-2", "reply", gomock.Any()).
			Return(pubErr).Times(1)
		mockResponder.EXPECT().PublishErrorToResponseQueue(
			constants.QueueMessageTypeHandshake, "hs-id-2", "reply", pubErr,
		).Times(1)

		c.processMessage(amqp.Delivery{Body: b, ReplyTo: "reply"})
	})
}

func TestListen_ProcessEvaluateMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannel := mocks.NewMockChannel(ctrl)
	mockScheduler := mocks.NewMockScheduler(ctrl)
	mockResponder := mocks.NewMockResponder(ctrl)

	deliveries := make(chan amqp.Delivery)

	mockChannel.EXPECT().QueueDeclare(workerQueue, true, false, false, false, gomock.AssignableToTypeOf(amqp.Table{})).Do(
		func(_ string, _, _, _, _ bool, args amqp.Table) {
			v, ok := args["x-max-priority"]
			if !ok {
				t.Fatalf("expected x-max-priority to be present in args")
			}
			if v != constants.RabbitMQMaxPriority {
				t.Fatalf("expected x-max-priority %v got %v", constants.RabbitMQMaxPriority, v)
			}
		}).Return(amqp.Queue{Name: workerQueue}, nil).Times(1)

	mockChannel.EXPECT().Consume(
		workerQueue, "", true, false, false, false, nil,
	).Return((<-chan amqp.Delivery)(deliveries), nil).Times(1)

	done := make(chan struct{}, 1)
	mockScheduler.EXPECT().ProcessTask(
		"reply", "eval-id-listen", gomock.AssignableToTypeOf(&messages.EvaluateQueueMessage{}),
	).Do(func(string, string, *messages.EvaluateQueueMessage) {
		done <- struct{}{}
	}).Return(nil).Times(1)

	c := NewConsumer(mockChannel, workerQueue, mockScheduler, mockResponder)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Listen()
	}()

	deliveries <- evaluateDelivery(t, "eval-id-listen")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for ProcessTask to be called")
	}

	close(deliveries)
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Listen to finish")
	}
}

func TestListen_QueueDeclareErrorPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannel := mocks.NewMockChannel(ctrl)
	mockChannel.EXPECT().QueueDeclare(
		workerQueue, true, false, false, false, gomock.Any(),
	).Return(amqp.Queue{}, errors.New("queue error")).Times(1)

	c := NewConsumer(mockChannel, workerQueue, mocks.NewMockScheduler(ctrl), mocks.NewMockResponder(ctrl))

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Listen to panic on QueueDeclare error")
		}
	}()

	c.Listen()
}

func TestListen_ConsumeErrorPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChannel := mocks.NewMockChannel(ctrl)
	mockChannel.EXPECT().QueueDeclare(
		workerQueue, true, false, false, false, gomock.Any(),
	).Return(amqp.Queue{Name: workerQueue}, nil).Times(1)
	mockChannel.EXPECT().Consume(
		workerQueue, "", true, false, false, false, nil,
	).Return((<-chan amqp.Delivery)(nil), errors.New("consume error")).Times(1)

	c := NewConsumer(mockChannel, workerQueue, mocks.NewMockScheduler(ctrl), mocks.NewMockResponder(ctrl))

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Listen to panic on Consume error")
		}
	}()

	c.Listen()
}

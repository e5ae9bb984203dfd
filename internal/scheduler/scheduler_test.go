package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"

	"github.com/mini-maxit/evaluator/internal/pipeline"
	. "github.com/mini-maxit/evaluator/internal/scheduler"
	"github.com/mini-maxit/evaluator/pkg/constants"
	pkgerrors "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/messages"
	mocktests "github.com/mini-maxit/evaluator/tests/mocks"
)

func TestNewScheduler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	manager := mocktests.NewMockManager(ctrl)
	responder := mocktests.NewMockResponder(ctrl)

	maxWorkers := 3
	s := NewScheduler(maxWorkers, manager, responder, nil)
	if s == nil {
		t.Fatalf("NewScheduler returned nil")
	}

	status := s.GetWorkersStatus()
	if len(status.WorkerStatus) != maxWorkers {
		t.Fatalf("expected %d workers, got %d", maxWorkers, len(status.WorkerStatus))
	}
	if status.TotalWorkers != maxWorkers || status.BusyWorkers != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	for i, ws := range status.WorkerStatus {
		if ws.WorkerID != i || ws.Status != constants.WorkerStatusIdle {
			t.Fatalf("unexpected worker status at %d: %+v", i, ws)
		}
	}
}

func TestGetWorkersStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w0 := mocktests.NewMockWorker(ctrl)
	w1 := mocktests.NewMockWorker(ctrl)

	w0.EXPECT().GetState().Return(pipeline.WorkerState{
		Status:              constants.WorkerStatusBusy,
		ProcessingMessageID: "msg-1",
	}).Times(1)
	w1.EXPECT().GetState().Return(pipeline.WorkerState{Status: constants.WorkerStatusIdle}).Times(1)

	s := NewSchedulerWithWorkers(2, map[int]pipeline.Worker{0: w0, 1: w1}, nil)

	st := s.GetWorkersStatus()
	if st.TotalWorkers != 2 {
		t.Fatalf("expected total_workers 2, got %v", st.TotalWorkers)
	}
	if st.WorkerStatus[0].ProcessingMessageID != "msg-1" || st.WorkerStatus[0].Status != constants.WorkerStatusBusy {
		t.Fatalf("expected worker 0 busy with msg-1, got %+v", st.WorkerStatus[0])
	}
	if st.WorkerStatus[1].Status != constants.WorkerStatusIdle {
		t.Fatalf("expected worker 1 idle, got %+v", st.WorkerStatus[1])
	}
}

func TestProcessTask_SuccessAndMarkIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := mocktests.NewMockWorker(ctrl)

	w.EXPECT().GetState().Return(pipeline.WorkerState{Status: constants.WorkerStatusIdle}).Times(1)
	w.EXPECT().UpdateStatus(constants.WorkerStatusBusy).Times(1)
	w.EXPECT().GetId().Return(0).AnyTimes()

	w.EXPECT().ProcessTask("msg-id-1", "resp", gomock.Any()).Do(
		func(_ string, _ string, _ *messages.EvaluateQueueMessage) {
			time.Sleep(5 * time.Millisecond)
		}).Times(1)
	w.EXPECT().UpdateStatus(constants.WorkerStatusIdle).Times(1)

	s := NewSchedulerWithWorkers(1, map[int]pipeline.Worker{0: w}, nil)

	if err := s.ProcessTask("resp", "msg-id-1", &messages.EvaluateQueueMessage{}); err != nil {
		t.Fatalf("unexpected error from ProcessTask: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("timed out waiting for the worker to finish: %v", err)
	}
}

func TestProcessTask_NoFreeWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := mocktests.NewMockWorker(ctrl)
	w.EXPECT().GetState().Return(pipeline.WorkerState{Status: constants.WorkerStatusBusy}).Times(1)

	s := NewSchedulerWithWorkers(1, map[int]pipeline.Worker{0: w}, nil)

	err := s.ProcessTask("resp", "msg-id-2", &messages.EvaluateQueueMessage{})
	if !errors.Is(err, pkgerrors.ErrFailedToGetFreeWorker) {
		t.Fatalf("expected ErrFailedToGetFreeWorker, got %v", err)
	}
}

func TestProcessTask_WorkerPanicStillMarksIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := mocktests.NewMockWorker(ctrl)
	w.EXPECT().GetState().Return(pipeline.WorkerState{Status: constants.WorkerStatusIdle}).AnyTimes()
	w.EXPECT().UpdateStatus(constants.WorkerStatusBusy).Times(1)
	w.EXPECT().GetId().Return(0).AnyTimes()
	w.EXPECT().ProcessTask(gomock.Any(), gomock.Any(), gomock.Any()).Do(
		func(string, string, *messages.EvaluateQueueMessage) {
			panic("boom")
		}).Times(1)
	w.EXPECT().UpdateStatus(constants.WorkerStatusIdle).Times(1)

	s := NewSchedulerWithWorkers(1, map[int]pipeline.Worker{0: w}, nil)
	if err := s.ProcessTask("resp", "msg-id-3", &messages.EvaluateQueueMessage{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if st := s.GetWorkersStatus(); st.BusyWorkers != 0 {
		t.Fatalf("expected no busy workers, got %d", st.BusyWorkers)
	}
}

func TestGetSupportedLanguages(t *testing.T) {
	s := NewSchedulerWithWorkers(0, map[int]pipeline.Worker{}, nil)

	langs := s.GetSupportedLanguages()
	if len(langs) == 0 {
		t.Fatalf("expected supported languages")
	}
	for i := 1; i < len(langs); i++ {
		if langs[i-1].LanguageName > langs[i].LanguageName {
			t.Fatalf("expected languages sorted by name")
		}
	}
}

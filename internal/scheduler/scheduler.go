package scheduler

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/metrics"
	"github.com/mini-maxit/evaluator/internal/pipeline"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/responder"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/messages"
)

type Scheduler interface {
	GetWorkersStatus() messages.ResponseWorkerStatusPayload
	// ProcessTask hands the task to an idle worker and returns immediately.
	// It fails with ErrFailedToGetFreeWorker when every worker is busy.
	ProcessTask(responseQueueName, messageID string, task *messages.EvaluateQueueMessage) error
	GetSupportedLanguages() []languages.LanguageSpec
	// Drain blocks until every running task has finished or ctx is done.
	Drain(ctx context.Context) error
}

type scheduler struct {
	mu               sync.Mutex
	busyWorkersCount int
	workers          map[int]pipeline.Worker
	ids              []int
	maxWorkers       int
	running          sync.WaitGroup
	metrics          *metrics.Metrics
	logger           *zap.SugaredLogger
}

func NewScheduler(
	maxWorkers int,
	manager pipeline.Manager,
	responder responder.Responder,
	m *metrics.Metrics,
) Scheduler {
	workers := make(map[int]pipeline.Worker, maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		workers[i] = pipeline.NewWorker(i, manager, responder)
	}

	return NewSchedulerWithWorkers(maxWorkers, workers, m)
}

// NewSchedulerWithWorkers builds a scheduler around an existing worker set.
func NewSchedulerWithWorkers(maxWorkers int, workers map[int]pipeline.Worker, m *metrics.Metrics) Scheduler {
	if m == nil {
		m = metrics.NewNop()
	}

	ids := make([]int, 0, len(workers))
	for id := range workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	m.SetWorkers(0, maxWorkers)

	return &scheduler{
		workers:    workers,
		ids:        ids,
		maxWorkers: maxWorkers,
		metrics:    m,
		logger:     logger.NewNamedLogger("scheduler"),
	}
}

func (s *scheduler) GetWorkersStatus() messages.ResponseWorkerStatusPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]messages.WorkerStatus, 0, len(s.workers))
	for _, id := range s.ids {
		state := s.workers[id].GetState()
		statuses = append(statuses, messages.WorkerStatus{
			WorkerID:            id,
			Status:              state.Status,
			ProcessingMessageID: state.ProcessingMessageID,
		})
	}

	return messages.ResponseWorkerStatusPayload{
		BusyWorkers:  s.busyWorkersCount,
		TotalWorkers: s.maxWorkers,
		WorkerStatus: statuses,
	}
}

func (s *scheduler) getFreeWorker() (pipeline.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.ids {
		worker := s.workers[id]
		if worker.GetState().Status == constants.WorkerStatusIdle {
			worker.UpdateStatus(constants.WorkerStatusBusy)
			s.busyWorkersCount++
			s.metrics.SetWorkers(s.busyWorkersCount, s.maxWorkers)
			return worker, nil
		}
	}

	return nil, errors.ErrFailedToGetFreeWorker
}

func (s *scheduler) ProcessTask(responseQueueName, messageID string, task *messages.EvaluateQueueMessage) error {
	s.logger.Infof("Processing task [MsgID: %s]", messageID)

	worker, err := s.getFreeWorker()
	if err != nil {
		s.logger.Warnf("No available workers: %s", err)
		return err
	}

	s.running.Add(1)
	go func(w pipeline.Worker) {
		defer s.running.Done()
		defer s.markWorkerAsIdle(w)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorf("Worker panicked: %v", r)
			}
		}()

		w.ProcessTask(messageID, responseQueueName, task)
	}(worker)

	return nil
}

func (s *scheduler) markWorkerAsIdle(worker pipeline.Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	worker.UpdateStatus(constants.WorkerStatusIdle)
	s.busyWorkersCount--
	s.metrics.SetWorkers(s.busyWorkersCount, s.maxWorkers)

	s.logger.Infof("Worker marked as idle [WorkerID: %d]", worker.GetId())
}

func (s *scheduler) GetSupportedLanguages() []languages.LanguageSpec {
	return languages.GetSupportedLanguages()
}

func (s *scheduler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

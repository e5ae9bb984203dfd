package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/mini-maxit/evaluator/internal/repository"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) RunAll(
	_ context.Context,
	_, _ string,
	testCases []submission.TestCase,
) []submission.ExecutionOutcome {
	close(b.started)
	<-b.release
	outcomes := make([]submission.ExecutionOutcome, len(testCases))
	for i, tc := range testCases {
		outcomes[i] = submission.ExecutionOutcome{
			TestCaseID: tc.ID,
			Order:      i + 1,
			Passed:     true,
			StatusCode: submission.TestCasePassed,
		}
	}
	return outcomes
}

func TestGetSubmission_InFlightIsPending(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	mgr := NewManager(r, verifier.NewDefaultVerifier(), nil, nil, repository.NewMemoryRepository(), nil).(*manager)

	done := make(chan *submission.Submission, 1)
	go func() {
		s, err := mgr.Evaluate(context.Background(), submission.Input{
			UserID:     "u",
			QuestionID: "q",
			Code:       "x",
			Language:   "python",
			TestCases:  []submission.TestCase{{ID: "1", Input: "", ExpectedOutput: ""}},
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- s
	}()

	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner was never called")
	}

	mgr.mu.RLock()
	ids := make([]string, 0, len(mgr.inflight))
	for id := range mgr.inflight {
		ids = append(ids, id)
	}
	mgr.mu.RUnlock()
	if len(ids) != 1 {
		t.Fatalf("expected exactly one in-flight submission, got %d", len(ids))
	}

	pending, err := mgr.GetSubmission(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("expected in-flight submission, got %v", err)
	}
	if pending.Status != submission.Pending || len(pending.TestOutcomes) != 0 || pending.EvaluatedAt != nil {
		t.Fatalf("expected bare pending record, got %+v", pending)
	}

	close(r.release)
	var final *submission.Submission
	select {
	case final = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("evaluation did not finish")
	}

	stored, err := mgr.GetSubmission(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("expected stored submission, got %v", err)
	}
	if stored.Status != submission.Evaluated || final.ID != ids[0] {
		t.Fatalf("expected evaluated record %s, got %+v", ids[0], stored)
	}

	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	if len(mgr.inflight) != 0 {
		t.Fatalf("expected in-flight set to be empty after evaluation")
	}
}

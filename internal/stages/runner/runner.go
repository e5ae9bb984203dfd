package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/metrics"
	"github.com/mini-maxit/evaluator/internal/stages/executor"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// Runner executes a solution against every test case of a submission.
type Runner interface {
	// RunAll returns exactly one outcome per test case, in input order. It
	// never fails as a whole: per-case problems are recorded on the outcome.
	RunAll(ctx context.Context, code, language string, testCases []submission.TestCase) []submission.ExecutionOutcome
}

type runner struct {
	executor    executor.Executor
	verifier    verifier.Verifier
	concurrency int
	caseTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *zap.SugaredLogger
}

// NewRunner returns a runner that executes at most concurrency cases at a
// time, each bounded by caseTimeout. A concurrency of 1 runs cases
// sequentially.
func NewRunner(
	exec executor.Executor,
	v verifier.Verifier,
	concurrency int,
	caseTimeout time.Duration,
	m *metrics.Metrics,
) Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}

	return &runner{
		executor:    exec,
		verifier:    v,
		concurrency: concurrency,
		caseTimeout: caseTimeout,
		metrics:     m,
		logger:      logger.NewNamedLogger("runner"),
	}
}

func (r *runner) RunAll(
	ctx context.Context,
	code, language string,
	testCases []submission.TestCase,
) []submission.ExecutionOutcome {
	outcomes := make([]submission.ExecutionOutcome, len(testCases))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, tc := range testCases {
		g.Go(func() error {
			outcomes[i] = r.runOne(ctx, code, language, i+1, tc)
			return nil
		})
	}

	// Goroutines never return errors, Wait only joins them.
	_ = g.Wait()

	return outcomes
}

func (r *runner) runOne(
	ctx context.Context,
	code, language string,
	order int,
	tc submission.TestCase,
) submission.ExecutionOutcome {
	if ctx.Err() != nil {
		r.metrics.TestCaseFinished(metrics.TestResultErrored)
		return submission.ExecutionOutcome{
			TestCaseID:   tc.ID,
			Order:        order,
			StatusCode:   submission.ExecutionFailed,
			ErrorMessage: constants.OutcomeMessageCancelled,
		}
	}

	caseCtx := ctx
	if r.caseTimeout > 0 {
		var cancel context.CancelFunc
		caseCtx, cancel = context.WithTimeout(ctx, r.caseTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.executor.Execute(caseCtx, code, language, tc.Input)
	r.metrics.ObserveCall(metrics.ComponentSandbox, start, err)
	if err != nil {
		r.logger.Warnf("Test case %d (%s) could not be executed: %s", order, tc.ID, err)
	}

	outcome := r.verifier.EvaluateTestCase(order, tc, result, err)
	switch {
	case outcome.Passed:
		r.metrics.TestCaseFinished(metrics.TestResultPassed)
	case err != nil:
		r.metrics.TestCaseFinished(metrics.TestResultErrored)
	default:
		r.metrics.TestCaseFinished(metrics.TestResultFailed)
	}

	return outcome
}

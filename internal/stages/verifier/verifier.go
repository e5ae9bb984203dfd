package verifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/mini-maxit/evaluator/internal/stages/executor"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/submission"
	"github.com/mini-maxit/evaluator/utils"
)

// Verifier turns sandbox results into per-case outcomes and aggregates them.
type Verifier interface {
	// CompareOutput reports whether actual matches expected once trailing
	// whitespace is removed from both.
	CompareOutput(actual, expected string) bool
	EvaluateTestCase(order int, testCase submission.TestCase, result *executor.Result, execErr error) submission.ExecutionOutcome
	Summarize(outcomes []submission.ExecutionOutcome, review *submission.QualitativeReview) submission.Summary
}

type DefaultVerifier struct{}

func NewDefaultVerifier() Verifier {
	return &DefaultVerifier{}
}

func (dv *DefaultVerifier) CompareOutput(actual, expected string) bool {
	return utils.TrimTrailingWhitespace(actual) == utils.TrimTrailingWhitespace(expected)
}

// EvaluateTestCase builds the outcome of one case. execErr takes precedence
// over result: a case whose run could not complete never passes.
func (dv *DefaultVerifier) EvaluateTestCase(
	order int,
	testCase submission.TestCase,
	result *executor.Result,
	execErr error,
) submission.ExecutionOutcome {
	outcome := submission.ExecutionOutcome{
		TestCaseID: testCase.ID,
		Order:      order,
	}

	if execErr != nil {
		outcome.StatusCode = submission.ExecutionFailed
		outcome.ErrorMessage = execErr.Error()
		return outcome
	}
	if result == nil {
		outcome.StatusCode = submission.ExecutionFailed
		outcome.ErrorMessage = "sandbox returned no result"
		return outcome
	}

	outcome.DurationMs = result.ExecTimeMs
	outcome.MemoryKb = result.MemoryKb

	switch result.Status {
	case submission.ExecutionSuccess:
		outcome.ActualOutput = utils.TrimTrailingWhitespace(result.Stdout)
		outcome.Passed = dv.CompareOutput(result.Stdout, testCase.ExpectedOutput)
		if outcome.Passed {
			outcome.StatusCode = submission.TestCasePassed
		} else {
			outcome.StatusCode = submission.OutputDifference
		}
	case submission.ExecutionCompilationError:
		outcome.StatusCode = submission.CompilationError
		outcome.ErrorMessage = withDetail(constants.OutcomeMessageCompilationError, result.Stderr)
	case submission.ExecutionTimeout:
		outcome.StatusCode = submission.TimeLimitExceeded
		outcome.ErrorMessage = constants.OutcomeMessageTimeout
	default:
		outcome.ActualOutput = utils.TrimTrailingWhitespace(result.Stdout)
		outcome.StatusCode = submission.RuntimeError
		outcome.ErrorMessage = withDetail(constants.OutcomeMessageRuntimeError, result.Stderr)
	}

	return outcome
}

// Summarize computes the pass rate and the composite score. The composite
// score equals the pass rate unless a review is present, in which case the
// two are blended with TestsScoreWeight and ReviewScoreWeight.
func (dv *DefaultVerifier) Summarize(
	outcomes []submission.ExecutionOutcome,
	review *submission.QualitativeReview,
) submission.Summary {
	passed := 0
	for _, outcome := range outcomes {
		if outcome.Passed {
			passed++
		}
	}

	total := len(outcomes)
	summary := submission.Summary{
		PassedCount: passed,
		TotalCount:  total,
		AllPassed:   passed == total,
	}
	if total > 0 {
		summary.PassRate = int(math.Round(float64(passed) / float64(total) * constants.MaxScore))
	}

	summary.Score = summary.PassRate
	if review != nil {
		summary.Score = int(math.Round(
			constants.TestsScoreWeight*float64(summary.PassRate) +
				constants.ReviewScoreWeight*float64(review.OverallScore)))
	}

	return summary
}

// OverallScore is the weighted sum of the three review components, rounded
// to the nearest integer.
func OverallScore(correctness, efficiency, codeStyle int) int {
	return int(math.Round(
		constants.CorrectnessWeight*float64(correctness) +
			constants.EfficiencyWeight*float64(efficiency) +
			constants.CodeStyleWeight*float64(codeStyle)))
}

func withDetail(message, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return message
	}
	return fmt.Sprintf("%s: %s", message, detail)
}

package verifier_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mini-maxit/evaluator/internal/stages/executor"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	pkgerrors "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

func TestCompareOutput(t *testing.T) {
	v := verifier.NewDefaultVerifier()

	tests := []struct {
		actual   string
		expected string
		want     bool
	}{
		{actual: "3\n", expected: "3", want: true},
		{actual: "3 ", expected: "3", want: true},
		{actual: "3", expected: "3\r\n\n", want: true},
		{actual: "03", expected: "3", want: false},
		{actual: " 3", expected: "3", want: false},
		{actual: "1 2", expected: "1  2", want: false},
		{actual: "", expected: "", want: true},
	}

	for _, tt := range tests {
		if got := v.CompareOutput(tt.actual, tt.expected); got != tt.want {
			t.Fatalf("CompareOutput(%q, %q) = %v, want %v", tt.actual, tt.expected, got, tt.want)
		}
	}
}

func TestEvaluateTestCase(t *testing.T) {
	v := verifier.NewDefaultVerifier()
	tc := submission.TestCase{ID: "tc-1", Input: "1 2", ExpectedOutput: "3\n"}

	tests := []struct {
		name        string
		result      *executor.Result
		execErr     error
		wantPassed  bool
		wantStatus  submission.TestCaseStatus
		wantMessage string
		wantActual  string
	}{
		{
			name:       "passed",
			result:     &executor.Result{Stdout: "3", Status: submission.ExecutionSuccess, ExecTimeMs: 12},
			wantPassed: true,
			wantStatus: submission.TestCasePassed,
			wantActual: "3",
		},
		{
			name:       "output difference",
			result:     &executor.Result{Stdout: "03", Status: submission.ExecutionSuccess},
			wantStatus: submission.OutputDifference,
			wantActual: "03",
		},
		{
			name:        "compilation error",
			result:      &executor.Result{Stderr: "expected ';'", Status: submission.ExecutionCompilationError},
			wantStatus:  submission.CompilationError,
			wantMessage: "compilation error: expected ';'",
		},
		{
			name:        "runtime error",
			result:      &executor.Result{Stderr: "ZeroDivisionError\n", Status: submission.ExecutionRuntimeError},
			wantStatus:  submission.RuntimeError,
			wantMessage: "runtime error: ZeroDivisionError",
		},
		{
			name:        "timeout",
			result:      &executor.Result{Status: submission.ExecutionTimeout},
			wantStatus:  submission.TimeLimitExceeded,
			wantMessage: "time limit exceeded",
		},
		{
			name:        "execution error",
			execErr:     pkgerrors.NewExecutionError(pkgerrors.ExecutionErrorTransport, errors.New("dial"), "sandbox unreachable"),
			wantStatus:  submission.ExecutionFailed,
			wantMessage: "transport: sandbox unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := v.EvaluateTestCase(2, tc, tt.result, tt.execErr)
			if outcome.TestCaseID != "tc-1" || outcome.Order != 2 {
				t.Fatalf("unexpected identity: %+v", outcome)
			}
			if outcome.Passed != tt.wantPassed {
				t.Fatalf("expected passed=%v, got %v", tt.wantPassed, outcome.Passed)
			}
			if outcome.StatusCode != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, outcome.StatusCode)
			}
			if outcome.ErrorMessage != tt.wantMessage {
				t.Fatalf("expected message %q, got %q", tt.wantMessage, outcome.ErrorMessage)
			}
			if outcome.ActualOutput != tt.wantActual {
				t.Fatalf("expected actual %q, got %q", tt.wantActual, outcome.ActualOutput)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	v := verifier.NewDefaultVerifier()
	outcomes := []submission.ExecutionOutcome{{Passed: true}, {Passed: false}, {Passed: true}}

	summary := v.Summarize(outcomes, nil)
	if summary.PassedCount != 2 || summary.TotalCount != 3 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.PassRate != 67 {
		t.Fatalf("expected pass rate 67, got %d", summary.PassRate)
	}
	if summary.AllPassed {
		t.Fatalf("expected AllPassed=false")
	}
	if summary.Score != 67 {
		t.Fatalf("expected score to equal pass rate without review, got %d", summary.Score)
	}

	withReview := v.Summarize(outcomes, &submission.QualitativeReview{OverallScore: 80})
	// 0.7*67 + 0.3*80 = 70.9
	if withReview.Score != 71 {
		t.Fatalf("expected blended score 71, got %d", withReview.Score)
	}

	allPassed := v.Summarize([]submission.ExecutionOutcome{{Passed: true}}, nil)
	if !allPassed.AllPassed || allPassed.PassRate != 100 {
		t.Fatalf("expected all passed, got %+v", allPassed)
	}

	empty := v.Summarize(nil, nil)
	if empty.PassRate != 0 || empty.TotalCount != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestOverallScore_Monotonic(t *testing.T) {
	if got := verifier.OverallScore(100, 100, 100); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := verifier.OverallScore(0, 0, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	// 0.4*80 + 0.35*60 + 0.25*40 = 63
	if got := verifier.OverallScore(80, 60, 40); got != 63 {
		t.Fatalf("expected 63, got %d", got)
	}

	base := verifier.OverallScore(50, 50, 50)
	for _, raised := range []int{
		verifier.OverallScore(60, 50, 50),
		verifier.OverallScore(50, 60, 50),
		verifier.OverallScore(50, 50, 60),
	} {
		if raised < base {
			t.Fatalf("raising a component lowered the overall score: %d < %d", raised, base)
		}
	}
}

func TestEvaluateTestCase_NilResult(t *testing.T) {
	outcome := verifier.NewDefaultVerifier().EvaluateTestCase(1, submission.TestCase{ID: "x"}, nil, nil)
	if outcome.Passed || outcome.StatusCode != submission.ExecutionFailed {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if !strings.Contains(outcome.ErrorMessage, "no result") {
		t.Fatalf("unexpected message: %s", outcome.ErrorMessage)
	}
}

package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/mini-maxit/evaluator/internal/pipeline"
	"github.com/mini-maxit/evaluator/internal/repository"
	"github.com/mini-maxit/evaluator/internal/stages/reviewer"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	pkgerrors "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
	mocks "github.com/mini-maxit/evaluator/tests/mocks"
)

func validInput() submission.Input {
	return submission.Input{
		UserID:                  "user-1",
		QuestionID:              "two-sum",
		Code:                    "print(input())",
		Language:                "python",
		ApproachText:            "Read the line and echo it back.",
		DeclaredTimeComplexity:  "O(n)",
		DeclaredSpaceComplexity: "O(1)",
		TestCases: []submission.TestCase{
			{ID: "tc-1", Input: "1", ExpectedOutput: "1"},
			{ID: "tc-2", Input: "2", ExpectedOutput: "2"},
		},
	}
}

func passedOutcomes(input submission.Input) []submission.ExecutionOutcome {
	outcomes := make([]submission.ExecutionOutcome, len(input.TestCases))
	for i, tc := range input.TestCases {
		outcomes[i] = submission.ExecutionOutcome{
			TestCaseID:   tc.ID,
			Order:        i + 1,
			ActualOutput: tc.ExpectedOutput,
			Passed:       true,
			StatusCode:   submission.TestCasePassed,
		}
	}
	return outcomes
}

type managerMocks struct {
	runner   *mocks.MockRunner
	reviewer *mocks.MockReviewer
	detector *mocks.MockDetector
}

func newManager(t *testing.T, repo repository.SubmissionRepository) (pipeline.Manager, managerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := managerMocks{
		runner:   mocks.NewMockRunner(ctrl),
		reviewer: mocks.NewMockReviewer(ctrl),
		detector: mocks.NewMockDetector(ctrl),
	}
	if repo == nil {
		repo = repository.NewMemoryRepository()
	}
	return pipeline.NewManager(m.runner, verifier.NewDefaultVerifier(), m.reviewer, m.detector, repo, nil), m
}

func TestEvaluate_SuccessWithEnrichments(t *testing.T) {
	mgr, m := newManager(t, nil)
	input := validInput()
	input.CheckGrammar = true
	review := &submission.QualitativeReview{Correctness: 80, Efficiency: 80, CodeStyle: 80, OverallScore: 80}
	signal := &submission.AuthorshipSignal{HumanScore: 90, AIScore: 10, Provider: "sapling"}

	m.runner.EXPECT().RunAll(gomock.Any(), input.Code, input.Language, input.TestCases).
		Return(passedOutcomes(input)).Times(1)
	m.reviewer.EXPECT().Review(gomock.Any(), gomock.AssignableToTypeOf(reviewer.Request{})).DoAndReturn(
		func(_ context.Context, req reviewer.Request) (*submission.QualitativeReview, error) {
			if req.ApproachText != input.ApproachText || req.TimeComplexity != "O(n)" || !req.CheckGrammar {
				t.Fatalf("unexpected review request: %+v", req)
			}
			return review, nil
		}).Times(1)
	m.detector.EXPECT().Detect(gomock.Any(), input.ApproachText).Return(signal, nil).Times(1)

	got, err := mgr.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != submission.Evaluated {
		t.Fatalf("expected status evaluated, got %s", got.Status)
	}
	if got.ID == "" || got.EvaluatedAt == nil {
		t.Fatalf("expected id and evaluated_at to be set: %+v", got)
	}
	if len(got.TestOutcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got.TestOutcomes))
	}
	if got.Summary.PassRate != 100 || !got.Summary.AllPassed {
		t.Fatalf("unexpected summary: %+v", got.Summary)
	}
	if got.Summary.Score != 94 {
		t.Fatalf("expected blended score 94, got %d", got.Summary.Score)
	}
	if got.Qualitative == nil || got.Qualitative.OverallScore != 80 {
		t.Fatalf("expected review to be attached, got %+v", got.Qualitative)
	}
	if got.Authorship == nil || got.Authorship.HumanScore+got.Authorship.AIScore != 100 {
		t.Fatalf("expected authorship signal, got %+v", got.Authorship)
	}

	stored, err := mgr.GetSubmission(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("expected stored submission, got error %v", err)
	}
	if stored.Status != submission.Evaluated || stored.Summary != got.Summary {
		t.Fatalf("stored submission differs: %+v", stored)
	}
}

func TestEvaluate_ValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(in *submission.Input)
		field string
		err   error
	}{
		{"empty code", func(in *submission.Input) { in.Code = "" }, "code", pkgerrors.ErrEmptyCode},
		{"blank code", func(in *submission.Input) { in.Code = " \n\t" }, "code", pkgerrors.ErrEmptyCode},
		{"no test cases", func(in *submission.Input) { in.TestCases = nil }, "test_cases", pkgerrors.ErrNoTestCases},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any runner, reviewer or detector call fails the test.
			mgr, _ := newManager(t, nil)
			input := validInput()
			tt.mut(&input)

			got, err := mgr.Evaluate(context.Background(), input)
			var vErr *pkgerrors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field || !errors.Is(err, tt.err) {
				t.Fatalf("expected field %q with %v, got %v", tt.field, tt.err, vErr)
			}
			if got == nil || got.Status != submission.Failed || got.FailureReason == "" {
				t.Fatalf("expected failed record with reason, got %+v", got)
			}
			if len(got.TestOutcomes) != 0 || got.Qualitative != nil || got.Authorship != nil {
				t.Fatalf("failed record must not carry results: %+v", got)
			}

			stored, err := mgr.GetSubmission(context.Background(), got.ID)
			if err != nil || stored.Status != submission.Failed {
				t.Fatalf("expected failed record to be stored, got %+v, %v", stored, err)
			}
		})
	}
}

func TestEvaluate_EnrichmentFailuresAreOmitted(t *testing.T) {
	mgr, m := newManager(t, nil)
	input := validInput()
	outcomes := passedOutcomes(input)
	outcomes[1].Passed = false
	outcomes[1].StatusCode = submission.OutputDifference

	m.runner.EXPECT().RunAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(outcomes)
	m.reviewer.EXPECT().Review(gomock.Any(), gomock.Any()).
		Return(nil, &pkgerrors.ReviewError{Reason: "llm down"})
	m.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).
		Return(nil, &pkgerrors.DetectionError{Provider: "sapling", Reason: "quota"})

	got, err := mgr.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("enrichment failures must not fail the submission: %v", err)
	}
	if got.Status != submission.Evaluated {
		t.Fatalf("expected evaluated, got %s", got.Status)
	}
	if got.Qualitative != nil || got.Authorship != nil {
		t.Fatalf("expected enrichments to be omitted, got %+v / %+v", got.Qualitative, got.Authorship)
	}
	if got.Summary.PassRate != 50 || got.Summary.Score != 50 || got.Summary.AllPassed {
		t.Fatalf("expected score to equal pass rate 50, got %+v", got.Summary)
	}
}

func TestEvaluate_WithoutEnrichers(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRunner := mocks.NewMockRunner(ctrl)
	mgr := pipeline.NewManager(
		mockRunner, verifier.NewDefaultVerifier(), nil, nil, repository.NewMemoryRepository(), nil)
	input := validInput()

	mockRunner.EXPECT().RunAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(passedOutcomes(input))

	got, err := mgr.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Qualitative != nil || got.Authorship != nil || got.Summary.Score != 100 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestEvaluate_OutcomeCountMismatch(t *testing.T) {
	mgr, m := newManager(t, nil)
	input := validInput()

	m.runner.EXPECT().RunAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(passedOutcomes(input)[:1])
	m.reviewer.EXPECT().Review(gomock.Any(), gomock.Any()).
		Return(&submission.QualitativeReview{OverallScore: 50}, nil).AnyTimes()
	m.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).
		Return(&submission.AuthorshipSignal{HumanScore: 50, AIScore: 50}, nil).AnyTimes()

	got, err := mgr.Evaluate(context.Background(), input)
	var violation *pkgerrors.AggregationInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected AggregationInvariantViolation, got %v", err)
	}
	if violation.Expected != 2 || violation.Got != 1 {
		t.Fatalf("unexpected violation: %+v", violation)
	}
	if got == nil || got.Status != submission.Failed {
		t.Fatalf("expected failed record, got %+v", got)
	}
}

func TestEvaluate_PersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockSubmissionRepository(ctrl)
	mgr, m := newManager(t, mockRepo)
	input := validInput()
	storeErr := errors.New("connection refused")

	m.runner.EXPECT().RunAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(passedOutcomes(input))
	m.reviewer.EXPECT().Review(gomock.Any(), gomock.Any()).Return(nil, errors.New("skip"))
	m.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).Return(nil, errors.New("skip"))
	mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(storeErr).Times(1)

	got, err := mgr.Evaluate(context.Background(), input)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if got == nil || got.Status != submission.Evaluated {
		t.Fatalf("expected evaluated record alongside the error, got %+v", got)
	}
}

func TestGetSubmission_NotFound(t *testing.T) {
	mgr, _ := newManager(t, nil)

	_, err := mgr.GetSubmission(context.Background(), "missing")
	if !errors.Is(err, pkgerrors.ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestListSubmissions_ReturnsAttemptsInOrder(t *testing.T) {
	mgr, m := newManager(t, nil)
	input := validInput()

	m.runner.EXPECT().RunAll(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(passedOutcomes(input)).Times(2)
	m.reviewer.EXPECT().Review(gomock.Any(), gomock.Any()).Return(nil, errors.New("skip")).Times(2)
	m.detector.EXPECT().Detect(gomock.Any(), gomock.Any()).Return(nil, errors.New("skip")).Times(2)

	first, err := mgr.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := mgr.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := mgr.ListSubmissions(context.Background(), input.UserID, input.QuestionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected oldest first, got %s, %s", list[0].ID, list[1].ID)
	}

	other, err := mgr.ListSubmissions(context.Background(), input.UserID, "other-question")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected no submissions for another question, got %d, %v", len(other), err)
	}
}

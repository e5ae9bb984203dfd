package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/metrics"
	"github.com/mini-maxit/evaluator/internal/repository"
	"github.com/mini-maxit/evaluator/internal/stages/detector"
	"github.com/mini-maxit/evaluator/internal/stages/reviewer"
	"github.com/mini-maxit/evaluator/internal/stages/runner"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// Manager owns the lifecycle of submission records. It is the only writer
// of a submission; readers always receive copies.
type Manager interface {
	// Evaluate creates a fresh record for input and drives it to a terminal
	// state. On validation or aggregation failures the failed record is
	// returned together with the error.
	Evaluate(ctx context.Context, input submission.Input) (*submission.Submission, error)
	// GetSubmission returns in-flight records as well as stored ones.
	GetSubmission(ctx context.Context, id string) (*submission.Submission, error)
	ListSubmissions(ctx context.Context, userID, questionID string) ([]*submission.Submission, error)
}

type manager struct {
	runner   runner.Runner
	verifier verifier.Verifier
	reviewer reviewer.Reviewer
	detector detector.Detector
	repo     repository.SubmissionRepository
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger

	mu       sync.RWMutex
	inflight map[string]*submission.Submission
}

// NewManager wires the evaluation stages together. reviewer and detector
// may be nil, in which case the corresponding enrichment is skipped.
func NewManager(
	r runner.Runner,
	v verifier.Verifier,
	rev reviewer.Reviewer,
	det detector.Detector,
	repo repository.SubmissionRepository,
	m *metrics.Metrics,
) Manager {
	if m == nil {
		m = metrics.NewNop()
	}

	return &manager{
		runner:   r,
		verifier: v,
		reviewer: rev,
		detector: det,
		repo:     repo,
		metrics:  m,
		logger:   logger.NewNamedLogger("manager"),
		inflight: make(map[string]*submission.Submission),
	}
}

func (m *manager) Evaluate(ctx context.Context, input submission.Input) (*submission.Submission, error) {
	s := newSubmission(input)
	m.track(s)
	m.metrics.SubmissionStarted()
	defer m.metrics.SubmissionReleased()

	m.logger.Infof("Evaluating submission %s [user: %s, question: %s]", s.ID, s.UserID, s.QuestionID)

	if err := validate(input); err != nil {
		m.logger.Infof("Submission %s rejected: %s", s.ID, err)
		s.Status = submission.Failed
		s.FailureReason = fmt.Sprintf(constants.FailureReasonValidation, err.Err)
		return m.finish(ctx, s, err)
	}

	var (
		outcomes   []submission.ExecutionOutcome
		review     *submission.QualitativeReview
		authorship *submission.AuthorshipSignal
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		outcomes = m.runner.RunAll(ctx, input.Code, input.Language, input.TestCases)
		return nil
	})
	if m.reviewer != nil {
		g.Go(func() error {
			review = m.review(ctx, s.ID, input)
			return nil
		})
	}
	if m.detector != nil {
		g.Go(func() error {
			authorship = m.detect(ctx, s.ID, input.ApproachText)
			return nil
		})
	}
	_ = g.Wait()

	if len(outcomes) != len(input.TestCases) {
		violation := &customErr.AggregationInvariantViolation{Expected: len(input.TestCases), Got: len(outcomes)}
		m.logger.Errorf("Submission %s: %s", s.ID, violation)
		s.Status = submission.Failed
		s.FailureReason = fmt.Sprintf(constants.FailureReasonInvariant, violation)
		return m.finish(ctx, s, violation)
	}

	evaluatedAt := time.Now().UTC()
	s.TestOutcomes = outcomes
	s.Qualitative = review
	s.Authorship = authorship
	s.Summary = m.verifier.Summarize(outcomes, review)
	s.Status = submission.Evaluated
	s.EvaluatedAt = &evaluatedAt

	m.logger.Infof("Submission %s evaluated: %d/%d passed, score %d",
		s.ID, s.Summary.PassedCount, s.Summary.TotalCount, s.Summary.Score)
	return m.finish(ctx, s, nil)
}

func (m *manager) GetSubmission(ctx context.Context, id string) (*submission.Submission, error) {
	m.mu.RLock()
	s, ok := m.inflight[id]
	if ok {
		s = s.Clone()
	}
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	return m.repo.Get(ctx, id)
}

func (m *manager) ListSubmissions(ctx context.Context, userID, questionID string) ([]*submission.Submission, error) {
	return m.repo.ListByUserQuestion(ctx, userID, questionID)
}

func (m *manager) review(ctx context.Context, id string, input submission.Input) *submission.QualitativeReview {
	start := time.Now()
	review, err := m.reviewer.Review(ctx, reviewer.Request{
		Code:            input.Code,
		Language:        input.Language,
		ApproachText:    input.ApproachText,
		TimeComplexity:  input.DeclaredTimeComplexity,
		SpaceComplexity: input.DeclaredSpaceComplexity,
		TestCases:       input.TestCases,
		CheckGrammar:    input.CheckGrammar,
	})
	m.metrics.ObserveCall(metrics.ComponentReviewer, start, err)
	if err != nil {
		m.logger.Warnf("Review omitted for submission %s: %s", id, err)
		m.metrics.EnrichmentFailed(metrics.ComponentReviewer)
		return nil
	}
	return review
}

func (m *manager) detect(ctx context.Context, id, text string) *submission.AuthorshipSignal {
	start := time.Now()
	signal, err := m.detector.Detect(ctx, text)
	m.metrics.ObserveCall(metrics.ComponentDetector, start, err)
	if err != nil {
		m.logger.Warnf("Authorship signal omitted for submission %s: %s", id, err)
		m.metrics.EnrichmentFailed(metrics.ComponentDetector)
		return nil
	}
	return signal
}

// finish persists a terminal record, drops it from the in-flight set and
// returns a copy. cause is returned unchanged unless persisting fails too.
func (m *manager) finish(ctx context.Context, s *submission.Submission, cause error) (*submission.Submission, error) {
	start := time.Now()
	err := m.repo.Insert(context.WithoutCancel(ctx), s)
	m.metrics.ObserveCall(metrics.ComponentStore, start, err)
	m.untrack(s.ID)
	m.metrics.SubmissionFinished(s.Status.String())

	if err != nil {
		m.logger.Errorf("Failed to persist submission %s: %s", s.ID, err)
		persistErr := fmt.Errorf("failed to persist submission %s: %w", s.ID, err)
		if cause != nil {
			return s.Clone(), errors.Join(cause, persistErr)
		}
		return s.Clone(), persistErr
	}
	return s.Clone(), cause
}

func (m *manager) track(s *submission.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight[s.ID] = s.Clone()
}

func (m *manager) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, id)
}

func newSubmission(input submission.Input) *submission.Submission {
	return &submission.Submission{
		ID:                      uuid.NewString(),
		UserID:                  input.UserID,
		QuestionID:              input.QuestionID,
		SessionID:               input.SessionID,
		Code:                    input.Code,
		Language:                input.Language,
		ApproachText:            input.ApproachText,
		DeclaredTimeComplexity:  input.DeclaredTimeComplexity,
		DeclaredSpaceComplexity: input.DeclaredSpaceComplexity,
		TimeSpentSeconds:        input.TimeSpentSeconds,
		TestOutcomes:            []submission.ExecutionOutcome{},
		Status:                  submission.Pending,
		CreatedAt:               time.Now().UTC(),
	}
}

func validate(input submission.Input) *customErr.ValidationError {
	if strings.TrimSpace(input.Code) == "" {
		return &customErr.ValidationError{Field: "code", Err: customErr.ErrEmptyCode}
	}
	if len(input.TestCases) == 0 {
		return &customErr.ValidationError{Field: "test_cases", Err: customErr.ErrNoTestCases}
	}
	return nil
}

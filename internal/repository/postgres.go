package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id                        UUID PRIMARY KEY,
	user_id                   TEXT NOT NULL,
	question_id               TEXT NOT NULL,
	session_id                TEXT NOT NULL DEFAULT '',
	code                      TEXT NOT NULL,
	language                  TEXT NOT NULL,
	approach_text             TEXT NOT NULL DEFAULT '',
	declared_time_complexity  TEXT NOT NULL DEFAULT '',
	declared_space_complexity TEXT NOT NULL DEFAULT '',
	time_spent_seconds        INTEGER NOT NULL DEFAULT 0,
	test_outcomes             JSONB NOT NULL,
	summary                   JSONB NOT NULL,
	qualitative               JSONB,
	authorship                JSONB,
	status                    TEXT NOT NULL,
	failure_reason            TEXT NOT NULL DEFAULT '',
	created_at                TIMESTAMPTZ NOT NULL,
	evaluated_at              TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS submissions_user_question_idx ON submissions (user_id, question_id, created_at);
`

// submissionRow maps a submissions table row.
type submissionRow struct {
	ID                      string             `db:"id"`
	UserID                  string             `db:"user_id"`
	QuestionID              string             `db:"question_id"`
	SessionID               string             `db:"session_id"`
	Code                    string             `db:"code"`
	Language                string             `db:"language"`
	ApproachText            string             `db:"approach_text"`
	DeclaredTimeComplexity  string             `db:"declared_time_complexity"`
	DeclaredSpaceComplexity string             `db:"declared_space_complexity"`
	TimeSpentSeconds        int                `db:"time_spent_seconds"`
	TestOutcomes            types.JSONText     `db:"test_outcomes"`
	Summary                 types.JSONText     `db:"summary"`
	Qualitative             types.NullJSONText `db:"qualitative"`
	Authorship              types.NullJSONText `db:"authorship"`
	Status                  string             `db:"status"`
	FailureReason           string             `db:"failure_reason"`
	CreatedAt               time.Time          `db:"created_at"`
	EvaluatedAt             sql.NullTime       `db:"evaluated_at"`
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the submissions table and its index when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PostgresRepository) Insert(ctx context.Context, s *submission.Submission) error {
	if err := checkInsertable(s); err != nil {
		return err
	}

	row, err := toRow(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (
			id, user_id, question_id, session_id, code, language, approach_text,
			declared_time_complexity, declared_space_complexity, time_spent_seconds,
			test_outcomes, summary, qualitative, authorship, status, failure_reason,
			created_at, evaluated_at
		) VALUES (
			:id, :user_id, :question_id, :session_id, :code, :language, :approach_text,
			:declared_time_complexity, :declared_space_complexity, :time_spent_seconds,
			:test_outcomes, :summary, :qualitative, :authorship, :status, :failure_reason,
			:created_at, :evaluated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return customErr.ErrSubmissionExists
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*submission.Submission, error) {
	var row submissionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM submissions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customErr.ErrSubmissionNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		// Ids that are not valid uuids cannot exist.
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return nil, customErr.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return fromRow(row)
}

func (r *PostgresRepository) ListByUserQuestion(
	ctx context.Context,
	userID, questionID string,
) ([]*submission.Submission, error) {
	var rows []submissionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM submissions WHERE user_id = $1 AND question_id = $2 ORDER BY created_at, id`,
		userID, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	result := make([]*submission.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func toRow(s *submission.Submission) (submissionRow, error) {
	s = withoutNUL(s)
	outcomes := s.TestOutcomes
	if outcomes == nil {
		outcomes = []submission.ExecutionOutcome{}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return submissionRow{}, fmt.Errorf("failed to marshal test outcomes: %w", err)
	}
	summaryJSON, err := json.Marshal(s.Summary)
	if err != nil {
		return submissionRow{}, fmt.Errorf("failed to marshal summary: %w", err)
	}

	row := submissionRow{
		ID:                      s.ID,
		UserID:                  s.UserID,
		QuestionID:              s.QuestionID,
		SessionID:               s.SessionID,
		Code:                    s.Code,
		Language:                s.Language,
		ApproachText:            s.ApproachText,
		DeclaredTimeComplexity:  s.DeclaredTimeComplexity,
		DeclaredSpaceComplexity: s.DeclaredSpaceComplexity,
		TimeSpentSeconds:        s.TimeSpentSeconds,
		TestOutcomes:            types.JSONText(outcomesJSON),
		Summary:                 types.JSONText(summaryJSON),
		Status:                  s.Status.String(),
		FailureReason:           s.FailureReason,
		CreatedAt:               s.CreatedAt,
	}
	if s.Qualitative != nil {
		review, err := json.Marshal(s.Qualitative)
		if err != nil {
			return submissionRow{}, fmt.Errorf("failed to marshal review: %w", err)
		}
		row.Qualitative = types.NullJSONText{JSONText: review, Valid: true}
	}
	if s.Authorship != nil {
		authorship, err := json.Marshal(s.Authorship)
		if err != nil {
			return submissionRow{}, fmt.Errorf("failed to marshal authorship: %w", err)
		}
		row.Authorship = types.NullJSONText{JSONText: authorship, Valid: true}
	}
	if s.EvaluatedAt != nil {
		row.EvaluatedAt = sql.NullTime{Time: *s.EvaluatedAt, Valid: true}
	}
	return row, nil
}

func fromRow(row submissionRow) (*submission.Submission, error) {
	s := &submission.Submission{
		ID:                      row.ID,
		UserID:                  row.UserID,
		QuestionID:              row.QuestionID,
		SessionID:               row.SessionID,
		Code:                    row.Code,
		Language:                row.Language,
		ApproachText:            row.ApproachText,
		DeclaredTimeComplexity:  row.DeclaredTimeComplexity,
		DeclaredSpaceComplexity: row.DeclaredSpaceComplexity,
		TimeSpentSeconds:        row.TimeSpentSeconds,
		FailureReason:           row.FailureReason,
		CreatedAt:               row.CreatedAt,
	}

	status, err := submission.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	s.Status = status

	if err := row.TestOutcomes.Unmarshal(&s.TestOutcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test outcomes: %w", err)
	}
	if err := row.Summary.Unmarshal(&s.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if row.Qualitative.Valid {
		s.Qualitative = &submission.QualitativeReview{}
		if err := row.Qualitative.Unmarshal(s.Qualitative); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review: %w", err)
		}
	}
	if row.Authorship.Valid {
		s.Authorship = &submission.AuthorshipSignal{}
		if err := row.Authorship.Unmarshal(s.Authorship); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authorship: %w", err)
		}
	}
	if row.EvaluatedAt.Valid {
		evaluatedAt := row.EvaluatedAt.Time
		s.EvaluatedAt = &evaluatedAt
	}
	return s, nil
}

// withoutNUL returns a copy with NUL bytes removed from every text field.
// PostgreSQL rejects them in TEXT columns and as \u0000 in JSONB.
func withoutNUL(s *submission.Submission) *submission.Submission {
	c := s.Clone()
	c.UserID = stripNUL(c.UserID)
	c.QuestionID = stripNUL(c.QuestionID)
	c.SessionID = stripNUL(c.SessionID)
	c.Code = stripNUL(c.Code)
	c.Language = stripNUL(c.Language)
	c.ApproachText = stripNUL(c.ApproachText)
	c.DeclaredTimeComplexity = stripNUL(c.DeclaredTimeComplexity)
	c.DeclaredSpaceComplexity = stripNUL(c.DeclaredSpaceComplexity)
	c.FailureReason = stripNUL(c.FailureReason)
	for i := range c.TestOutcomes {
		o := &c.TestOutcomes[i]
		o.TestCaseID = stripNUL(o.TestCaseID)
		o.ActualOutput = stripNUL(o.ActualOutput)
		o.ErrorMessage = stripNUL(o.ErrorMessage)
	}
	if c.Qualitative != nil {
		c.Qualitative.Comments = stripNUL(c.Qualitative.Comments)
		c.Qualitative.GrammarFeedback = stripNUL(c.Qualitative.GrammarFeedback)
	}
	if c.Authorship != nil {
		c.Authorship.Provider = stripNUL(c.Authorship.Provider)
	}
	return c
}

func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

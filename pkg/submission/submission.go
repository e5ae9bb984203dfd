package submission

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status int

const (
	// Means the submission was accepted and evaluation is in progress.
	Pending Status = iota + 1
	// Means the test run completed. Enrichments may or may not be present.
	Evaluated
	// Means the submission was rejected at intake or an internal invariant broke.
	Failed
)

var statusNames = map[Status]string{
	Pending:   "pending",
	Evaluated: "evaluated",
	Failed:    "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) IsTerminal() bool {
	return s == Evaluated || s == Failed
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown submission status %q", name)
}

// ExecutionStatus is the status tag reported by a sandbox for a single run.
type ExecutionStatus string

const (
	ExecutionSuccess          ExecutionStatus = "success"
	ExecutionCompilationError ExecutionStatus = "compilation_error"
	ExecutionRuntimeError     ExecutionStatus = "runtime_error"
	ExecutionTimeout          ExecutionStatus = "timeout"
)

type TestCaseStatus string

const (
	TestCasePassed    TestCaseStatus = "passed"
	OutputDifference  TestCaseStatus = "output_difference"
	CompilationError  TestCaseStatus = "compilation_error"
	RuntimeError      TestCaseStatus = "runtime_error"
	TimeLimitExceeded TestCaseStatus = "time_limit_exceeded"
	ExecutionFailed   TestCaseStatus = "execution_failed"
)

// TestCase is a read-only fixture shared by every submission for a problem.
type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Explanation    string `json:"explanation,omitempty"`
}

type ExecutionOutcome struct {
	TestCaseID   string         `json:"test_case_id"`
	Order        int            `json:"order"` // 1-based position of the test case in the request
	ActualOutput string         `json:"actual_output"`
	Passed       bool           `json:"passed"`
	StatusCode   TestCaseStatus `json:"status_code"`
	// Error message in case of failure. Does not describe output differences.
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMs   int64  `json:"duration_ms,omitempty"`
	MemoryKb     int64  `json:"memory_kb,omitempty"`
}

type QualitativeReview struct {
	Correctness     int    `json:"correctness"`
	Efficiency      int    `json:"efficiency"`
	CodeStyle       int    `json:"code_style"`
	OverallScore    int    `json:"overall_score"`
	Comments        string `json:"comments"`
	GrammarFeedback string `json:"grammar_feedback,omitempty"`
}

// AuthorshipSignal is advisory. HumanScore + AIScore is always 100.
type AuthorshipSignal struct {
	HumanScore int    `json:"human_score"`
	AIScore    int    `json:"ai_score"`
	Provider   string `json:"provider,omitempty"`
}

type Summary struct {
	PassedCount int  `json:"passed_count"`
	TotalCount  int  `json:"total_count"`
	PassRate    int  `json:"pass_rate"`
	AllPassed   bool `json:"all_passed"`
	Score       int  `json:"score"`
}

type Submission struct {
	ID                      string             `json:"id"`
	UserID                  string             `json:"user_id"`
	QuestionID              string             `json:"question_id"`
	SessionID               string             `json:"session_id,omitempty"`
	Code                    string             `json:"code"`
	Language                string             `json:"language"`
	ApproachText            string             `json:"approach_text"`
	DeclaredTimeComplexity  string             `json:"declared_time_complexity"`
	DeclaredSpaceComplexity string             `json:"declared_space_complexity"`
	TimeSpentSeconds        int                `json:"time_spent_seconds,omitempty"`
	TestOutcomes            []ExecutionOutcome `json:"test_outcomes"`
	Summary                 Summary            `json:"summary"`
	Qualitative             *QualitativeReview `json:"qualitative,omitempty"`
	Authorship              *AuthorshipSignal  `json:"authorship,omitempty"`
	Status                  Status             `json:"status"`
	FailureReason           string             `json:"failure_reason,omitempty"`
	CreatedAt               time.Time          `json:"created_at"`
	EvaluatedAt             *time.Time         `json:"evaluated_at,omitempty"`
}

// Clone returns a deep copy, so readers never share memory with the record
// owned by the manager.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.TestOutcomes != nil {
		c.TestOutcomes = make([]ExecutionOutcome, len(s.TestOutcomes))
		copy(c.TestOutcomes, s.TestOutcomes)
	}
	if s.Qualitative != nil {
		q := *s.Qualitative
		c.Qualitative = &q
	}
	if s.Authorship != nil {
		a := *s.Authorship
		c.Authorship = &a
	}
	if s.EvaluatedAt != nil {
		t := *s.EvaluatedAt
		c.EvaluatedAt = &t
	}
	return &c
}

// Input is everything a caller supplies to evaluate one attempt.
type Input struct {
	UserID                  string     `json:"user_id"`
	QuestionID              string     `json:"question_id"`
	SessionID               string     `json:"session_id,omitempty"`
	Code                    string     `json:"code"`
	Language                string     `json:"language"`
	ApproachText            string     `json:"approach_text"`
	DeclaredTimeComplexity  string     `json:"declared_time_complexity"`
	DeclaredSpaceComplexity string     `json:"declared_space_complexity"`
	TimeSpentSeconds        int        `json:"time_spent_seconds,omitempty"`
	TestCases               []TestCase `json:"test_cases"`
	CheckGrammar            bool       `json:"check_grammar,omitempty"`
}

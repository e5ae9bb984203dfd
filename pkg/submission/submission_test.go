package submission_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mini-maxit/evaluator/pkg/submission"
)

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(submission.Evaluated)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"evaluated"` {
		t.Fatalf("expected \"evaluated\", got %s", data)
	}

	var status submission.Status
	if err := json.Unmarshal([]byte(`"failed"`), &status); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if status != submission.Failed {
		t.Fatalf("expected failed, got %s", status)
	}

	if err := json.Unmarshal([]byte(`"archived"`), &status); err == nil {
		t.Fatal("expected error for an unknown status")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if submission.Pending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	if !submission.Evaluated.IsTerminal() || !submission.Failed.IsTerminal() {
		t.Fatal("evaluated and failed must be terminal")
	}
}

func TestClone_DoesNotShareMemory(t *testing.T) {
	evaluatedAt := time.Now().UTC()
	original := &submission.Submission{
		ID:           "s-1",
		TestOutcomes: []submission.ExecutionOutcome{{TestCaseID: "tc-1", Order: 1, Passed: true}},
		Qualitative:  &submission.QualitativeReview{OverallScore: 80},
		Authorship:   &submission.AuthorshipSignal{HumanScore: 90, AIScore: 10},
		EvaluatedAt:  &evaluatedAt,
	}

	clone := original.Clone()
	clone.TestOutcomes[0].Passed = false
	clone.Qualitative.OverallScore = 10
	clone.Authorship.AIScore = 50
	*clone.EvaluatedAt = evaluatedAt.Add(time.Hour)

	if !original.TestOutcomes[0].Passed {
		t.Fatal("clone shares test outcomes with the original")
	}
	if original.Qualitative.OverallScore != 80 || original.Authorship.AIScore != 10 {
		t.Fatal("clone shares enrichments with the original")
	}
	if !original.EvaluatedAt.Equal(evaluatedAt) {
		t.Fatal("clone shares the evaluation time with the original")
	}

	var nilSubmission *submission.Submission
	if nilSubmission.Clone() != nil {
		t.Fatal("expected nil clone of a nil submission")
	}
}

func TestInput_OmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(submission.Input{Code: "x", Language: "python"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"session_id", "time_spent_seconds", "check_grammar"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("expected %s to be omitted, got %s", key, data)
		}
	}
}

package reviewer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	labelRegex     = regexp.MustCompile(`(?im)^[\s*#\-\d.{",]*(correctness|efficiency|code[\s_-]*style)\W*?[:=]\s*["*]*\s*(\d{1,3}(?:\.\d+)?)`)
	outOfTenRegex  = regexp.MustCompile(`(?i)(/\s*10\b|out of 10\b)`)
)

type rawReview struct {
	Correctness     *flexScore `json:"correctness"`
	Efficiency      *flexScore `json:"efficiency"`
	CodeStyle       *flexScore `json:"codeStyle"`
	CodeStyleSnake  *flexScore `json:"code_style"`
	Comments        string     `json:"comments"`
	Feedback        string     `json:"feedback"`
	GrammarFeedback string     `json:"grammarFeedback"`
}

// flexScore accepts JSON numbers and numeric strings such as "85", "85%"
// or "85/100".
type flexScore float64

func (f *flexScore) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(data), `"`))
	raw, _, _ = strings.Cut(raw, "/")
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid score %s: %w", data, err)
	}
	*f = flexScore(value)
	return nil
}

// ParseReview extracts a review from a model response. It accepts a JSON
// object, optionally inside a code fence or surrounded by prose, repairs
// broken JSON, and finally falls back to "label: number" lines. The overall
// score is always computed locally.
func ParseReview(content string) (*submission.QualitativeReview, error) {
	if raw, ok := parseJSON(content); ok {
		return buildReview(raw, content)
	}

	raw, ok := parseLabels(content)
	if !ok {
		return nil, &customErr.ReviewError{Reason: "no scores found in response", Err: customErr.ErrMalformedReview}
	}
	return buildReview(raw, content)
}

func parseJSON(content string) (rawReview, bool) {
	candidate := content
	if match := codeFenceRegex.FindStringSubmatch(content); match != nil {
		candidate = match[1]
	}

	start := strings.Index(candidate, "{")
	if start == -1 {
		return rawReview{}, false
	}
	if end := strings.LastIndex(candidate, "}"); end > start {
		candidate = candidate[start : end+1]
	} else {
		candidate = candidate[start:]
	}

	var raw rawReview
	if err := json.Unmarshal([]byte(candidate), &raw); err == nil {
		return raw, true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return rawReview{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return rawReview{}, false
	}
	return raw, true
}

func parseLabels(content string) (rawReview, bool) {
	var raw rawReview
	found := false
	for _, match := range labelRegex.FindAllStringSubmatch(content, -1) {
		parsed, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		value := flexScore(parsed)
		label := strings.ToLower(match[1])
		switch {
		case label == "correctness" && raw.Correctness == nil:
			raw.Correctness = &value
		case label == "efficiency" && raw.Efficiency == nil:
			raw.Efficiency = &value
		case strings.HasPrefix(label, "code") && raw.CodeStyle == nil:
			raw.CodeStyle = &value
		default:
			continue
		}
		found = true
	}
	return raw, found
}

func buildReview(raw rawReview, content string) (*submission.QualitativeReview, error) {
	codeStyle := raw.CodeStyle
	if codeStyle == nil {
		codeStyle = raw.CodeStyleSnake
	}

	correctness, err := score("correctness", raw.Correctness)
	if err != nil {
		return nil, err
	}
	efficiency, err := score("efficiency", raw.Efficiency)
	if err != nil {
		return nil, err
	}
	style, err := score("codeStyle", codeStyle)
	if err != nil {
		return nil, err
	}
	// A model answering on a 0-10 scale would otherwise be read as near-zero.
	if correctness <= 10 && efficiency <= 10 && style <= 10 && outOfTenRegex.MatchString(content) {
		return nil, &customErr.ReviewError{Reason: "scores are on a 0-10 scale", Err: customErr.ErrMalformedReview}
	}

	comments := strings.TrimSpace(raw.Comments)
	if comments == "" {
		comments = strings.TrimSpace(raw.Feedback)
	}
	if comments == "" {
		comments = strings.TrimSpace(content)
	}

	return &submission.QualitativeReview{
		Correctness:     correctness,
		Efficiency:      efficiency,
		CodeStyle:       style,
		OverallScore:    verifier.OverallScore(correctness, efficiency, style),
		Comments:        comments,
		GrammarFeedback: strings.TrimSpace(raw.GrammarFeedback),
	}, nil
}

func score(name string, value *flexScore) (int, error) {
	if value == nil {
		return 0, &customErr.ReviewError{Reason: fmt.Sprintf("missing %s score", name), Err: customErr.ErrMalformedReview}
	}
	if *value < 0 || *value > constants.MaxScore {
		return 0, &customErr.ReviewError{
			Reason: fmt.Sprintf("%s score %g is out of range", name, float64(*value)),
			Err:    customErr.ErrMalformedReview,
		}
	}
	return int(math.Round(float64(*value))), nil
}

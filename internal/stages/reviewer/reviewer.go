package reviewer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/logger"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

const systemPrompt = `You are a senior engineer reviewing a candidate's solution to a coding interview question.
Score the submission from 0 to 100 on correctness, efficiency and code style. Scores are plain numbers on a 0-100 scale, never out of 10.
Respond with a single JSON object and nothing else, using exactly these keys:
{"correctness": <0-100>, "efficiency": <0-100>, "codeStyle": <0-100>, "comments": "<specific feedback and suggestions>", "grammarFeedback": "<grammar feedback on the approach, or empty>"}`

// Request carries everything the reviewer embeds in the prompt.
type Request struct {
	Code            string
	Language        string
	ApproachText    string
	TimeComplexity  string
	SpaceComplexity string
	TestCases       []submission.TestCase
	CheckGrammar    bool
}

type Reviewer interface {
	Review(ctx context.Context, req Request) (*submission.QualitativeReview, error)
}

type reviewer struct {
	client  *openai.Client
	model   string
	hasKey  bool
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewReviewer returns a reviewer talking to an OpenAI compatible chat
// completion API at cfg.BaseURL.
func NewReviewer(cfg config.ReviewConfig) Reviewer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &reviewer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		hasKey:  cfg.APIKey != "",
		timeout: cfg.Timeout,
		logger:  logger.NewNamedLogger("reviewer"),
	}
}

func (r *reviewer) Review(ctx context.Context, req Request) (*submission.QualitativeReview, error) {
	if !r.hasKey {
		return nil, &customErr.ReviewError{Reason: "review api key is not configured", Err: customErr.ErrMissingCredentials}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Warnf("Review request failed: %s", err)
		return nil, &customErr.ReviewError{Reason: "review service unreachable", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &customErr.ReviewError{Reason: "review service returned no choices", Err: customErr.ErrMalformedReview}
	}

	review, err := ParseReview(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Warnf("Failed to parse review: %s", err)
		return nil, err
	}
	if !req.CheckGrammar {
		review.GrammarFeedback = ""
	}

	return review, nil
}

// BuildPrompt renders the user message for a review request.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Please evaluate this coding submission.\n\n")
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Declared time complexity: %s\n", orNotProvided(req.TimeComplexity))
	fmt.Fprintf(&b, "Declared space complexity: %s\n\n", orNotProvided(req.SpaceComplexity))
	fmt.Fprintf(&b, "Approach:\n%s\n\n", orNotProvided(req.ApproachText))

	b.WriteString("Test cases:\n")
	for i, tc := range req.TestCases {
		fmt.Fprintf(&b, "%d. input: %q expected output: %q\n", i+1, tc.Input, tc.ExpectedOutput)
		if tc.Explanation != "" {
			fmt.Fprintf(&b, "   explanation: %s\n", tc.Explanation)
		}
	}

	fmt.Fprintf(&b, "\nCode:\n```%s\n%s\n```\n\n", req.Language, req.Code)
	b.WriteString("Check whether the declared complexities match the code.")
	if req.CheckGrammar {
		b.WriteString(" Also check the grammar and clarity of the approach and put the result in grammarFeedback.")
	} else {
		b.WriteString(" Leave grammarFeedback empty.")
	}

	return b.String()
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not provided)"
	}
	return s
}

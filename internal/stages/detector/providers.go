package detector

import (
	"context"
	"net/http"
	"strings"

	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
)

type sapling struct {
	url    string
	apiKey string
	client *http.Client
}

type saplingRequest struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Sapling returns a probability in [0, 1]. Older responses carry a list of
// scores instead of a single value.
type saplingResponse struct {
	Score  *float64  `json:"score"`
	Scores []float64 `json:"scores"`
}

func (s *sapling) name() string { return constants.DetectionProviderSapling }

func (s *sapling) aiPercentage(ctx context.Context, text string) (float64, error) {
	var resp saplingResponse
	if err := postJSON(ctx, s.client, s.name(), s.url, nil, saplingRequest{Key: s.apiKey, Text: text}, &resp); err != nil {
		return 0, err
	}

	switch {
	case resp.Score != nil:
		return *resp.Score * 100, nil
	case len(resp.Scores) > 0:
		return resp.Scores[0] * 100, nil
	default:
		return 0, &customErr.DetectionError{Provider: s.name(), Reason: "response has no score", Err: customErr.ErrMalformedDetection}
	}
}

type zeroGPT struct {
	url    string
	apiKey string
	client *http.Client
}

type zeroGPTRequest struct {
	InputText string `json:"input_text"`
	TextWords int    `json:"textWords"`
}

type zeroGPTResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		FakePercentage *float64 `json:"fakePercentage"`
	} `json:"data"`
}

func (z *zeroGPT) name() string { return constants.DetectionProviderZeroGPT }

func (z *zeroGPT) aiPercentage(ctx context.Context, text string) (float64, error) {
	var resp zeroGPTResponse
	headers := map[string]string{"ApiKey": z.apiKey}
	payload := zeroGPTRequest{InputText: text, TextWords: len(strings.Fields(text))}
	if err := postJSON(ctx, z.client, z.name(), z.url, headers, payload, &resp); err != nil {
		return 0, err
	}

	if resp.Data == nil || resp.Data.FakePercentage == nil {
		reason := "response has no fakePercentage"
		if resp.Message != "" {
			reason += ": " + resp.Message
		}
		return 0, &customErr.DetectionError{Provider: z.name(), Reason: reason, Err: customErr.ErrMalformedDetection}
	}
	return *resp.Data.FakePercentage, nil
}

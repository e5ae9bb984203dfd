package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// Detector estimates whether a text was written by a person or generated.
type Detector interface {
	Detect(ctx context.Context, text string) (*submission.AuthorshipSignal, error)
}

// provider returns the probability, in percent, that text was generated.
type provider interface {
	name() string
	aiPercentage(ctx context.Context, text string) (float64, error)
}

type detector struct {
	provider provider
	apiKey   string
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// New returns the detector selected by cfg.Provider.
func New(cfg config.DetectionConfig) (Detector, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var p provider
	switch cfg.Provider {
	case constants.DetectionProviderSapling:
		p = &sapling{url: cfg.URL, apiKey: cfg.APIKey, client: client}
	case constants.DetectionProviderZeroGPT:
		p = &zeroGPT{url: cfg.URL, apiKey: cfg.APIKey, client: client}
	default:
		return nil, fmt.Errorf("%w: %s", customErr.ErrUnknownProvider, cfg.Provider)
	}

	return &detector{
		provider: p,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		logger:   logger.NewNamedLogger("detector"),
	}, nil
}

func (d *detector) Detect(ctx context.Context, text string) (*submission.AuthorshipSignal, error) {
	if strings.TrimSpace(text) == "" {
		return &submission.AuthorshipSignal{HumanScore: constants.MaxScore, AIScore: 0, Provider: d.provider.name()}, nil
	}
	if d.apiKey == "" {
		return nil, &customErr.DetectionError{
			Provider: d.provider.name(),
			Reason:   "api key is not configured",
			Err:      customErr.ErrMissingCredentials,
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	percentage, err := d.provider.aiPercentage(ctx, text)
	if err != nil {
		d.logger.Warnf("%s detection failed: %s", d.provider.name(), err)
		return nil, err
	}
	if math.IsNaN(percentage) || percentage < 0 || percentage > constants.MaxScore {
		return nil, &customErr.DetectionError{
			Provider: d.provider.name(),
			Reason:   fmt.Sprintf("score %g is out of range", percentage),
			Err:      customErr.ErrMalformedDetection,
		}
	}

	ai := int(math.Round(percentage))
	return &submission.AuthorshipSignal{
		HumanScore: constants.MaxScore - ai,
		AIScore:    ai,
		Provider:   d.provider.name(),
	}, nil
}

// postJSON sends payload and decodes a 2xx response into out.
func postJSON(
	ctx context.Context,
	client *http.Client,
	providerName, url string,
	headers map[string]string,
	payload, out any,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &customErr.DetectionError{Provider: providerName, Reason: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &customErr.DetectionError{Provider: providerName, Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &customErr.DetectionError{Provider: providerName, Reason: "service unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &customErr.DetectionError{Provider: providerName, Reason: "failed to read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &customErr.DetectionError{
			Provider: providerName,
			Reason:   fmt.Sprintf("service returned %s: %s", resp.Status, strings.TrimSpace(string(respBody))),
		}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &customErr.DetectionError{Provider: providerName, Reason: "malformed response", Err: customErr.ErrMalformedDetection}
	}
	return nil
}

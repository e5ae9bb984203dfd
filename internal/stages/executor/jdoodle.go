package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/logger"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
	"github.com/mini-maxit/evaluator/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const jdoodleTimeoutMarker = "JDoodle - Timeout"

type jdoodleRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	Stdin        string `json:"stdin"`
}

type jdoodleResponse struct {
	Output             string     `json:"output"`
	StatusCode         int        `json:"statusCode"`
	Memory             flexNumber `json:"memory"`
	CPUTime            flexNumber `json:"cpuTime"`
	IsExecutionSuccess *bool      `json:"isExecutionSuccess"`
	IsCompiled         *bool      `json:"isCompiled"`
	Error              string     `json:"error"`
}

// flexNumber accepts both JSON numbers and numeric strings. JDoodle reports
// memory and cpuTime as strings, and as null when the program did not run.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*n = flexNumber(value)
	return nil
}

type jdoodleExecutor struct {
	url          string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *zap.SugaredLogger
}

// NewJDoodleExecutor returns an executor backed by the JDoodle execute API.
// Calls are paced by a limiter shared by every caller of the executor. A
// non-positive rate disables pacing.
func NewJDoodleExecutor(cfg config.SandboxConfig) Executor {
	limit := rate.Limit(cfg.RatePerSec)
	if cfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	burst := int(math.Ceil(cfg.RatePerSec))
	if burst < 1 {
		burst = 1
	}

	return &jdoodleExecutor{
		url:          cfg.URL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger.NewNamedLogger("jdoodle-executor"),
	}
}

func (j *jdoodleExecutor) Execute(ctx context.Context, code, language, stdin string) (*Result, error) {
	lang, err := validateRequest(code, language)
	if err != nil {
		return nil, err
	}
	name, versionIndex, err := lang.JDoodle()
	if err != nil {
		return nil, customErr.NewExecutionError(
			customErr.ExecutionErrorUnsupportedLanguage, err, "language %s is not available on jdoodle", lang)
	}
	if j.clientID == "" || j.clientSecret == "" {
		return nil, customErr.NewExecutionError(
			customErr.ExecutionErrorSandbox, customErr.ErrMissingCredentials, "jdoodle credentials are not configured")
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	body, err := json.Marshal(jdoodleRequest{
		ClientID:     j.clientID,
		ClientSecret: j.clientSecret,
		Script:       code,
		Language:     name,
		VersionIndex: versionIndex,
		Stdin:        stdin,
	})
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorInvalidInput, err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(body))
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorTransport, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		j.logger.Errorf("JDoodle returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
		return nil, customErr.NewExecutionError(
			customErr.ExecutionErrorSandbox, nil, "%s", describeJDoodleStatus(resp.StatusCode, respBody))
	}

	var parsed jdoodleResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorSandbox, err, "malformed sandbox response")
	}
	if parsed.Error != "" {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorSandbox, nil, "%s", parsed.Error)
	}

	result := toResult(parsed)
	j.logger.Debugf("JDoodle run finished with status %s in %s", result.Status, time.Since(start))
	return result, nil
}

func toResult(parsed jdoodleResponse) *Result {
	result := &Result{
		Status:     submission.ExecutionSuccess,
		ExecTimeMs: int64(math.Round(float64(parsed.CPUTime) * 1000)),
		MemoryKb:   int64(parsed.Memory),
	}

	switch {
	case strings.Contains(parsed.Output, jdoodleTimeoutMarker):
		result.Status = submission.ExecutionTimeout
		result.Stderr = parsed.Output
	case parsed.IsCompiled != nil && !*parsed.IsCompiled:
		result.Status = submission.ExecutionCompilationError
		result.Stderr = parsed.Output
	case parsed.IsExecutionSuccess != nil && !*parsed.IsExecutionSuccess:
		result.Status = submission.ExecutionRuntimeError
		result.Stderr = parsed.Output
	default:
		result.Stdout = utils.TrimTrailingWhitespace(parsed.Output)
	}

	return result
}

func describeJDoodleStatus(status int, body []byte) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "sandbox rejected credentials"
	case http.StatusTooManyRequests:
		return "sandbox credits exhausted"
	}
	var parsed jdoodleResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Sprintf("sandbox returned status %d: %s", status, parsed.Error)
	}
	return fmt.Sprintf("sandbox returned status %d", status)
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return customErr.NewExecutionError(customErr.ExecutionErrorTimeout, err, "sandbox call timed out")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return customErr.NewExecutionError(customErr.ExecutionErrorTimeout, err, "sandbox call timed out")
	}
	return customErr.NewExecutionError(customErr.ExecutionErrorTransport, err, "sandbox unreachable: %v", err)
}

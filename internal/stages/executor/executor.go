package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/docker"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// Result is the outcome of a single sandbox run. Stdout has trailing
// whitespace removed.
type Result struct {
	Stdout     string
	Stderr     string
	Status     submission.ExecutionStatus
	ExecTimeMs int64
	MemoryKb   int64
}

// Executor runs code once against a single stdin. Implementations hold no
// state between calls and are safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, code, language, stdin string) (*Result, error)
}

// New returns the executor selected by cfg.Provider. The docker client is
// only used by the docker provider and may be nil otherwise.
func New(cfg config.SandboxConfig, dCli docker.DockerClient) (Executor, error) {
	switch cfg.Provider {
	case constants.SandboxProviderJDoodle:
		return NewJDoodleExecutor(cfg), nil
	case constants.SandboxProviderDocker:
		if dCli == nil {
			return nil, fmt.Errorf("docker sandbox requires a docker client: %w", customErr.ErrUnknownProvider)
		}
		return NewDockerExecutor(dCli, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %s", customErr.ErrUnknownProvider, cfg.Provider)
	}
}

// validateRequest checks the inputs shared by all executors before any
// sandbox call is made.
func validateRequest(code, language string) (languages.LanguageType, error) {
	if strings.TrimSpace(code) == "" {
		return 0, customErr.NewExecutionError(customErr.ExecutionErrorInvalidInput, customErr.ErrEmptyCode, "code must not be empty")
	}
	lang, err := languages.ParseLanguageType(language)
	if err != nil {
		return 0, customErr.NewExecutionError(
			customErr.ExecutionErrorUnsupportedLanguage, err, "unsupported language %q", language)
	}
	return lang, nil
}

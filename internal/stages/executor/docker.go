package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/docker"
	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/submission"
	"github.com/mini-maxit/evaluator/utils"
)

const cleanupTimeout = 10 * time.Second

type dockerExecutor struct {
	docker  docker.DockerClient
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewDockerExecutor returns an executor that runs every call in a fresh,
// network-less container of the language's runtime image.
func NewDockerExecutor(dCli docker.DockerClient, timeout time.Duration) Executor {
	return &dockerExecutor{
		docker:  dCli,
		timeout: timeout,
		logger:  logger.NewNamedLogger("docker-executor"),
	}
}

func (d *dockerExecutor) Execute(ctx context.Context, code, language, stdin string) (*Result, error) {
	lang, err := validateRequest(code, language)
	if err != nil {
		return nil, err
	}

	dockerImage, err := lang.GetDockerImage()
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorUnsupportedLanguage, err, "no runtime image for %s", lang)
	}
	script, sourceFile, err := BuildRunScript(lang)
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorUnsupportedLanguage, err, "no run command for %s", lang)
	}

	archive, err := utils.CreateTarArchive(map[string][]byte{
		sourceFile:                     []byte(code),
		constants.SandboxInputFileName: []byte(stdin),
	}, 0, 0)
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorInvalidInput, err, "failed to package code")
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.docker.EnsureImage(ctx, dockerImage); err != nil {
		return nil, d.sandboxError(ctx, err, "failed to prepare image %s", dockerImage)
	}

	containerName := "submission-" + uuid.NewString()
	containerID, err := d.docker.CreateContainer(ctx, buildContainerConfig(dockerImage, script), buildHostConfig(), containerName)
	if err != nil {
		return nil, d.sandboxError(ctx, err, "failed to create container")
	}

	defer func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cleanupCancel()
		if err := d.docker.ContainerRemove(cleanupCtx, containerID); err != nil {
			d.logger.Warnf("Failed to remove container %s: %s", containerID, err)
		}
	}()

	if err := d.docker.CopyToContainer(ctx, containerID, constants.SandboxWorkDir, archive); err != nil {
		return nil, d.sandboxError(ctx, err, "failed to copy code into container")
	}

	start := time.Now()
	if err := d.docker.StartContainer(ctx, containerID); err != nil {
		return nil, d.sandboxError(ctx, err, "failed to start container")
	}

	exitCode, waitErr := d.docker.WaitContainer(ctx, containerID)
	elapsed := time.Since(start)
	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			killCtx, killCancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer killCancel()
			if err := d.docker.ContainerKill(killCtx, containerID, "SIGKILL"); err != nil {
				d.logger.Warnf("Failed to kill container %s: %s", containerID, err)
			}
			d.logger.Infof("Container %s exceeded the time limit", containerID)
			return &Result{
				Status:     submission.ExecutionTimeout,
				Stderr:     customErr.ErrContainerTimeout.Error(),
				ExecTimeMs: elapsed.Milliseconds(),
			}, nil
		}
		return nil, d.sandboxError(ctx, waitErr, "failed waiting for container")
	}

	logsCtx, logsCancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer logsCancel()
	stdout, stderr, err := d.docker.ContainerLogs(logsCtx, containerID, constants.MaxContainerOutputFileSize)
	if err != nil {
		return nil, customErr.NewExecutionError(customErr.ExecutionErrorSandbox, err, "failed to read container output")
	}

	return toDockerResult(exitCode, stdout, stderr, elapsed), nil
}

func (d *dockerExecutor) sandboxError(ctx context.Context, err error, format string, args ...any) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return customErr.NewExecutionError(customErr.ExecutionErrorTimeout, err, "sandbox call timed out")
	}
	d.logger.Errorf("%s: %s", fmt.Sprintf(format, args...), err)
	return customErr.NewExecutionError(customErr.ExecutionErrorSandbox, err, format, args...)
}

func toDockerResult(exitCode int64, stdout, stderr string, elapsed time.Duration) *Result {
	result := &Result{
		Stderr:     stderr,
		ExecTimeMs: elapsed.Milliseconds(),
	}

	switch exitCode {
	case constants.ExitCodeSuccess:
		result.Status = submission.ExecutionSuccess
		result.Stdout = utils.TrimTrailingWhitespace(stdout)
	case constants.ExitCodeCompilationError:
		result.Status = submission.ExecutionCompilationError
	case constants.ExitCodeTimeout:
		result.Status = submission.ExecutionTimeout
		if result.Stderr == "" {
			result.Stderr = customErr.ErrContainerTimeout.Error()
		}
	case constants.ExitCodeKilled:
		result.Status = submission.ExecutionRuntimeError
		if result.Stderr == "" {
			result.Stderr = "process was killed, memory limit may have been exceeded"
		}
	default:
		result.Status = submission.ExecutionRuntimeError
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("process exited with code %d", exitCode)
		}
	}

	return result
}

// BuildRunScript returns the shell script run inside the container and the
// source file name the code must be stored under. A failed compile step
// exits with ExitCodeCompilationError.
func BuildRunScript(lang languages.LanguageType) (string, string, error) {
	sourceFile, err := lang.SourceFileName()
	if err != nil {
		return "", "", err
	}
	compileCmd, err := lang.GetCompileCommand(sourceFile)
	if err != nil {
		return "", "", err
	}
	runCmd, err := lang.GetRunCommand(sourceFile)
	if err != nil {
		return "", "", err
	}

	script := fmt.Sprintf("%s < %s", utils.ShellQuoteSlice(runCmd), constants.SandboxInputFileName)
	if len(compileCmd) > 0 {
		script = fmt.Sprintf("%s 1>&2 || exit %d; %s",
			utils.ShellQuoteSlice(compileCmd), constants.ExitCodeCompilationError, script)
	}
	return script, sourceFile, nil
}

func buildContainerConfig(dockerImage, script string) *container.Config {
	stopTimeout := 2

	return &container.Config{
		Image:           dockerImage,
		Cmd:             []string{"sh", "-c", script},
		WorkingDir:      constants.SandboxWorkDir,
		User:            constants.RunnerName,
		NetworkDisabled: true,
		StopTimeout:     &stopTimeout,
		StopSignal:      "SIGKILL",
	}
}

func buildHostConfig() *container.HostConfig {
	memoryBytes := constants.ContainerMemoryLimitKB * 1024
	pidsLimit := constants.ContainerPidsLimit

	return &container.HostConfig{
		AutoRemove:  false,
		NetworkMode: container.NetworkMode("none"),
		Resources: container.Resources{
			Memory:     memoryBytes,
			MemorySwap: memoryBytes,
			PidsLimit:  &pidsLimit,
			CPUPeriod:  100_000,
			CPUQuota:   100_000,
		},
		SecurityOpt:  []string{"no-new-privileges"},
		CgroupnsMode: container.CgroupnsModePrivate,
		IpcMode:      container.IpcMode("private"),
		CapDrop:      []string{"ALL"},
	}
}

package constants

import "encoding/json"

// Queue message types.
const (
	QueueMessageTypeEvaluate  = "evaluate"
	QueueMessageTypeHandshake = "handshake"
	QueueMessageTypeStatus    = "status"
)

// Outcome messages.
const (
	OutcomeMessageCompilationError = "compilation error"
	OutcomeMessageRuntimeError     = "runtime error"
	OutcomeMessageTimeout          = "time limit exceeded"
	OutcomeMessageOutputDifference = "output difference"
	OutcomeMessageCancelled        = "evaluation cancelled before the test case ran"
)

// Failure reasons recorded on failed submissions.
const (
	FailureReasonValidation = "validation failed: %s"
	FailureReasonInvariant  = "internal aggregation error: %s"
)

// Worker specific constants.
type WorkerStatus int

const (
	WorkerStatusIdle WorkerStatus = iota
	WorkerStatusBusy
)

func (ws WorkerStatus) String() string {
	switch ws {
	case WorkerStatusIdle:
		return "idle"
	case WorkerStatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

func (ws WorkerStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ws.String())
}

// Exit codes reported by the docker sandbox.
const (
	ExitCodeSuccess          = 0
	ExitCodeCompilationError = 100
	ExitCodeKilled           = 137
	ExitCodeTimeout          = 124
)

// Configuration defaults.
const (
	DefaultRabbitmqHost            = "localhost"
	DefaultRabbitmqUser            = "guest"
	DefaultRabbitmqPassword        = "guest"
	DefaultRabbitmqPort            = "5672"
	DefaultRabbitmqPublishChanSize = 100
	DefaultWorkerQueueName         = "evaluation_queue"
	DefaultResponseQueueName       = "evaluation_response_queue"
	DefaultMaxWorkers              = 10
	DefaultTestCaseConcurrency     = 4

	DefaultSandboxProvider   = "jdoodle"
	DefaultJDoodleURL        = "https://api.jdoodle.com/v1/execute"
	DefaultSandboxTimeoutSec = 15
	DefaultSandboxRatePerSec = 5

	DefaultReviewBaseURL    = "https://api.groq.com/openai/v1"
	DefaultReviewModel      = "llama-3.3-70b-versatile"
	DefaultReviewTimeoutSec = 30

	DefaultDetectionProvider   = "sapling"
	DefaultSaplingURL          = "https://api.sapling.ai/api/v1/aidetect"
	DefaultZeroGPTURL          = "https://api.zerogpt.com/api/detect/detectText"
	DefaultDetectionTimeoutSec = 10

	DefaultStoreDriver      = "memory"
	DefaultRedisCacheTTLSec = 3600
	DefaultHTTPPort         = "8080"
	DefaultHTTPWriteTimeout = 300
	DefaultShutdownTimeout  = 30
)

// Sandbox providers.
const (
	SandboxProviderJDoodle = "jdoodle"
	SandboxProviderDocker  = "docker"
)

// Detection providers.
const (
	DetectionProviderSapling = "sapling"
	DetectionProviderZeroGPT = "zerogpt"
)

// Store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// Scoring weights. All weights are positive, so the overall score never
// decreases when a component score increases.
const (
	CorrectnessWeight = 0.40
	EfficiencyWeight  = 0.35
	CodeStyleWeight   = 0.25

	TestsScoreWeight  = 0.7
	ReviewScoreWeight = 0.3

	MaxScore = 100
)

// Docker execution constants.
const (
	RuntimeImagePrefix               = "ghcr.io/mini-maxit/runtime"
	ContainerMemoryLimitKB     int64 = 256 * 1024
	ContainerPidsLimit         int64 = 64
	MaxContainerOutputFileSize int64 = 10 * 1024 * 1024
	SandboxWorkDir                   = "/sandbox"
	SandboxInputFileName             = "input.txt"
	RunnerName                       = "runner"
)

// RabbitMQ specific constants.
const (
	RabbitMQReconnectTries  = 10
	RabbitMQMaxPriority     = 3
	RabbitMQRequeuePriority = 2
)

// Redis keys.
const (
	RedisSubmissionKeyPrefix = "submission:"
)

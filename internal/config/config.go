package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/pkg/constants"
	"go.uber.org/zap"
)

type Config struct {
	RabbitMQ  RabbitMQConfig
	Worker    WorkerConfig
	Sandbox   SandboxConfig
	Review    ReviewConfig
	Detection DetectionConfig
	Store     StoreConfig
	HTTP      HTTPConfig
}

type HTTPConfig struct {
	Port            string
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type RabbitMQConfig struct {
	Enabled           bool
	URL               string
	PublishChanSize   int
	QueueName         string
	ResponseQueueName string
}

type WorkerConfig struct {
	MaxWorkers          int
	TestCaseConcurrency int
}

type SandboxConfig struct {
	Provider     string
	URL          string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	RatePerSec   float64
}

type ReviewConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type DetectionConfig struct {
	Enabled  bool
	Provider string
	APIKey   string
	URL      string
	Timeout  time.Duration
}

type StoreConfig struct {
	Driver      string
	PostgresDSN string
	RedisAddr   string
	CacheTTL    time.Duration
}

func NewConfig() *Config {
	logger := logger.NewNamedLogger("config")

	_, err := os.Stat(".env")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("failed to stat .env file with error: %v", err)
		}
	} else {
		if os.Getenv("ENV") == "PROD" {
			logger.Warn(".env file detected in production environment. This is not recommended.")
		}
		err = godotenv.Load(".env")
		if err != nil {
			logger.Fatalf("failed to load .env file with error: %v", err)
		}
	}

	return &Config{
		RabbitMQ:  rabbitmqConfig(logger),
		Worker:    workerConfig(logger),
		Sandbox:   sandboxConfig(logger),
		Review:    reviewConfig(logger),
		Detection: detectionConfig(logger),
		Store:     storeConfig(logger),
		HTTP:      httpConfig(logger),
	}
}

func rabbitmqConfig(logger *zap.SugaredLogger) RabbitMQConfig {
	host := stringOrDefault(logger, "RABBITMQ_HOST", constants.DefaultRabbitmqHost)
	portStr := stringOrDefault(logger, "RABBITMQ_PORT", constants.DefaultRabbitmqPort)
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		logger.Fatalf("failed to parse RABBITMQ_PORT with error: %v", err)
	}
	user := stringOrDefault(logger, "RABBITMQ_USER", constants.DefaultRabbitmqUser)
	password := stringOrDefault(logger, "RABBITMQ_PASSWORD", constants.DefaultRabbitmqPassword)

	return RabbitMQConfig{
		Enabled:           boolOrDefault(logger, "RABBITMQ_ENABLED", false),
		URL:               fmt.Sprintf("amqp://%s:%s@%s:%d/", user, password, host, port),
		PublishChanSize:   intOrDefault(logger, "RABBITMQ_PUBLISH_CHAN_SIZE", constants.DefaultRabbitmqPublishChanSize),
		QueueName:         stringOrDefault(logger, "WORKER_QUEUE_NAME", constants.DefaultWorkerQueueName),
		ResponseQueueName: stringOrDefault(logger, "RESPONSE_QUEUE_NAME", constants.DefaultResponseQueueName),
	}
}

func workerConfig(logger *zap.SugaredLogger) WorkerConfig {
	maxWorkers := intOrDefault(logger, "MAX_WORKERS", constants.DefaultMaxWorkers)
	if maxWorkers < 1 {
		logger.Fatalf("MAX_WORKERS must be positive, got %d", maxWorkers)
	}
	concurrency := intOrDefault(logger, "TEST_CASE_CONCURRENCY", constants.DefaultTestCaseConcurrency)
	if concurrency < 1 {
		logger.Fatalf("TEST_CASE_CONCURRENCY must be positive, got %d", concurrency)
	}

	return WorkerConfig{MaxWorkers: maxWorkers, TestCaseConcurrency: concurrency}
}

func sandboxConfig(logger *zap.SugaredLogger) SandboxConfig {
	provider := strings.ToLower(stringOrDefault(logger, "SANDBOX_PROVIDER", constants.DefaultSandboxProvider))
	if provider != constants.SandboxProviderJDoodle && provider != constants.SandboxProviderDocker {
		logger.Fatalf("unsupported SANDBOX_PROVIDER %q", provider)
	}

	cfg := SandboxConfig{
		Provider:   provider,
		URL:        stringOrDefault(logger, "JDOODLE_URL", constants.DefaultJDoodleURL),
		Timeout:    secondsOrDefault(logger, "SANDBOX_TIMEOUT_SEC", constants.DefaultSandboxTimeoutSec),
		RatePerSec: floatOrDefault(logger, "SANDBOX_RATE_PER_SEC", constants.DefaultSandboxRatePerSec),
	}
	if cfg.RatePerSec <= 0 {
		logger.Fatalf("SANDBOX_RATE_PER_SEC must be positive, got %g", cfg.RatePerSec)
	}
	if provider == constants.SandboxProviderJDoodle {
		cfg.ClientID = secret(logger, "JDOODLE_CLIENT_ID")
		cfg.ClientSecret = secret(logger, "JDOODLE_CLIENT_SECRET")
	}

	return cfg
}

func reviewConfig(logger *zap.SugaredLogger) ReviewConfig {
	cfg := ReviewConfig{
		Enabled: boolOrDefault(logger, "REVIEW_ENABLED", true),
		BaseURL: stringOrDefault(logger, "REVIEW_BASE_URL", constants.DefaultReviewBaseURL),
		Model:   stringOrDefault(logger, "REVIEW_MODEL", constants.DefaultReviewModel),
		Timeout: secondsOrDefault(logger, "REVIEW_TIMEOUT_SEC", constants.DefaultReviewTimeoutSec),
	}
	if cfg.Enabled {
		cfg.APIKey = secret(logger, "REVIEW_API_KEY")
	}
	return cfg
}

func detectionConfig(logger *zap.SugaredLogger) DetectionConfig {
	provider := strings.ToLower(stringOrDefault(logger, "DETECTION_PROVIDER", constants.DefaultDetectionProvider))

	var defaultURL string
	switch provider {
	case constants.DetectionProviderSapling:
		defaultURL = constants.DefaultSaplingURL
	case constants.DetectionProviderZeroGPT:
		defaultURL = constants.DefaultZeroGPTURL
	default:
		logger.Fatalf("unsupported DETECTION_PROVIDER %q", provider)
	}

	cfg := DetectionConfig{
		Enabled:  boolOrDefault(logger, "DETECTION_ENABLED", true),
		Provider: provider,
		URL:      stringOrDefault(logger, "DETECTION_URL", defaultURL),
		Timeout:  secondsOrDefault(logger, "DETECTION_TIMEOUT_SEC", constants.DefaultDetectionTimeoutSec),
	}
	if cfg.Enabled {
		cfg.APIKey = secret(logger, "DETECTION_API_KEY")
	}
	return cfg
}

func storeConfig(logger *zap.SugaredLogger) StoreConfig {
	driver := strings.ToLower(stringOrDefault(logger, "STORE_DRIVER", constants.DefaultStoreDriver))
	cfg := StoreConfig{
		Driver:    driver,
		RedisAddr: os.Getenv("REDIS_ADDR"),
		CacheTTL:  secondsOrDefault(logger, "REDIS_CACHE_TTL_SEC", constants.DefaultRedisCacheTTLSec),
	}

	switch driver {
	case constants.StoreDriverMemory:
	case constants.StoreDriverPostgres:
		cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
		if cfg.PostgresDSN == "" {
			logger.Fatalf("POSTGRES_DSN is required when STORE_DRIVER is %s", driver)
		}
	default:
		logger.Fatalf("unsupported STORE_DRIVER %q", driver)
	}

	return cfg
}

func httpConfig(logger *zap.SugaredLogger) HTTPConfig {
	return HTTPConfig{
		Port:            stringOrDefault(logger, "HTTP_PORT", constants.DefaultHTTPPort),
		WriteTimeout:    secondsOrDefault(logger, "HTTP_WRITE_TIMEOUT_SEC", constants.DefaultHTTPWriteTimeout),
		ShutdownTimeout: secondsOrDefault(logger, "SHUTDOWN_TIMEOUT_SEC", constants.DefaultShutdownTimeout),
	}
}

func stringOrDefault(logger *zap.SugaredLogger, key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Warnf("%s is not set, using default value %s", key, def)
		return def
	}
	return value
}

func intOrDefault(logger *zap.SugaredLogger, key string, def int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		logger.Warnf("%s is not set, using default value %d", key, def)
		return def
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Fatalf("failed to parse %s with error: %v", key, err)
	}
	return value
}

func floatOrDefault(logger *zap.SugaredLogger, key string, def float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		logger.Warnf("%s is not set, using default value %g", key, def)
		return def
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Fatalf("failed to parse %s with error: %v", key, err)
	}
	return value
}

func boolOrDefault(logger *zap.SugaredLogger, key string, def bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return def
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logger.Fatalf("failed to parse %s with error: %v", key, err)
	}
	return value
}

func secondsOrDefault(logger *zap.SugaredLogger, key string, def int) time.Duration {
	seconds := intOrDefault(logger, key, def)
	if seconds <= 0 {
		logger.Fatalf("%s must be positive, got %d", key, seconds)
	}
	return time.Duration(seconds) * time.Second
}

// secret reads a credential. A missing credential is not fatal: the adapter
// that needs it reports the error on use.
func secret(logger *zap.SugaredLogger, key string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Warnf("%s is not set", key)
	}
	return value
}

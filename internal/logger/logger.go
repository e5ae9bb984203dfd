package logger

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timeKey   = "time"
	levelKey  = "level"
	sourceKey = "source"
	msgKey    = "msg"
	logFile   = "evaluator.log"
)

var (
	sugarLogger *zap.SugaredLogger
	once        sync.Once
)

// getProjectRoot finds the project root directory by looking for go.mod file.
func getProjectRoot() string {
	_, currentFile, _, ok := runtime.Caller(0)
	var currentDir string
	if !ok || currentFile == "" {
		wd, _ := os.Getwd()
		currentDir = wd
	} else {
		currentDir = filepath.Dir(currentFile)
	}

	for {
		if _, err := os.Stat(filepath.Join(currentDir, "go.mod")); err == nil {
			return currentDir
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			wd, _ := os.Getwd()
			return wd
		}
		currentDir = parent
	}
}

func getLogPath() string {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	if filepath.IsAbs(logDir) {
		return filepath.Join(logDir, logFile)
	}
	return filepath.Join(getProjectRoot(), logDir, logFile)
}

func getLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return zap.InfoLevel
	}
	return level
}

func initializeLogger() {
	logPath := getLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		logPath = logFile
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
		LocalTime:  true,
	})

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        timeKey,
		LevelKey:       levelKey,
		NameKey:        sourceKey,
		MessageKey:     msgKey,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	level := getLevel()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	)

	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	sugarLogger = log.Sugar()
}

// InitializeLogger builds the shared logger. Calling it is optional; named
// loggers initialize it lazily.
func InitializeLogger() {
	once.Do(initializeLogger)
}

// NewNamedLogger creates a new named SugaredLogger for a given component.
func NewNamedLogger(name string) *zap.SugaredLogger {
	InitializeLogger()
	return sugarLogger.Named(name)
}

// Sync flushes buffered log entries.
func Sync() {
	if sugarLogger != nil {
		_ = sugarLogger.Sync()
	}
}

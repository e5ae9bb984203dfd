package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/internal/docker"
	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/metrics"
	"github.com/mini-maxit/evaluator/internal/pipeline"
	"github.com/mini-maxit/evaluator/internal/rabbitmq"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/channel"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/consumer"
	"github.com/mini-maxit/evaluator/internal/rabbitmq/responder"
	"github.com/mini-maxit/evaluator/internal/repository"
	"github.com/mini-maxit/evaluator/internal/scheduler"
	"github.com/mini-maxit/evaluator/internal/server"
	"github.com/mini-maxit/evaluator/internal/stages/detector"
	"github.com/mini-maxit/evaluator/internal/stages/executor"
	"github.com/mini-maxit/evaluator/internal/stages/reviewer"
	"github.com/mini-maxit/evaluator/internal/stages/runner"
	"github.com/mini-maxit/evaluator/internal/stages/verifier"
	"github.com/mini-maxit/evaluator/pkg/constants"
)

func main() {
	logger.InitializeLogger()
	defer logger.Sync()

	logger := logger.NewNamedLogger("main")
	logger.Info("Starting evaluator")

	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repo, closeRepo, err := repository.New(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize submission store: %s", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Errorf("Failed to close submission store: %s", err)
		}
	}()

	var dCli docker.DockerClient
	if cfg.Sandbox.Provider == constants.SandboxProviderDocker {
		dCli, err = docker.NewDockerClient()
		if err != nil {
			logger.Fatalf("Failed to initialize Docker client: %s", err)
		}
	}
	exec, err := executor.New(cfg.Sandbox, dCli)
	if err != nil {
		logger.Fatalf("Failed to initialize executor: %s", err)
	}

	v := verifier.NewDefaultVerifier()
	r := runner.NewRunner(exec, v, cfg.Worker.TestCaseConcurrency, cfg.Sandbox.Timeout, m)

	var rev reviewer.Reviewer
	if cfg.Review.Enabled {
		rev = reviewer.NewReviewer(cfg.Review)
	} else {
		logger.Info("Qualitative review is disabled")
	}

	var det detector.Detector
	if cfg.Detection.Enabled {
		det, err = detector.New(cfg.Detection)
		if err != nil {
			logger.Fatalf("Failed to initialize authorship detector: %s", err)
		}
	} else {
		logger.Info("Authorship detection is disabled")
	}

	manager := pipeline.NewManager(r, v, rev, det, repo, m)

	srv := server.NewServer(cfg.HTTP.Port, manager, registry, cfg.HTTP.WriteTimeout)
	srvErr := srv.Start()

	var sched scheduler.Scheduler
	var resp responder.Responder
	var amqpChannel *channel.AmqpChannel
	brokerClosed := make(chan *amqp.Error, 1)
	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmq.NewRabbitMqConnection(cfg.RabbitMQ)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %s", err)
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Errorf("Failed to close RabbitMQ connection: %s", err)
			}
		}()

		ch, err := rabbitmq.NewRabbitMQChannel(conn)
		if err != nil {
			logger.Fatalf("Failed to open RabbitMQ channel: %s", err)
		}
		amqpChannel = channel.NewAmqpChannel(ch)
		amqpChannel.NotifyClose(brokerClosed)

		resp = responder.NewResponder(amqpChannel, cfg.RabbitMQ.PublishChanSize, cfg.RabbitMQ.ResponseQueueName)
		sched = scheduler.NewScheduler(cfg.Worker.MaxWorkers, manager, resp, m)
		cons := consumer.NewConsumer(amqpChannel, cfg.RabbitMQ.QueueName, sched, resp)

		go cons.Listen()
		logger.Infof("Listening for messages on %s", cfg.RabbitMQ.QueueName)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-srvErr:
		logger.Errorf("HTTP server failed: %s", err)
	case amqpErr := <-brokerClosed:
		logger.Errorf("RabbitMQ channel closed: %v", amqpErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shut down HTTP server: %s", err)
	}
	if sched != nil {
		if err := sched.Drain(shutdownCtx); err != nil {
			logger.Warnf("Workers still running at shutdown: %s", err)
		}
	}
	if resp != nil {
		if err := resp.Close(); err != nil {
			logger.Errorf("Failed to close responder: %s", err)
		}
	}
	if amqpChannel != nil {
		if err := amqpChannel.Close(); err != nil {
			logger.Errorf("Failed to close RabbitMQ channel: %s", err)
		}
	}

	logger.Info("Evaluator stopped")
}

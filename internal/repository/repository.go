// Package repository stores terminal submission records. Records are
// insert-only: once written they are never updated.
package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/config"
	"github.com/mini-maxit/evaluator/pkg/constants"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

type SubmissionRepository interface {
	// Insert stores a terminal submission. It fails with ErrSubmissionExists
	// when the id is already taken.
	Insert(ctx context.Context, s *submission.Submission) error
	// Get fails with ErrSubmissionNotFound for unknown ids.
	Get(ctx context.Context, id string) (*submission.Submission, error)
	// ListByUserQuestion returns the attempts of a user on a question, oldest
	// first.
	ListByUserQuestion(ctx context.Context, userID, questionID string) ([]*submission.Submission, error)
}

// New builds the repository described by cfg. When a Redis address is set
// the repository is wrapped in a read-through cache. The returned close
// function releases every connection opened here.
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.SugaredLogger) (SubmissionRepository, func() error, error) {
	var (
		repo    SubmissionRepository
		closers []func() error
	)

	switch cfg.Driver {
	case constants.StoreDriverMemory:
		repo = NewMemoryRepository()
	case constants.StoreDriverPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pg := NewPostgresRepository(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
		logger.Infof("Connected to postgres")
		repo = pg
		closers = append(closers, db.Close)
	default:
		return nil, nil, fmt.Errorf("%w: store driver %s", customErr.ErrUnknownProvider, cfg.Driver)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("Redis at %s is unavailable, cache reads will fall back to the store: %s", cfg.RedisAddr, err)
		}
		repo = NewCachedRepository(repo, client, cfg.CacheTTL)
		closers = append(closers, client.Close)
	}

	closeAll := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	return repo, closeAll, nil
}

func checkInsertable(s *submission.Submission) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("submission must have an id")
	}
	if !s.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", customErr.ErrSubmissionNotTerminal, s.Status)
	}
	return nil
}

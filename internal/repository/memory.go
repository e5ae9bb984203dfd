package repository

import (
	"context"
	"sort"
	"sync"

	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

type memoryRepository struct {
	mu          sync.RWMutex
	submissions map[string]*submission.Submission
}

// NewMemoryRepository returns a process-local repository. Stored records
// are copies, so callers cannot mutate them after insertion.
func NewMemoryRepository() SubmissionRepository {
	return &memoryRepository{submissions: make(map[string]*submission.Submission)}
}

func (m *memoryRepository) Insert(_ context.Context, s *submission.Submission) error {
	if err := checkInsertable(s); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.submissions[s.ID]; ok {
		return customErr.ErrSubmissionExists
	}
	m.submissions[s.ID] = s.Clone()
	return nil
}

func (m *memoryRepository) Get(_ context.Context, id string) (*submission.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.submissions[id]
	if !ok {
		return nil, customErr.ErrSubmissionNotFound
	}
	return s.Clone(), nil
}

func (m *memoryRepository) ListByUserQuestion(_ context.Context, userID, questionID string) ([]*submission.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*submission.Submission, 0)
	for _, s := range m.submissions {
		if s.UserID == userID && s.QuestionID == questionID {
			result = append(result, s.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

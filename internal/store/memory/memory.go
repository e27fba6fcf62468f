// Package memory is the default Store: mutex-guarded maps, suitable
// for single-process deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/store"
)

type Store struct {
	mu         sync.Mutex
	jobs       map[string]*domain.Job
	executions map[string]*domain.Execution
	profiles   map[string]*domain.EncryptionProfile
}

func New() *Store {
	return &Store{
		jobs:       map[string]*domain.Job{},
		executions: map[string]*domain.Execution{},
		profiles:   map[string]*domain.EncryptionProfile{},
	}
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *Store) PutJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executions[exec.ID] = copyExecution(exec)
	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[exec.ID]; !ok {
		return store.ErrNotFound
	}
	s.executions[exec.ID] = copyExecution(exec)
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyExecution(exec), nil
}

func (s *Store) CountRunning(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, exec := range s.executions {
		if exec.Status == domain.StatusRunning {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]*domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*domain.Execution
	for _, exec := range s.executions {
		if exec.Status == domain.StatusPending {
			pending = append(pending, copyExecution(exec))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	if limit >= 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) ClaimPending(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if exec.Status != domain.StatusPending {
		return false, nil
	}
	exec.Status = domain.StatusRunning
	return true, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *domain.EncryptionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *profile
	s.profiles[profile.ID] = &copied
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.EncryptionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*domain.EncryptionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.EncryptionProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		copied := *profile
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.profiles, id)
	return nil
}

func copyExecution(exec *domain.Execution) *domain.Execution {
	copied := *exec
	copied.Log = append([]string(nil), exec.Log...)
	if exec.Metadata != nil {
		copied.Metadata = make(map[string]string, len(exec.Metadata))
		for k, v := range exec.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

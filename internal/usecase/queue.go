package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/store"
)

// Queue is the admission controller: it caps the number of Running
// executions at the configured limit and drains the Pending backlog in
// strict arrival order.
type Queue struct {
	store    store.Store
	settings *config.Settings
	runner   *Runner
	logger   Logger
}

func NewQueue(st store.Store, settings *config.Settings, runner *Runner, logger Logger) *Queue {
	return &Queue{
		store:    st,
		settings: settings,
		runner:   runner,
		logger:   logger,
	}
}

// Enqueue creates a Pending execution for a job. Called by the trigger
// collaborator (scheduler or manual request).
func (q *Queue) Enqueue(ctx context.Context, jobID string) (*domain.Execution, error) {
	exec := domain.NewExecution(jobID, domain.StatusPending)
	if err := q.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("enqueue execution: %w", err)
	}
	q.logger.Infof("enqueued execution %s for job %s", exec.ID, jobID)
	return exec, nil
}

// ProcessQueue promotes up to the available number of Pending
// executions to Running and runs their pipelines, joining all of them
// before returning. The Running count comes from the shared store, and
// each promotion is a compare-and-swap claim, so concurrent sweeps
// cannot double-promote.
func (q *Queue) ProcessQueue(ctx context.Context) error {
	limit := q.settings.MaxConcurrentJobs()

	running, err := q.store.CountRunning(ctx)
	if err != nil {
		return fmt.Errorf("count running executions: %w", err)
	}
	if running >= limit {
		q.logger.Debugf("queue full: %d running, limit %d", running, limit)
		return nil
	}

	slots := limit - running
	pending, err := q.store.ListPending(ctx, slots)
	if err != nil {
		return fmt.Errorf("list pending executions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	// Plain errgroup without a shared cancel context: one pipeline's
	// failure must not abort its siblings, only surface from Wait.
	g := new(errgroup.Group)
	launched := 0
	for _, exec := range pending {
		claimed, err := q.store.ClaimPending(ctx, exec.ID)
		if err != nil {
			q.logger.Errorf("claim execution %s: %v", exec.ID, err)
			continue
		}
		if !claimed {
			q.logger.Debugf("execution %s claimed elsewhere, skipping", exec.ID)
			continue
		}

		exec := exec
		exec.Status = domain.StatusRunning
		exec.StartedAt = time.Now()
		launched++
		g.Go(func() error {
			return q.runner.Run(ctx, exec)
		})
	}

	q.logger.Infof("queue sweep: launched %d of %d pending (%d slots)",
		launched, len(pending), slots)
	return g.Wait()
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler is the trigger collaborator: cron entries enqueue Pending
// executions and drive the periodic queue sweep. The execution core
// never owns timers of its own.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
	}
}

func (s *Scheduler) AddJob(spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		_ = job(context.Background())
	})
	return err
}

// AddEvery registers a fixed-interval job, used for the queue sweep.
func (s *Scheduler) AddEvery(interval time.Duration, job func(context.Context) error) error {
	return s.AddJob(fmt.Sprintf("@every %s", interval), job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

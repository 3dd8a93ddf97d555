// Package scheduler runs named jobs on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/logger"
)

// Job is invoked on every tick. Errors are logged and do not stop the job.
type Job func(ctx context.Context) error

type running struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns a set of named interval jobs.
type Scheduler struct {
	log logger.LoggerInterface

	mu   sync.Mutex
	jobs map[string]*running
}

// New creates an empty Scheduler.
func New(log logger.LoggerInterface) *Scheduler {
	return &Scheduler{
		log:  log,
		jobs: make(map[string]*running),
	}
}

// Start runs job every interval under name until stopped or ctx ends.
// When runNow is set the job also runs once immediately.
func (s *Scheduler) Start(ctx context.Context, name string, interval time.Duration, runNow bool, job Job) error {
	if interval <= 0 {
		return apperror.InvalidArgument("scheduler interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("job "+name+" already running"))
	}

	jobCtx, cancel := context.WithCancel(ctx)
	r := &running{cancel: cancel, done: make(chan struct{})}
	s.jobs[name] = r

	go s.loop(jobCtx, name, interval, runNow, job, r.done)

	s.log.Info(ctx, "scheduled job started", "job", name, "interval", interval.String())
	return nil
}

// Stop cancels the named job and waits for its current run to finish.
// It reports whether the job existed.
func (s *Scheduler) Stop(name string) bool {
	s.mu.Lock()
	r, ok := s.jobs[name]
	delete(s.jobs, name)
	s.mu.Unlock()

	if !ok {
		return false
	}

	r.cancel()
	<-r.done
	return true
}

// StopAll stops every job.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.Stop(name)
	}
}

// Running reports whether name is scheduled.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, runNow bool, job Job, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if runNow {
		s.run(ctx, name, job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, name, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	start := time.Now()
	if err := job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error(ctx, "scheduled job failed", "job", name, "error", err)
		return
	}
	s.log.Debug(ctx, "scheduled job finished", "job", name, "duration", time.Since(start).String())
}

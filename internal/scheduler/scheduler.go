package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/polarad/portal/internal/meta"
)

// Scheduler runs the recurring background jobs: ads-data collection,
// proactive token refresh checks and the expiring-token digest.
type Scheduler struct {
	jobs   map[string]*job
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	name     string
	interval time.Duration
	run      func() error
	ticker   *time.Ticker
	cancel   context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the standard job set and begins ticking.
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	s.AddJob("insight-collection", 6*time.Hour, meta.CollectDailyInsights)
	s.AddJob("token-expiry-digest", 24*time.Hour, meta.MonitorExpiringTokens)

	log.Printf("Scheduler started with %d jobs", s.jobCount())
	return nil
}

// Stop gracefully shuts down all jobs.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		j.ticker.Stop()
		j.cancel()
	}

	s.jobs = make(map[string]*job)
	log.Println("Scheduler stopped")
}

// AddJob registers a named recurring job, replacing any existing job of
// the same name, and runs it once immediately.
func (s *Scheduler) AddJob(name string, interval time.Duration, run func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[name]; exists {
		existing.ticker.Stop()
		existing.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)

	j := &job{
		name:     name,
		interval: interval,
		run:      run,
		ticker:   time.NewTicker(interval),
		cancel:   jobCancel,
	}

	s.jobs[name] = j

	go func() {
		s.execute(j)
		s.runJob(jobCtx, j)
	}()

	log.Printf("Added job %s (every %v) with immediate run", name, interval)
}

// RemoveJob stops a named job.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		j.ticker.Stop()
		j.cancel()
		delete(s.jobs, name)
		log.Printf("Removed job %s", name)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	defer j.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.ticker.C:
			s.execute(j)
		}
	}
}

func (s *Scheduler) execute(j *job) {
	start := time.Now()

	if err := j.run(); err != nil {
		log.Printf("Job %s failed after %v: %v", j.name, time.Since(start), err)
		return
	}

	log.Printf("Job %s finished in %v", j.name, time.Since(start))
}

func (s *Scheduler) jobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// GetStatus reports the running jobs for the health surface.
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}

	return map[string]interface{}{
		"jobs":    names,
		"running": s.ctx.Err() == nil,
	}
}

// Global scheduler instance
var globalScheduler *Scheduler

func Initialize() error {
	globalScheduler = NewScheduler()
	return globalScheduler.Start()
}

func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}

package batch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hochfrequenz/task-forest/internal/domain"
	"github.com/hochfrequenz/task-forest/internal/notify"
)

// RunFunc executes one scheduled rebuild and returns its statistics.
type RunFunc func(ctx context.Context, cfg RebuildConfig) (*domain.RunStats, error)

// Pruner removes run history older than the cutoff.
type Pruner interface {
	PruneRuns(olderThan time.Time) (int64, error)
}

// Scheduler runs full reconstructions on cron schedules and owns the
// per-rebuild lifecycle: deadline, run-history pruning and completion
// notifications.
type Scheduler struct {
	configs   map[string]RebuildConfig
	parser    cron.Parser
	lastRun   map[string]time.Time
	lastStats map[string]*domain.RunStats
	running   map[string]bool
	notifier  notify.Notifier
	pruner    Pruner
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewScheduler creates a new rebuild scheduler
func NewScheduler(configs []RebuildConfig) (*Scheduler, error) {
	s := &Scheduler{
		configs:   make(map[string]RebuildConfig),
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:   make(map[string]time.Time),
		lastStats: make(map[string]*domain.RunStats),
		running:   make(map[string]bool),
		notifier:  notify.NoopNotifier{},
		stopChan:  make(chan struct{}),
	}

	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		s.configs[cfg.Name] = cfg
	}

	return s, nil
}

// SetNotifier routes completion and failure notifications. The default
// is a no-op.
func (s *Scheduler) SetNotifier(n notify.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetPruner enables run-history pruning for rebuilds that configure it.
func (s *Scheduler) SetPruner(p Pruner) {
	s.pruner = p
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next scheduled run time for a rebuild
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// ShouldRun returns true if a rebuild should run now
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[name]
	if !ok {
		return false
	}

	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	nextRun := sched.Next(lastRun)
	return time.Now().After(nextRun)
}

// MarkRunning marks a rebuild as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks a rebuild as complete
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// GetConfig returns the config for a rebuild
func (s *Scheduler) GetConfig(name string) (RebuildConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// LastStats returns the statistics of the most recent completed run of
// the named rebuild.
func (s *Scheduler) LastStats(name string) (*domain.RunStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.lastStats[name]
	return stats, ok
}

// ListRebuilds returns all rebuild names
func (s *Scheduler) ListRebuilds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	return names
}

// Start begins the scheduler loop
func (s *Scheduler) Start(ctx context.Context, run RunFunc) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name := range s.configs {
				if s.ShouldRun(name) {
					cfg, _ := s.GetConfig(name)
					s.MarkRunning(name)
					go s.execute(ctx, cfg, run)
				}
			}
		}
	}
}

// execute runs one scheduled rebuild under its configured deadline,
// then prunes old run history and notifies per the rebuild's config.
func (s *Scheduler) execute(ctx context.Context, cfg RebuildConfig, run RunFunc) {
	defer s.MarkComplete(cfg.Name)

	runCtx, cancel := context.WithTimeout(ctx, cfg.MaxDuration)
	defer cancel()

	stats, err := run(runCtx, cfg)
	if err != nil {
		log.Printf("scheduled rebuild %s failed: %v", cfg.Name, err)
		if cfg.NotifyOnComplete {
			s.notifier.Send(notify.Notification{
				Title:   "Scheduled rebuild failed",
				Message: cfg.Name + ": " + err.Error(),
				Type:    notify.NotifyError,
			})
		}
		return
	}

	s.mu.Lock()
	s.lastStats[cfg.Name] = stats
	s.mu.Unlock()

	if cfg.PruneRunsAfterDays > 0 && s.pruner != nil {
		cutoff := time.Now().AddDate(0, 0, -cfg.PruneRunsAfterDays)
		if _, err := s.pruner.PruneRuns(cutoff); err != nil {
			log.Printf("pruning runs after rebuild %s: %v", cfg.Name, err)
		}
	}

	if cfg.NotifyOnComplete {
		if err := s.notifier.Send(notify.ForRun(stats)); err != nil {
			log.Printf("notification for rebuild %s failed: %v", cfg.Name, err)
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

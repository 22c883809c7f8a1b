package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SnapshotTrigger starts a favorites snapshot.
type SnapshotTrigger interface {
	TriggerSnapshot(ctx context.Context, trigger string) (string, error)
}

// SnapshotScheduler periodically triggers favorites snapshots.
type SnapshotScheduler struct {
	trigger  SnapshotTrigger
	schedule string

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSnapshotScheduler(trigger SnapshotTrigger, schedule string) *SnapshotScheduler {
	return &SnapshotScheduler{
		trigger:  trigger,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule parses a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start registers the job and starts the cron runner. The scheduler stops
// when ctx is cancelled.
func (s *SnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	next := s.cron.Entry(entryID).Next
	log.Printf("Snapshot scheduler: started with schedule '%s'. Next run: %v", s.schedule, next)

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.ctx.Done())

	return nil
}

// Stop cancels the job context and waits for a running job to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	log.Printf("Snapshot scheduler: stopped")
}

func (s *SnapshotScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job fires next, or nil when stopped.
func (s *SnapshotScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *SnapshotScheduler) run() {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	ref, err := s.trigger.TriggerSnapshot(ctx, "schedule")
	if err != nil {
		log.Printf("Snapshot scheduler: failed to trigger snapshot: %v", err)
		return
	}
	log.Printf("Snapshot scheduler: triggered snapshot %s", ref)
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrigger struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (f *fakeTrigger) TriggerSnapshot(_ context.Context, trigger string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return "task-1", f.err
}

func (f *fakeTrigger) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	s := NewSnapshotScheduler(&fakeTrigger{}, "0 3 * * *")

	assert.Nil(t, s.NextRun())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	next := s.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 3, next.Hour())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
	s.Stop()
}

func TestSnapshotScheduler_InvalidSchedule(t *testing.T) {
	s := NewSnapshotScheduler(&fakeTrigger{}, "not a schedule")

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestSnapshotScheduler_StopsWithContext(t *testing.T) {
	s := NewSnapshotScheduler(&fakeTrigger{}, "0 3 * * *")
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotScheduler_Run(t *testing.T) {
	trigger := &fakeTrigger{}
	s := NewSnapshotScheduler(trigger, "0 3 * * *")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.run()
	assert.Equal(t, []string{"schedule"}, trigger.calls())

	trigger.err = errors.New("queue down")
	s.run()
	assert.Len(t, trigger.calls(), 2)
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/metrics"
	"github.com/mrlokans/bookfinder/internal/storage"
)

const snapshotPrefix = "favorites-"

// SnapshotFavoritesTask writes every user's favorites to a JSON file in the
// localStorage dump format.
type SnapshotFavoritesTask struct {
	Trigger string `json:"trigger"` // "schedule", "admin" or "cli"
}

func (t SnapshotFavoritesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "snapshot_favorites",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Snapshotter dumps the favorites namespace into Dir, keeping at most Keep
// files (zero keeps all).
type Snapshotter struct {
	Durable storage.Durable
	Dir     string
	Keep    int
	Metrics *metrics.Metrics
	Audit   *audit.Service

	now func() time.Time
}

func NewSnapshotter(durable storage.Durable, dir string, m *metrics.Metrics) *Snapshotter {
	return &Snapshotter{Durable: durable, Dir: dir, Metrics: m, now: time.Now}
}

// Write exports the favorites and returns the path of the new file. The file
// is written under a temporary name and renamed into place.
func (s *Snapshotter) Write(ctx context.Context) (string, error) {
	dump, err := favorites.Export(ctx, s.Durable)
	if err != nil {
		return "", fmt.Errorf("export favorites: %w", err)
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := snapshotPrefix + s.now().UTC().Format("20060102T150405.000Z") + ".json"
	path := filepath.Join(s.Dir, name)

	tmp, err := os.CreateTemp(s.Dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename snapshot: %w", err)
	}

	s.Metrics.SnapshotCompleted()
	log.Printf("[TASK] Wrote favorites snapshot %s (%d users)", path, len(dump))

	if s.Keep > 0 {
		if err := s.prune(); err != nil {
			log.Printf("[TASK] WARNING: failed to prune snapshots: %v", err)
		}
	}
	return path, nil
}

// Run writes a snapshot and records it in the audit log.
func (s *Snapshotter) Run(ctx context.Context, trigger string) (string, error) {
	path, err := s.Write(ctx)
	s.Audit.LogSnapshot(trigger, path, err)
	return path, err
}

// List returns snapshot file names, newest first.
func (s *Snapshotter) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), snapshotPrefix) || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	// The timestamp format sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *Snapshotter) prune() error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names[min(len(names), s.Keep):] {
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// SnapshotFavoritesProcessor creates a processor function for SnapshotFavoritesTask.
func SnapshotFavoritesProcessor(s *Snapshotter) backlite.QueueProcessor[SnapshotFavoritesTask] {
	return func(ctx context.Context, task SnapshotFavoritesTask) error {
		if s == nil {
			return fmt.Errorf("snapshotter not configured")
		}
		if _, err := s.Run(ctx, task.Trigger); err != nil {
			return fmt.Errorf("snapshot favorites (%s): %w", task.Trigger, err)
		}
		return nil
	}
}

// NewSnapshotFavoritesQueue creates a backlite queue for snapshot tasks.
func NewSnapshotFavoritesQueue(s *Snapshotter) backlite.Queue {
	return backlite.NewQueue(SnapshotFavoritesProcessor(s))
}

// SnapshotDispatcher starts snapshots on the queue when one is running, and
// inline otherwise.
type SnapshotDispatcher struct {
	Client      *Client
	Snapshotter *Snapshotter
}

// TriggerSnapshot enqueues or writes a snapshot. It returns the task ID, or
// the written file path when no queue is configured.
func (d *SnapshotDispatcher) TriggerSnapshot(ctx context.Context, trigger string) (string, error) {
	if d.Client != nil {
		return d.Client.Enqueue(ctx, SnapshotFavoritesTask{Trigger: trigger})
	}
	if d.Snapshotter == nil {
		return "", fmt.Errorf("snapshots not configured")
	}
	return d.Snapshotter.Run(ctx, trigger)
}

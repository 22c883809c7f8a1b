package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// ImportFavoritesTask merges a localStorage dump into durable storage.
type ImportFavoritesTask struct {
	Dump     favorites.LegacyDump `json:"dump"`
	Identity string               `json:"identity"` // who queued it
	Archive  string               `json:"archive,omitempty"`
}

func (t ImportFavoritesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_favorites",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportFavoritesProcessor creates a processor function for ImportFavoritesTask.
// locks must be the registry the HTTP layer uses, so imports never race a
// user's own edits.
func ImportFavoritesProcessor(durable storage.Durable, locks *favorites.Locks, auditor *audit.Service) backlite.QueueProcessor[ImportFavoritesTask] {
	return func(ctx context.Context, task ImportFavoritesTask) error {
		result, err := favorites.Import(ctx, durable, locks, task.Dump, nil)
		auditor.LogImport(task.Identity, "", result, task.Archive, err)
		if err != nil {
			return fmt.Errorf("import favorites: %w", err)
		}
		log.Printf("[TASK] Imported favorites: %d identities, %d books added, %d keys skipped",
			result.Identities, result.Added, len(result.Skipped))
		return nil
	}
}

// NewImportFavoritesQueue creates a backlite queue for import tasks.
func NewImportFavoritesQueue(durable storage.Durable, locks *favorites.Locks, auditor *audit.Service) backlite.Queue {
	return backlite.NewQueue(ImportFavoritesProcessor(durable, locks, auditor))
}

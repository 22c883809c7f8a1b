package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/bookfinder/internal/database/audit"
	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/favorites"
)

// Service records favorites transfers, snapshots and sign-ins. A nil
// *Service is valid and records nothing.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Log records an audit event synchronously.
func (s *Service) Log(event *entities.AuditEvent) error {
	if s == nil {
		return nil
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background. Wait blocks until
// pending writes finish.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if s == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("[AUDIT] ERROR: failed to log %s event: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every LogAsync call has been written.
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// LogImport records a favorites import. archive is the saved payload file
// name, if any.
func (s *Service) LogImport(identity, ipAddr string, result favorites.ImportResult, archive string, err error) {
	event := &entities.AuditEvent{
		Identity:    identity,
		EventType:   entities.AuditEventImport,
		Action:      "favorites_import",
		Description: fmt.Sprintf("Imported %d favorites for %d users", result.Added, result.Identities),
		IPAddress:   ipAddr,
		Metadata: encodeMetadata(map[string]any{
			"identities": result.Identities,
			"added":      result.Added,
			"skipped":    len(result.Skipped),
			"archive":    archive,
		}),
	}
	s.LogAsync(withStatus(event, err))
}

// LogExport records a favorites export covering records users.
func (s *Service) LogExport(identity, ipAddr string, records int, err error) {
	event := &entities.AuditEvent{
		Identity:    identity,
		EventType:   entities.AuditEventExport,
		Action:      "favorites_export",
		Description: fmt.Sprintf("Exported favorites for %d users", records),
		IPAddress:   ipAddr,
	}
	s.LogAsync(withStatus(event, err))
}

// LogSnapshot records a snapshot run. trigger is "schedule", "admin" or "cli".
func (s *Service) LogSnapshot(trigger, path string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSnapshot,
		Action:      "snapshot_" + trigger,
		Description: "Wrote favorites snapshot",
		Metadata:    encodeMetadata(map[string]any{"path": path}),
	}
	s.LogAsync(withStatus(event, err))
}

// LogAuth records an authentication event such as "login" or "register".
func (s *Service) LogAuth(identity, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		Identity:  identity,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// Events returns one page of events matching f and the total match count.
func (s *Service) Events(f audit.Filter) ([]entities.AuditEvent, int64, error) {
	if s == nil {
		return []entities.AuditEvent{}, 0, nil
	}
	return s.repo.List(f)
}

// DeleteOldEvents removes events older than retention.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return s.repo.DeleteOldEvents(s.now().Add(-retention))
}

func withStatus(event *entities.AuditEvent, err error) *entities.AuditEvent {
	event.Status = entities.AuditStatusSuccess
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	return event
}

func encodeMetadata(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

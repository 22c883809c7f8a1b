package http

import (
	"net/http"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/catalog"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/metrics"
	"github.com/mrlokans/bookfinder/internal/storage"
	"github.com/mrlokans/bookfinder/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Durable  storage.Durable
	Locks    *favorites.Locks
	Catalog  catalog.Searcher

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Observability
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// Audit trail (optional)
	AuditService *audit.Service
	Auditor      *audit.Auditor

	// Background work (optional)
	TaskClient *tasks.Client
	Snapshots  *tasks.Snapshotter

	// Application info
	Version string
}

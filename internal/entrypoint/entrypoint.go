package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/catalog"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/favorites"
	http_controllers "github.com/mrlokans/bookfinder/internal/http"
	"github.com/mrlokans/bookfinder/internal/metrics"
	"github.com/mrlokans/bookfinder/internal/scheduler"
	"github.com/mrlokans/bookfinder/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is syscall.SIGINT, plain kill sends syscall.SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background work stops after the last request has been answered.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// csrfSecret decodes AUTH_SESSION_SECRET, or generates a secret that lives as
// long as the process.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// newMetrics builds the registry with runtime collectors. Both results are
// nil when metrics are disabled.
func newMetrics(enabled bool) (*metrics.Metrics, http.Handler) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookfinder v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	m, metricsHandler := newMetrics(cfg.Metrics.Enabled)
	durable := db.Durable()
	locks := favorites.NewLocks()
	catalogClient := catalog.NewClient(cfg.Catalog, m)

	authService := auth.NewService(db.Users(), cfg.Auth)
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	secret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}
	if n, err := db.Users().Count(); err == nil && n == 0 {
		log.Printf("No users found. The first account registered becomes the administrator.")
	}

	auditService := audit.NewService(db.Audit())
	defer auditService.Wait()
	var auditor *audit.Auditor
	if cfg.Audit.Dir != "" {
		auditor = audit.NewAuditor(cfg.Audit.Dir)
	}

	snapshotter := tasks.NewSnapshotter(durable, cfg.Snapshot.Dir, m)
	snapshotter.Keep = cfg.Snapshot.Keep
	snapshotter.Audit = auditService

	// Background context shared by the task queue and the scheduler
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewSnapshotFavoritesQueue(snapshotter),
			tasks.NewImportFavoritesQueue(durable, locks, auditService),
			tasks.NewPruneAuditEventsQueue(auditService),
		)
		go taskClient.Start(bgCtx)
	}

	if cfg.Audit.RetentionDays > 0 {
		prune := tasks.PruneAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}
		if taskClient != nil {
			if _, err := taskClient.Enqueue(bgCtx, prune); err != nil {
				log.Printf("Failed to enqueue audit pruning: %v", err)
			}
		} else if _, err := tasks.PruneAuditEvents(auditService, prune.RetentionDays); err != nil {
			log.Printf("Failed to prune audit events: %v", err)
		}
	}

	var snapshotScheduler *scheduler.SnapshotScheduler
	if cfg.Snapshot.Enabled {
		dispatcher := &tasks.SnapshotDispatcher{Client: taskClient, Snapshotter: snapshotter}
		snapshotScheduler = scheduler.NewSnapshotScheduler(dispatcher, cfg.Snapshot.Schedule)
		if err := snapshotScheduler.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start snapshot scheduler: %v", err)
		}
	} else {
		log.Printf("Snapshot scheduler: disabled")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Durable:        durable,
		Locks:          locks,
		Catalog:        catalogClient,
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthMiddleware: auth.NewMiddleware(authService, sessionManager),
		AuthConfig:     cfg.Auth,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Metrics:        m,
		MetricsHandler: metricsHandler,
		AuditService:   auditService,
		Auditor:        auditor,
		TaskClient:     taskClient,
		Snapshots:      snapshotter,
		Version:        version,
	})
	defer router.Close()

	onShutdown := func(ctx context.Context) {
		if snapshotScheduler != nil {
			snapshotScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
	}

	Serve(router, cfg, onShutdown)
}

package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/entities"
)

// Router is the configured engine plus the resources it owns.
type Router struct {
	*gin.Engine

	authController *auth.AuthController
}

// Close stops background work started by the router.
func (r *Router) Close() {
	if r.authController != nil {
		r.authController.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Favorites and search require an authenticated caller; the admin group
// additionally requires the admin role.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.Metrics != nil {
		router.Use(MetricsMiddleware(cfg.Metrics))
	}

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())

	requireAuth := cfg.AuthMiddleware.RequireAuth()
	requireAdmin := cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)

	scope := newFavoritesScope(cfg.Durable, cfg.Locks, cfg.Metrics)
	health := NewHealthController(cfg.Database, cfg.Version)
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig)
	if cfg.AuditService != nil {
		authController.SetAuditLogger(cfg.AuditService)
	}
	favoritesController := NewFavoritesController(scope, cfg.AuditService)
	searchController := NewSearchController(cfg.Catalog, scope)
	adminController := NewAdminController(cfg.TaskClient, cfg.Snapshots, scope, cfg.AuditService, cfg.Auditor)
	auditController := NewAuditController(cfg.AuditService)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")

	authController.RegisterRoutes(api.Group("/auth"), requireAuth)

	private := api.Group("", requireAuth)
	private.GET("/dashboard", favoritesController.Dashboard)
	private.GET("/books/search", searchController.Search)

	// Static segments take precedence over :id in gin's tree.
	private.GET("/favorites", favoritesController.ListFavorites)
	private.POST("/favorites", favoritesController.AddFavorite)
	private.GET("/favorites/count", favoritesController.GetCount)
	private.GET("/favorites/export", favoritesController.Export)
	private.POST("/favorites/import", favoritesController.Import)
	private.GET("/favorites/:id", favoritesController.GetMembership)
	private.DELETE("/favorites/:id", favoritesController.RemoveFavorite)

	admin := api.Group("/admin", requireAuth, requireAdmin)
	admin.POST("/snapshots", adminController.TriggerSnapshot)
	admin.GET("/snapshots", adminController.ListSnapshots)
	admin.GET("/favorites/export", adminController.ExportAll)
	admin.POST("/favorites/import", adminController.ImportAll)
	admin.GET("/tasks/:id", adminController.GetTaskStatus)
	admin.GET("/audit", auditController.GetAuditEvents)

	return &Router{Engine: router, authController: authController}
}

package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/tasks"
)

// AdminController exposes snapshot, bulk transfer and task status endpoints.
// Every route is admin-only.
type AdminController struct {
	client       *tasks.Client
	dispatcher   *tasks.SnapshotDispatcher
	scope        *favoritesScope
	auditService *audit.Service
	auditor      *audit.Auditor
}

func NewAdminController(client *tasks.Client, snapshots *tasks.Snapshotter, scope *favoritesScope, auditService *audit.Service, auditor *audit.Auditor) *AdminController {
	return &AdminController{
		client:       client,
		dispatcher:   &tasks.SnapshotDispatcher{Client: client, Snapshotter: snapshots},
		scope:        scope,
		auditService: auditService,
		auditor:      auditor,
	}
}

// TriggerSnapshot handles POST /api/admin/snapshots
// With a task queue the snapshot is enqueued (202); otherwise it is written
// before the response (201).
func (ac *AdminController) TriggerSnapshot(c *gin.Context) {
	if ac.client == nil && ac.dispatcher.Snapshotter == nil {
		respondError(c, http.StatusServiceUnavailable, "snapshots_disabled", "snapshots are not configured")
		return
	}

	ref, err := ac.dispatcher.TriggerSnapshot(c.Request.Context(), "admin")
	if err != nil {
		respondInternalError(c, err, "trigger snapshot")
		return
	}

	if ac.client != nil {
		respondAccepted(c, "snapshot enqueued", gin.H{"task_id": ref})
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Message: "snapshot written", Data: gin.H{"path": ref}})
}

// ListSnapshots handles GET /api/admin/snapshots
func (ac *AdminController) ListSnapshots(c *gin.Context) {
	if ac.dispatcher.Snapshotter == nil {
		c.JSON(http.StatusOK, gin.H{"snapshots": []string{}})
		return
	}

	names, err := ac.dispatcher.Snapshotter.List()
	if err != nil {
		respondInternalError(c, err, "list snapshots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": names})
}

// ExportAll handles GET /api/admin/favorites/export
func (ac *AdminController) ExportAll(c *gin.Context) {
	identity, _ := auth.GetIdentity(c)
	dump, err := favorites.Export(c.Request.Context(), ac.scope.durable)
	ac.auditService.LogExport(identity, c.ClientIP(), len(dump), err)
	if err != nil {
		respondInternalError(c, err, "export all favorites")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="favorites-all.json"`)
	c.JSON(http.StatusOK, dump)
}

// ImportAll handles POST /api/admin/favorites/import
// Dumps covering many identities are merged by a background task when a
// queue is running.
func (ac *AdminController) ImportAll(c *gin.Context) {
	var dump favorites.LegacyDump
	if err := c.ShouldBindJSON(&dump); err != nil {
		respondBadRequest(c, "request body must be an object of storage keys to JSON strings")
		return
	}

	identity, _ := auth.GetIdentity(c)
	archive, err := ac.auditor.SaveJSON(dump)
	if err != nil {
		log.Printf("[AUDIT] WARNING: failed to archive import payload: %v", err)
	}

	if ac.client != nil {
		id, err := ac.client.Enqueue(c.Request.Context(), tasks.ImportFavoritesTask{Dump: dump, Identity: identity, Archive: archive})
		if err != nil {
			respondInternalError(c, err, "enqueue import")
			return
		}
		respondAccepted(c, "import enqueued", gin.H{"task_id": id})
		return
	}

	result, err := favorites.Import(c.Request.Context(), ac.scope.durable, ac.scope.locks, dump, nil)
	ac.auditService.LogImport(identity, c.ClientIP(), result, archive, err)
	if err != nil {
		respondFavoritesError(c, err, "import all favorites")
		return
	}
	respondSuccess(c, "import finished", gin.H{"result": result})
}

// GetTaskStatus handles GET /api/admin/tasks/:id
func (ac *AdminController) GetTaskStatus(c *gin.Context) {
	if ac.client == nil {
		respondError(c, http.StatusServiceUnavailable, "tasks_disabled", "task queue is not running")
		return
	}

	taskID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := ac.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

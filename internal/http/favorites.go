package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// dashboardPreview is how many favorites the dashboard shows.
const dashboardPreview = 3

type FavoritesController struct {
	scope        *favoritesScope
	auditService *audit.Service
}

func NewFavoritesController(scope *favoritesScope, auditService *audit.Service) *FavoritesController {
	return &FavoritesController{scope: scope, auditService: auditService}
}

type favoritesResponse struct {
	Favorites []entities.BookRecord `json:"favorites"`
	Count     int                   `json:"count"`
}

type membershipResponse struct {
	ID         string `json:"id"`
	IsFavorite bool   `json:"is_favorite"`
}

type dashboardResponse struct {
	Identity string                `json:"identity"`
	Count    int                   `json:"count"`
	Recent   []entities.BookRecord `json:"recent"`
}

func listResponse(store *favorites.Store) favoritesResponse {
	books := store.List()
	return favoritesResponse{Favorites: books, Count: len(books)}
}

// respondFavoritesError maps store errors onto HTTP statuses.
func respondFavoritesError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, favorites.ErrInvalidBook):
		respondError(c, http.StatusBadRequest, "invalid_book", err.Error())
	case errors.Is(err, favorites.ErrSessionInactive):
		respondUnauthorized(c)
	case errors.Is(err, favorites.ErrDurableWrite):
		log.Printf("[FAVORITES] ERROR: %s: %v", op, err)
		respondError(c, http.StatusServiceUnavailable, "storage_unavailable", "favorites could not be saved, try again")
	default:
		respondInternalError(c, err, op)
	}
}

// ListFavorites returns the caller's favorites in insertion order.
// GET /api/favorites
func (fc *FavoritesController) ListFavorites(c *gin.Context) {
	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	c.JSON(http.StatusOK, listResponse(store))
}

// AddFavorite appends a book given in Google Books volume form.
// POST /api/favorites
func (fc *FavoritesController) AddFavorite(c *gin.Context) {
	var book entities.BookRecord
	if err := c.ShouldBindJSON(&book); err != nil {
		respondBadRequest(c, "request body must be a book volume with an id")
		return
	}

	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	if err := store.Add(c.Request.Context(), book); err != nil {
		respondFavoritesError(c, err, "add favorite")
		return
	}
	c.JSON(http.StatusOK, listResponse(store))
}

// RemoveFavorite drops a book by ID. Removing an absent ID succeeds.
// DELETE /api/favorites/:id
func (fc *FavoritesController) RemoveFavorite(c *gin.Context) {
	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	if err := store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondFavoritesError(c, err, "remove favorite")
		return
	}
	c.JSON(http.StatusOK, listResponse(store))
}

// GetMembership reports whether a book is among the caller's favorites.
// GET /api/favorites/:id
func (fc *FavoritesController) GetMembership(c *gin.Context) {
	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	id := c.Param("id")
	c.JSON(http.StatusOK, membershipResponse{ID: id, IsFavorite: store.IsFavorite(id)})
}

// GetCount handles GET /api/favorites/count
func (fc *FavoritesController) GetCount(c *gin.Context) {
	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	c.JSON(http.StatusOK, gin.H{"count": store.Count()})
}

// Dashboard returns the favorites count and the first few favorites.
// GET /api/dashboard
func (fc *FavoritesController) Dashboard(c *gin.Context) {
	store, release, ok := fc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	identity, _ := store.Identity()
	books := store.List()
	c.JSON(http.StatusOK, dashboardResponse{
		Identity: identity,
		Count:    len(books),
		Recent:   books[:min(len(books), dashboardPreview)],
	})
}

// Export downloads the caller's record as a localStorage dump.
// GET /api/favorites/export
func (fc *FavoritesController) Export(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	dump, err := favorites.ExportIdentity(c.Request.Context(), fc.scope.durable, identity)
	fc.auditService.LogExport(identity, c.ClientIP(), len(dump), err)
	if err != nil {
		respondInternalError(c, err, "export favorites")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="favorites.json"`)
	c.JSON(http.StatusOK, dump)
}

// Import merges a localStorage dump into the caller's favorites. Keys that
// belong to other identities are reported as skipped.
// POST /api/favorites/import
func (fc *FavoritesController) Import(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var dump favorites.LegacyDump
	if err := c.ShouldBindJSON(&dump); err != nil {
		respondBadRequest(c, "request body must be an object of storage keys to JSON strings")
		return
	}

	own := func(id string) bool { return id == identity }
	result, err := favorites.Import(c.Request.Context(), fc.scope.durable, fc.scope.locks, dump, own)
	fc.auditService.LogImport(identity, c.ClientIP(), result, "", err)
	if err != nil {
		respondFavoritesError(c, err, "import favorites")
		return
	}

	respondSuccess(c, fmt.Sprintf("imported %d books", result.Added), gin.H{
		"result": result,
		"key":    storage.FavoritesKey(identity).Legacy(),
	})
}

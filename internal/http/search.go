package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookfinder/internal/catalog"
	"github.com/mrlokans/bookfinder/internal/entities"
)

const searchTimeout = 15 * time.Second

// SearchController queries the book catalog on behalf of signed-in users.
type SearchController struct {
	catalog catalog.Searcher
	scope   *favoritesScope
}

func NewSearchController(searcher catalog.Searcher, scope *favoritesScope) *SearchController {
	return &SearchController{catalog: searcher, scope: scope}
}

type searchResult struct {
	Book       entities.BookRecord `json:"book"`
	IsFavorite bool                `json:"is_favorite"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// Search handles GET /api/books/search?q=
// Each result is marked with whether the caller has already saved it.
func (sc *SearchController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "query parameter 'q' is required")
		return
	}

	store, release, ok := sc.scope.open(c)
	if !ok {
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	books, err := sc.catalog.Search(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrEmptyQuery):
			respondBadRequest(c, "query parameter 'q' is required")
		case errors.Is(err, context.DeadlineExceeded):
			respondError(c, http.StatusGatewayTimeout, "catalog_timeout", "book catalog did not respond in time")
		default:
			log.Printf("[CATALOG] ERROR: search %q: %v", query, err)
			respondError(c, http.StatusBadGateway, "catalog_unavailable", "book catalog request failed")
		}
		return
	}

	results := make([]searchResult, 0, len(books))
	for _, b := range books {
		results = append(results, searchResult{Book: b, IsFavorite: store.IsFavorite(b.ID)})
	}
	c.JSON(http.StatusOK, searchResponse{Query: query, Results: results})
}

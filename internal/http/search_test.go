package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookfinder/internal/entities"
)

func TestSearch_AnnotatesFavorites(t *testing.T) {
	srv := setupTestServer(t)
	h := srv.bearer(t, "a@x.com")
	srv.catalog.books = []entities.BookRecord{
		{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}},
		{ID: "b2", Title: "Dune Messiah"},
	}
	srv.do(http.MethodPost, "/api/favorites", volume("b2", "Dune Messiah"), h)

	w := srv.do(http.MethodGet, "/api/books/search?q=+dune+", "", h)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[searchResponse](t, w)
	assert.Equal(t, "dune", resp.Query)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b1", resp.Results[0].Book.ID)
	assert.Equal(t, []string{"Frank Herbert"}, resp.Results[0].Book.Authors)
	assert.False(t, resp.Results[0].IsFavorite)
	assert.True(t, resp.Results[1].IsFavorite)
	assert.Equal(t, []string{"dune"}, srv.catalog.queries)
}

func TestSearch_ResultShape(t *testing.T) {
	srv := setupTestServer(t)
	h := srv.bearer(t, "a@x.com")
	srv.catalog.books = []entities.BookRecord{{ID: "b1", Title: "Dune", ThumbnailURL: "http://books.google.com/t.jpg"}}

	w := srv.do(http.MethodGet, "/api/books/search?q=dune", "", h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"query": "dune",
		"results": [{
			"book": {"id": "b1", "volumeInfo": {"title": "Dune", "imageLinks": {"thumbnail": "http://books.google.com/t.jpg"}}},
			"is_favorite": false
		}]
	}`, w.Body.String())
}

func TestSearch_NoResults(t *testing.T) {
	srv := setupTestServer(t)
	h := srv.bearer(t, "a@x.com")

	w := srv.do(http.MethodGet, "/api/books/search?q=zzzz", "", h)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"query":"zzzz","results":[]}`, w.Body.String())
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{name: "missing query", query: "", want: http.StatusBadRequest},
		{name: "blank query", query: "+++", want: http.StatusBadRequest},
		{name: "catalog failure", query: "dune", err: errors.New("boom"), want: http.StatusBadGateway},
		{name: "catalog timeout", query: "dune", err: fmt.Errorf("search: %w", context.DeadlineExceeded), want: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestServer(t)
			h := srv.bearer(t, "a@x.com")
			srv.catalog.err = tt.err

			w := srv.do(http.MethodGet, "/api/books/search?q="+tt.query, "", h)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

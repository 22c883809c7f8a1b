package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookfinder/internal/storage"
)

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		srv := setupTestServer(t)

		w := srv.do(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "test", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.NotEmpty(t, response.Time)
	})

	t.Run("counts stored favorites records", func(t *testing.T) {
		srv := setupTestServer(t)
		repo := srv.db.Durable()
		ctx := context.Background()
		require.NoError(t, repo.Set(ctx, storage.FavoritesKey("a@example.com"), `[]`))
		require.NoError(t, repo.Set(ctx, storage.FavoritesKey("b@example.com"), `[{"id":"b1"}]`))

		w := srv.do(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ok", response.Checks["favorites"])
		require.NotNil(t, response.FavoritesRecords)
		assert.Equal(t, int64(2), *response.FavoritesRecords)
	})

	t.Run("reports missing database", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthController(nil, "1.0.0").Status)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "not configured")
	})

	t.Run("returns unhealthy when database is closed", func(t *testing.T) {
		srv := setupTestServer(t)
		require.NoError(t, srv.db.Close())

		w := srv.do(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "unhealthy")
	})
}

func TestPing(t *testing.T) {
	srv := setupTestServer(t)

	w := srv.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

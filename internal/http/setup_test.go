package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct horse battery"

type fakeCatalog struct {
	mu      sync.Mutex
	books   []entities.BookRecord
	err     error
	queries []string
}

func (f *fakeCatalog) Search(_ context.Context, query string) ([]entities.BookRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.books, nil
}

type testServer struct {
	router  *Router
	db      *database.Database
	auth    *auth.Service
	catalog *fakeCatalog
	metrics *metrics.Metrics
	audit   *audit.Service
	cfg     RouterConfig
}

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:  time.Hour,
		TokenExpiry:      time.Hour,
		BcryptCost:       bcrypt.MinCost,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
}

func setupTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := testAuthConfig()
	authService := auth.NewService(db.Users(), authCfg)
	sessions := auth.NewMemorySessionManager(authCfg)
	m := metrics.New(prometheus.NewRegistry())
	catalog := &fakeCatalog{}

	cfg := RouterConfig{
		Database:       db,
		Durable:        db.Durable(),
		Locks:          favorites.NewLocks(),
		Catalog:        catalog,
		AuthService:    authService,
		SessionManager: sessions,
		AuthMiddleware: auth.NewMiddleware(authService, sessions),
		AuthConfig:     authCfg,
		Metrics:        m,
		AuditService:   audit.NewService(db.Audit()),
		Version:        "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := NewRouter(cfg)
	t.Cleanup(router.Close)
	t.Cleanup(cfg.AuditService.Wait)

	return &testServer{router: router, db: db, auth: authService, catalog: catalog, metrics: m, audit: cfg.AuditService, cfg: cfg}
}

// bearer registers a user and returns the Authorization header for it.
func (s *testServer) bearer(t *testing.T, email string) map[string]string {
	t.Helper()
	user, err := s.auth.Register(email, testPassword, "")
	require.NoError(t, err)
	token, err := s.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func newJSONRequest(method, path, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return serve(s, req)
}

// replaceCookie keeps a browser-like jar: a new cookie replaces one with the
// same name.
func replaceCookie(jar []*http.Cookie, c *http.Cookie) []*http.Cookie {
	for i, existing := range jar {
		if existing.Name == c.Name {
			jar[i] = c
			return jar
		}
	}
	return append(jar, c)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func volume(id, title string) string {
	return `{"id":"` + id + `","volumeInfo":{"title":"` + title + `","authors":["Frank Herbert"]}}`
}

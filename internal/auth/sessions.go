package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyIdentity = "identity"
	SessionKeyRole     = "role"
	SessionKeyLoginAt  = "login_at"
)

func init() {
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager. The session carries the user's
// identity so the favorites store can be restored without a user lookup.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager storing sessions in sqlDB, the
// *sql.DB underneath GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	return configure(sm, cfg), nil
}

// NewMemorySessionManager keeps sessions in process memory. Used by tests and
// the CLI.
func NewMemorySessionManager(cfg config.Auth) *SessionManager {
	return configure(scs.New(), cfg)
}

func configure(sm *scs.SessionManager, cfg config.Auth) *SessionManager {
	if cfg.SessionLifetime > 0 {
		sm.Lifetime = cfg.SessionLifetime
		sm.IdleTimeout = cfg.SessionLifetime / 2
	}

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// CreateSession stores user in the session after a successful login. The
// token is renewed to prevent session fixation.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyIdentity, user.Identity())
	sm.Put(ctx, SessionKeyRole, user.Role)
	sm.Put(ctx, SessionKeyLoginAt, time.Now())
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// UserID returns 0 when the session is anonymous.
func (sm *SessionManager) UserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, SessionKeyUserID))
}

// Identity returns the favorites identity held by the session, if any.
func (sm *SessionManager) Identity(ctx context.Context) (string, bool) {
	identity := sm.GetString(ctx, SessionKeyIdentity)
	return identity, identity != ""
}

func (sm *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return sm.UserID(ctx) != 0
}

// SessionData holds the session information for a request.
type SessionData struct {
	UserID   uint
	Identity string
	Role     entities.UserRole
	LoginAt  time.Time
}

// GetSessionData returns nil for anonymous sessions.
func (sm *SessionManager) GetSessionData(ctx context.Context) *SessionData {
	userID := sm.UserID(ctx)
	if userID == 0 {
		return nil
	}

	role, _ := sm.Get(ctx, SessionKeyRole).(entities.UserRole)
	loginAt, _ := sm.Get(ctx, SessionKeyLoginAt).(time.Time)
	identity, _ := sm.Identity(ctx)

	return &SessionData{
		UserID:   userID,
		Identity: identity,
		Role:     role,
		LoginAt:  loginAt,
	}
}

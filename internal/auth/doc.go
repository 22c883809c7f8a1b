// Package auth provides accounts, sessions and request authentication.
//
// Users register and sign in with an email and password. A successful login
// stores the user's ID and identity (the normalized email) in an scs session
// cookie; API clients may use a bearer token instead. The identity is what
// scopes a user's favorites.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF signing key, generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Failures before lockout
//
// # Usage
//
//	authService := auth.NewService(db.Users(), cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessions)
//	router.Use(sessions.SessionLoadSave(), authMiddleware.Handler())
//
// Extract the caller in handlers:
//
//	identity, ok := auth.GetIdentity(c)
package auth
